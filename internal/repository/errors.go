// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrUserNotFound is returned when no user matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrPaymentNotFound is returned by read-only payment lookups.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrNotFoundOrAlreadyProcessed is returned when a status transition finds
// no PENDING payment with the given id.  Missing and already-reviewed
// payments are reported identically.
var ErrNotFoundOrAlreadyProcessed = errors.New("payment not found or already processed")

// ErrDuplicateReference is returned when a payment reference number is
// already in use.
var ErrDuplicateReference = errors.New("payment reference already exists")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
