package model

import (
    "fmt"
    "strings"
    "time"
)

// Role is the closed set of account roles.  Values match the strings stored
// in the `users.role` column.
type Role string

const (
    RoleStudent    Role = "STUDENT"
    RoleInstructor Role = "INSTRUCTOR"
    RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleStudent, RoleInstructor, RoleAdmin:
        return true
    default:
        return false
    }
}

func (r Role) String() string { return string(r) }

// ParseRole converts a stored or user supplied role name into a Role.
// Unknown names are an error; there is no fallback role.
func ParseRole(s string) (Role, error) {
    r := Role(strings.ToUpper(strings.TrimSpace(s)))
    if !r.Valid() {
        return "", fmt.Errorf("unknown role %q", s)
    }
    return r, nil
}

// User represents a row in the `users` table.  PasswordHash never leaves the
// service; handlers serialize users through the json tags below.
//
// Fields:
//  ID           – UUID primary key.
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash.
//  Role         – account role.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           string    `json:"id"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         Role      `json:"role"`
    CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether the user's role is one of roles.  An empty list
// matches any authenticated user.
func (u User) HasRole(roles ...Role) bool {
    if len(roles) == 0 {
        return true
    }
    for _, r := range roles {
        if u.Role == r {
            return true
        }
    }
    return false
}
