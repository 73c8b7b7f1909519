package handler

import (
    "reflect"
    "regexp"
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/online-class-gate/internal/model"
)

var paymentRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,63}$`)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
    validate *validator.Validate
}

// NewValidator returns a validator with the project's custom tags:
//   payment_ref  bank or gateway reference: 3-64 letters, digits, '-' or '_'
//   payment_status  empty or one of PENDING, APPROVED, REJECTED
func NewValidator() *RequestValidator {
    v := validator.New()
    // Report json names so error bodies match the request fields.
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        for _, tag := range []string{"json", "query"} {
            name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
            if name != "" && name != "-" {
                return name
            }
        }
        return f.Name
    })
    _ = v.RegisterValidation("payment_ref", validatePaymentRef)
    _ = v.RegisterValidation("payment_status", validatePaymentStatus)
    return &RequestValidator{validate: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.validate.Struct(i)
}

func validatePaymentRef(fl validator.FieldLevel) bool {
    return paymentRefPattern.MatchString(fl.Field().String())
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
    s := strings.ToUpper(fl.Field().String())
    return s == "" || model.PaymentStatus(s).Valid()
}
