package utils

import (
    "crypto/rand"
    "fmt"
    "math/big"
)

// NewResetCode returns a uniformly random numeric code of the given number
// of digits, zero padded (e.g. "048213").
func NewResetCode(digits int) (string, error) {
    if digits < 4 || digits > 12 {
        return "", fmt.Errorf("reset code length %d out of range", digits)
    }
    max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
    n, err := rand.Int(rand.Reader, max)
    if err != nil {
        return "", err
    }
    return fmt.Sprintf("%0*s", digits, n.String()), nil
}
