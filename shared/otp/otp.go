// Package otp generates numeric one-time codes.
package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultLength is the width of codes sent for password resets.
const DefaultLength = 6

var ErrInvalidLength = errors.New("otp length must be positive")

var ten = big.NewInt(10)

// Generate returns a code of exactly length decimal digits. Leading zeros are kept.
func Generate(length int) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}

	return string(code), nil
}
