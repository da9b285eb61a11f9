package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt = "bcrypt"
	AlgorithmArgon2 = "argon2"

	// DefaultBcryptCost matches the work factor used by existing SELLO accounts.
	DefaultBcryptCost = 10
)

var ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

// Hasher hashes new passwords with one algorithm and verifies hashes produced by either.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2.Config
}

// NewHasher creates a Hasher for the given algorithm. A zero bcryptCost selects DefaultBcryptCost.
func NewHasher(algorithm string, bcryptCost int) (*Hasher, error) {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}

	switch algorithm {
	case AlgorithmBcrypt:
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case AlgorithmArgon2:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	return &Hasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      argon2.DefaultConfig(),
	}, nil
}

// HashPassword returns a salted, encoded hash of password.
func (h *Hasher) HashPassword(password string) (string, error) {
	if h.algorithm == AlgorithmArgon2 {
		encoded, err := h.argon.HashEncoded([]byte(password))
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches encoded.
// A mismatch is not an error; a malformed hash is.
func (h *Hasher) VerifyPassword(password, encoded string) (bool, error) {
	if strings.HasPrefix(encoded, "$argon2") {
		return argon2.VerifyEncoded([]byte(password), []byte(encoded))
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
