package hash

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlgorithm is returned by NewPassword for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("hash: unknown algorithm")

const (
	// AlgorithmBcrypt selects Bcrypt for password hashing.
	AlgorithmBcrypt = "bcrypt"
	// AlgorithmArgon2id selects Argon2id for password hashing.
	AlgorithmArgon2id = "argon2id"
)

// Hash produces and checks one-way digests of secrets.
type Hash interface {
	// Hash returns the encoded digest of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether str matches the encoded digest.
	Verify(hashed, str string) bool
}

// PasswordConfig selects and tunes the password hasher.
type PasswordConfig struct {
	Algorithm  string
	BcryptCost int
	Pepper     string
}

// NewPassword builds the password hasher named by cfg.Algorithm.
// An empty algorithm means bcrypt.
func NewPassword(cfg PasswordConfig) (Hash, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Algorithm)) {
	case "", AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost, cfg.Pepper), nil
	case AlgorithmArgon2id:
		return NewArgon2id(cfg.Pepper), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, cfg.Algorithm)
	}
}
