package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordMismatch = errors.New("password does not match")
)

const (
	DefaultCost       = 12
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordBytes = 72
)

// HashPassword hashes with DefaultCost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost is HashPassword with an explicit bcrypt cost. Tests
// use bcrypt.MinCost.
func HashPasswordWithCost(password string, cost int) (string, error) {
	switch {
	case len(password) < MinPasswordLength:
		return "", ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword returns ErrPasswordMismatch when password does not match hash
func VerifyPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// NeedsRehash reports whether hash was made with a cost other than cost.
// Unparseable hashes always need one.
func NeedsRehash(hash string, cost int) bool {
	current, err := bcrypt.Cost([]byte(hash))
	return err != nil || current != cost
}
