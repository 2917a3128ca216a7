package auth

import (
	"fmt"

	"github.com/hugh/salespulse/pkg/crypto"
	"golang.org/x/crypto/bcrypt"
)

const temporaryPasswordLength = 12

// decoyHash is a bcrypt hash at the default cost of a value no one knows.
const decoyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3Q3zLL7b8V2gPbKqT2tGs9e"

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TemporaryPassword is issued when an admin creates an account without
// choosing a password.
func TemporaryPassword() (string, error) {
	return crypto.RandomPassword(temporaryPasswordLength)
}
