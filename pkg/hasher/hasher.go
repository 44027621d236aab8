// Package hasher wraps bcrypt for the bridge's local API credentials
// and generates random signing material.
package hasher

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(pw []byte) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(pw, 10)
	return string(bytes), err
}

func PasswordCorrect(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns length random bytes, base64 encoded. Used for
// an ephemeral JWT signing key when none is configured.
func GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
