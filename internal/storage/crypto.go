package storage

import (
	"golang.org/x/crypto/bcrypt"
)

// hashCost is the bcrypt cost used for admin tokens.
const hashCost = 12

// HashKey creates a bcrypt hash of a secret. The admin API keeps only the hash
// of ADMIN_TOKEN in memory.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyKey checks if a key matches a bcrypt hash.
func VerifyKey(key, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}
