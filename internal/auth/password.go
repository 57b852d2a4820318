package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	decoyOnce sync.Once
	decoyHash string
)

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// decoy returns a throwaway hash at the default cost. Comparing against it
// makes a login for an unknown email cost the same as a wrong password.
func decoy() string {
	decoyOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
		decoyHash = string(h)
	})
	return decoyHash
}
