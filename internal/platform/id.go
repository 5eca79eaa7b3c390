package platform

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	lowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"
	passwordAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()-_=+[]{}|;:,.<>?"
)

// PasswordLength is the length of generated administrator passwords.
const PasswordLength = 22

func NewID() string {
	return uuid.New().String()
}

// RandomLowercase returns n random letters from a-z.
func RandomLowercase(n int) string {
	return randomString(lowercaseAlphabet, n)
}

// StrongPassword returns n random characters drawn from mixed-case letters,
// digits and punctuation.
func StrongPassword(n int) string {
	return randomString(passwordAlphabet, n)
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand: " + err.Error())
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
