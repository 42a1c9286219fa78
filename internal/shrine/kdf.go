package shrine

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// SaltSize is the KDF salt length in bytes.
	SaltSize = 16
)

// DefaultIterations is the PBKDF2 work factor used for newly created or
// re-keyed shrines. Existing containers carry their own iteration count.
// Tests lower this to keep key derivation fast.
//
// 600k rounds of PBKDF2-HMAC-SHA256 follows the OWASP password storage
// recommendation.
var DefaultIterations = 600_000

// DeriveKey derives a symmetric key from a password, a salt and an iteration
// count using PBKDF2-HMAC-SHA256. The same derivation is used for unlock and
// for re-keying.
func DeriveKey(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, KeySize, sha256.New)
}

// GenerateSalt returns a fresh random KDF salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
