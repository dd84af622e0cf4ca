package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewResetSecret returns a one-time password-reset secret and its SHA-256
// digest. Only the digest is persisted; the plaintext goes to the user by
// mail and is otherwise discarded.
func NewResetSecret() (plain, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(buf)
	return plain, HashResetSecret(plain), nil
}

// HashResetSecret returns the SHA-256 hex digest of a reset secret, the
// form it is stored and looked up in.
func HashResetSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
