// Package password wraps bcrypt hashing and verification. Plaintext never
// leaves this package and is never logged.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt work factor used when the configured cost is
// out of bcrypt's accepted range.
const DefaultCost = 12

// Hash returns the bcrypt hash of plain using the given cost.
func Hash(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash with a plaintext candidate.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
