// Package token issues and verifies the signed bearer credentials used by
// the auth pipeline. Tokens are HS256 JWTs carrying the user id as the
// subject plus issued-at and expiry claims; the issued-at is what lets the
// protect middleware reject tokens that predate a password change.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid covers malformed tokens and signature mismatches. ErrExpired
// is returned for a structurally valid token whose TTL has elapsed. Both
// must surface to clients as the same uniform unauthorized response.
var (
	ErrInvalid = errors.New("token invalid")
	ErrExpired = errors.New("token expired")
)

// Claims is the verified content of a bearer credential.
type Claims struct {
	UserID   uint64
	IssuedAt time.Time
}

// Issue builds and signs an HS256 JWT for a user. It returns the signed
// string and its expiry.
func Issue(secret string, userID uint64, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	})
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a raw token string. It fails closed: any
// parse problem other than expiry maps to ErrInvalid.
func Verify(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC, including "none".
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalid
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return Claims{}, ErrInvalid
	}
	iat, ok := claims["iat"].(float64)
	if !ok {
		return Claims{}, ErrInvalid
	}
	return Claims{
		UserID:   uint64(sub),
		IssuedAt: time.Unix(int64(iat), 0).UTC(),
	}, nil
}
