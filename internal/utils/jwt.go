// Package utils provides helpers for password digests and identity
// tokens.
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed HS256 JWT plus its expiry.  The subject
// claim carries the numeric user id, which doubles as the owner tag
// on every ticket the user creates.  There is no refresh flow:
// identity is re-proven by logging in again once the token expires.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs a token for a user.  Claims are the
// standard sub/exp/iat plus the user's role.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
