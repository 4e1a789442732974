package utils // package utils provides helper functions for session token creation

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed JWT wallet-session token along with its
// expiry. The Token field contains the JWT string; Exp stores the
// expiration timestamp. Session tokens are short‑lived and carried in the
// Authorization header when calling the administrative endpoints. The token
// names a wallet only; role and profile are re-read from the data store on
// every request, so the claims here are a lookup key, not a trusted
// authorization statement.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a connected wallet. It
// takes the signing secret, the wallet address, the user's role at issue
// time, and a TTL in minutes.
func NewSessionToken(secret, wallet, role string, ttlMin int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"wallet": wallet,
		"role":   role,
		"exp":    exp.Unix(),
		"iat":    time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
