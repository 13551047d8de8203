package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer mints and checks the access/refresh JWTs handed out by the sensor
// backend's /auth/token/ endpoints. Only the fake backend and tests hold one;
// the dashboard client reads tokens without verifying them.
type Signer interface {
	// Sign serialises the session claims (token_type, user_id, jti, iat, exp).
	Sign(claims jwt.MapClaims) (string, error)
	// Keyfunc hands the verification key to jwt.Parse for tokens this signer minted.
	Keyfunc(token *jwt.Token) (any, error)
	// Algorithm is the only "alg" header Keyfunc accepts.
	Algorithm() string
}

// SecretSigner signs session tokens with HS256 under one shared secret, the
// way the backend signs with its SECRET_KEY.
type SecretSigner struct {
	secret []byte
}

var _ Signer = (*SecretSigner)(nil)

func NewHMACSigner(secret string) *SecretSigner {
	return &SecretSigner{secret: []byte(secret)}
}

func (s *SecretSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrapf(err, "sign %v token", claims["token_type"])
	}
	return signed, nil
}

func (s *SecretSigner) Keyfunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != s.Algorithm() {
		return nil, errors.Errorf("session token signed with %v, want %s", token.Header["alg"], s.Algorithm())
	}
	return s.secret, nil
}

func (s *SecretSigner) Algorithm() string {
	return jwt.SigningMethodHS256.Alg()
}
