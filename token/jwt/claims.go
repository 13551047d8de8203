package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-sensor-dashboard/token"
)

var ErrMalformedClaims = errors.New("malformed token claims")

// Claims is the subset of token claims the dashboard cares about.
type Claims struct {
	TokenType string
	UserID    int64
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp lies before now. A missing exp never expires.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Inspect decodes a token's claims without verifying its signature. The client
// holds no signing key; it only reads identity hints out of tokens it was issued.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrMalformedClaims
	}
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrMalformedClaims
	}
	return fromMapClaims(claims)
}

// Verify parses the token with the signer's key, enforcing signature and expiry.
func Verify(rawToken string, signer token.Signer) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, signer.Keyfunc,
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithValidMethods([]string{signer.Algorithm()}),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrMalformedClaims
	}
	return fromMapClaims(claims)
}

func fromMapClaims(claims jwtlib.MapClaims) (*Claims, error) {
	c := &Claims{}
	c.TokenType, _ = claims["token_type"].(string)
	c.JTI, _ = claims["jti"].(string)

	switch v := claims["user_id"].(type) {
	case float64:
		c.UserID = int64(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: user_id %q", ErrMalformedClaims, v)
		}
		c.UserID = id
	case nil:
	default:
		return nil, fmt.Errorf("%w: user_id of type %T", ErrMalformedClaims, v)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}
