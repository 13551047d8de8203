package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-sensor-dashboard/token"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Creator mints access/refresh tokens shaped like the sensor backend's
// (token_type, user_id, jti, iat, exp).
type Creator struct {
	signer        token.Signer
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewCreator creates a new JWT creator
func NewCreator(signer token.Signer, accessExpiry, refreshExpiry time.Duration) *Creator {
	return &Creator{
		signer:        signer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// CreatePair issues a fresh access and refresh token for the user
func (c *Creator) CreatePair(userID int64) (token.Pair, error) {
	access, err := c.CreateAccessToken(userID)
	if err != nil {
		return token.Pair{}, err
	}
	refresh, err := c.CreateRefreshToken(userID)
	if err != nil {
		return token.Pair{}, err
	}
	return token.Pair{Access: access, Refresh: refresh}, nil
}

func (c *Creator) CreateAccessToken(userID int64) (string, error) {
	return c.create(TokenTypeAccess, userID, c.accessExpiry)
}

func (c *Creator) CreateRefreshToken(userID int64) (string, error) {
	return c.create(TokenTypeRefresh, userID, c.refreshExpiry)
}

func (c *Creator) create(tokenType string, userID int64, expiry time.Duration) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"token_type": tokenType,              // access or refresh
		"user_id":    userID,                 // backend user primary key
		"iat":        now.Unix(),             // Issued At
		"exp":        now.Add(expiry).Unix(), // Expiry
		"jti":        uuid.New().String(),    // Unique token ID for blacklisting
	}
	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}
