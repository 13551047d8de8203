package jwt_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := jwt.NowTimeFunc
	jwt.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { jwt.NowTimeFunc = prev })
}

func TestCreatorAndInspect(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	fixedNow(t, now)

	signer := token.NewHMACSigner("test-secret")
	creator := jwt.NewCreator(signer, 5*time.Minute, 24*time.Hour)

	pair, err := creator.CreatePair(42)
	require.NoError(t, err)
	require.True(t, pair.Complete())
	require.NotEqual(t, pair.Access, pair.Refresh)

	access, err := jwt.Inspect(pair.Access)
	require.NoError(t, err)
	require.Equal(t, jwt.TokenTypeAccess, access.TokenType)
	require.Equal(t, int64(42), access.UserID)
	require.NotEmpty(t, access.JTI)
	require.Equal(t, now.Add(5*time.Minute), access.ExpiresAt)
	require.Equal(t, now, access.IssuedAt)
	require.False(t, access.Expired(now))
	require.True(t, access.Expired(now.Add(6*time.Minute)))

	refresh, err := jwt.Verify(pair.Refresh, signer)
	require.NoError(t, err)
	require.Equal(t, jwt.TokenTypeRefresh, refresh.TokenType)
	require.Equal(t, now.Add(24*time.Hour), refresh.ExpiresAt)
}

func TestVerify(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	fixedNow(t, now)
	signer := token.NewHMACSigner("test-secret")
	creator := jwt.NewCreator(signer, time.Minute, time.Hour)

	raw, err := creator.CreateAccessToken(1)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := jwt.Verify(raw, token.NewHMACSigner("other-secret"))
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		fixedNow(t, now.Add(2*time.Minute))
		_, err := jwt.Verify(raw, signer)
		require.Error(t, err)
	})
}

func TestInspectMalformed(t *testing.T) {
	_, err := jwt.Inspect("")
	require.ErrorIs(t, err, jwt.ErrMalformedClaims)

	_, err = jwt.Inspect("not-a-jwt")
	require.Error(t, err)
}
