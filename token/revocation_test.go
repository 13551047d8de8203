package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBlacklist(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bl := token.NewInMemoryBlacklist(func() time.Time { return now })

	bl.Add("jti-1", now.Add(time.Hour))
	bl.Add("jti-2", now.Add(-time.Minute))
	bl.Add("", now.Add(time.Hour))

	require.True(t, bl.IsRevoked("jti-1"))
	require.True(t, bl.IsRevoked("jti-2"))
	require.False(t, bl.IsRevoked(""))

	require.Equal(t, 1, bl.Cleanup())
	require.True(t, bl.IsRevoked("jti-1"))
	require.False(t, bl.IsRevoked("jti-2"))
}
