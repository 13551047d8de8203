package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAuthError(t *testing.T) {
	t.Run("matches sentinel and wrapped reason", func(t *testing.T) {
		err := errors.NewAuthError("session.Refresh", errors.ErrMissingRefreshToken)
		require.True(t, errors.IsAuth(err))
		require.True(t, errors.Is(err, errors.ErrMissingRefreshToken))
		require.Equal(t, "session.Refresh: auth: missing refresh token", err.Error())
	})

	t.Run("status code in message", func(t *testing.T) {
		err := &errors.AuthError{Op: "GET /api/sensor-data/latest/", Reason: "unauthorized", StatusCode: http.StatusUnauthorized}
		require.Contains(t, err.Error(), "status 401")
	})

	t.Run("survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("poll: %w", &errors.AuthError{Reason: "expired"})
		require.True(t, errors.IsAuth(err))
		var authErr *errors.AuthError
		require.True(t, errors.As(err, &authErr))
		require.Equal(t, "expired", authErr.Reason)
	})
}

func TestNetworkAndServerErrors(t *testing.T) {
	cause := stderrors.New("connection refused")
	netErr := &errors.NetworkError{Op: "GET /api/health/", Err: cause}
	require.True(t, errors.Is(netErr, errors.ErrNetwork))
	require.True(t, errors.Is(netErr, cause))
	require.False(t, errors.IsAuth(netErr))

	srvErr := &errors.ServerError{Op: "GET /api/alerts/9/resolve/", StatusCode: http.StatusNotFound}
	require.True(t, errors.Is(srvErr, errors.ErrServer))
	require.True(t, errors.Is(srvErr, errors.ErrNotFound))
	require.Contains(t, srvErr.Error(), "404 Not Found")

	srvErr = &errors.ServerError{Op: "POST /auth/register/", StatusCode: http.StatusBadRequest, Message: "username taken"}
	require.False(t, errors.Is(srvErr, errors.ErrNotFound))
	require.Equal(t, "POST /auth/register/: server returned 400: username taken", srvErr.Error())
}

func TestWrapf(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "ignored"))
	err := errors.Wrapf(errors.ErrPartialPair, "token.Set %s", "pair")
	require.True(t, errors.Is(err, errors.ErrPartialPair))
	require.Equal(t, "token.Set pair: token pair must contain both access and refresh tokens", err.Error())
}
