package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/internal/fakeapi"
	"github.com/jrsteele09/go-sensor-dashboard/session"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/jrsteele09/go-sensor-dashboard/token/kv"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	api        *fakeapi.Server
	store      *token.KVStore
	controller *session.Controller

	mu          sync.Mutex
	transitions []session.State
}

func setupTestFixture(t *testing.T, opts ...fakeapi.Option) *testFixture {
	t.Helper()
	api := fakeapi.New(opts...)
	_, err := api.CreateUser("alice", "alice@example.com", "pw")
	require.NoError(t, err)
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	return newFixture(t, server.URL, api)
}

func newFixture(t *testing.T, url string, api *fakeapi.Server) *testFixture {
	t.Helper()
	store := token.NewStore(kv.NewMemory())
	require.NoError(t, store.Init())
	f := &testFixture{
		api:        api,
		store:      store,
		controller: session.New(apiclient.New(url, store)),
	}
	f.controller.OnChange(func(s session.State) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.transitions = append(f.transitions, s)
	})
	return f
}

func (f *testFixture) states() []session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.State(nil), f.transitions...)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores both tokens and resolves the user", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Equal(t, session.Anonymous, f.controller.State())

		result, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)
		require.Equal(t, int64(1), result.User.ID)
		require.Equal(t, "alice", result.User.Username)
		require.Equal(t, "alice@example.com", result.User.Email)

		pair, ok := f.store.Get()
		require.True(t, ok)
		require.Equal(t, result.Tokens, pair)
		user, ok := f.controller.User()
		require.True(t, ok)
		require.Equal(t, int64(1), user.ID)
		require.Equal(t, session.Authenticated, f.controller.State())
		require.Equal(t, []session.State{session.Authenticated}, f.states())
	})

	t.Run("rejects empty credentials without a request", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Login(ctx, "", "pw")
		require.True(t, errors.IsAuth(err))
		require.True(t, errors.Is(err, errors.ErrInvalidCredentials))
		require.Contains(t, err.Error(), "username")
		require.Zero(t, f.api.Calls(http.MethodPost, fakeapi.RouteToken))
	})

	t.Run("wrong password", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Login(ctx, "alice", "nope")
		require.True(t, errors.IsAuth(err))
		require.False(t, f.store.IsAuthenticated())
		require.Empty(t, f.states())
	})

	t.Run("token response without refresh token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"access":"A1"}`))
		}))
		t.Cleanup(srv.Close)
		f := newFixture(t, srv.URL, nil)

		_, err := f.controller.Login(ctx, "alice", "pw")
		require.True(t, errors.IsAuth(err))
		require.True(t, errors.Is(err, errors.ErrMissingTokens))
		require.False(t, f.store.IsAuthenticated())
	})

	t.Run("falls back to token claims when the profile is unavailable", func(t *testing.T) {
		creator := jwt.NewCreator(token.NewHMACSigner("other"), time.Minute, time.Hour)
		pair, err := creator.CreatePair(42)
		require.NoError(t, err)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == session.RouteProfile {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access": pair.Access, "refresh": pair.Refresh})
		}))
		t.Cleanup(srv.Close)
		f := newFixture(t, srv.URL, nil)

		result, err := f.controller.Login(ctx, "carol", "pw")
		require.NoError(t, err)
		require.Equal(t, int64(42), result.User.ID)
		require.Equal(t, "carol", result.User.Username)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("expired access token is refreshed and the refresh token kept", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		f.api.ExpireAccessTokens()
		user, err := f.controller.Profile(ctx)
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)

		pair, ok := f.store.Get()
		require.True(t, ok)
		require.NotEqual(t, result.Tokens.Access, pair.Access)
		require.Equal(t, result.Tokens.Refresh, pair.Refresh)
		require.Equal(t, 1, f.api.Calls(http.MethodPost, fakeapi.RouteTokenRefresh))
		require.Equal(t, 3, f.api.Calls(http.MethodGet, fakeapi.RouteProfile))
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		f := setupTestFixture(t, fakeapi.WithRefreshRotation())
		result, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		access, err := f.controller.Refresh(ctx)
		require.NoError(t, err)
		pair, _ := f.store.Get()
		require.Equal(t, access, pair.Access)
		require.NotEqual(t, result.Tokens.Refresh, pair.Refresh)
	})

	t.Run("refresh failure ends the session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		f.api.ExpireAccessTokens()
		f.api.FailRefresh(true)
		_, err = f.controller.Profile(ctx)
		require.True(t, errors.IsAuth(err))

		require.False(t, f.store.IsAuthenticated())
		_, ok := f.controller.User()
		require.False(t, ok)
		require.Equal(t, []session.State{session.Authenticated, session.Anonymous}, f.states())
	})

	t.Run("missing refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Refresh(ctx)
		require.True(t, errors.Is(err, errors.ErrMissingRefreshToken))
		require.Zero(t, f.api.Calls(http.MethodPost, fakeapi.RouteTokenRefresh))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("blacklists the refresh token and clears the store", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		f.controller.Logout(ctx)
		require.Equal(t, session.Anonymous, f.controller.State())
		require.Equal(t, 1, f.api.Calls(http.MethodPost, fakeapi.RouteLogout))

		// the old refresh token no longer works
		require.NoError(t, f.store.Set(result.Tokens))
		_, err = f.controller.Refresh(ctx)
		require.True(t, errors.IsAuth(err))
		require.False(t, f.store.IsAuthenticated())
	})

	t.Run("server failure still clears the store", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Login(ctx, "alice", "pw")
		require.NoError(t, err)

		f.api.FailLogout(true)
		f.controller.Logout(ctx)
		require.False(t, f.store.IsAuthenticated())
		_, ok := f.controller.User()
		require.False(t, ok)
		require.Equal(t, []session.State{session.Authenticated, session.Anonymous}, f.states())
	})

	t.Run("anonymous logout makes no request", func(t *testing.T) {
		f := setupTestFixture(t)
		f.controller.Logout(ctx)
		require.Zero(t, f.api.Calls(http.MethodPost, fakeapi.RouteLogout))
		require.Empty(t, f.states())
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("auto login with returned tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.controller.Register(ctx, "bob", "bob@example.com", "pw")
		require.NoError(t, err)
		require.Equal(t, int64(2), result.User.ID)
		require.True(t, result.Tokens.Complete())
		require.Equal(t, session.Authenticated, f.controller.State())
	})

	t.Run("invalid email", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Register(ctx, "bob", "not-an-email", "pw")
		require.True(t, errors.Is(err, errors.ErrInvalidCredentials))
		require.Contains(t, err.Error(), "email")
		require.Zero(t, f.api.Calls(http.MethodPost, fakeapi.RouteRegister))
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.controller.Register(ctx, "alice", "alice@example.com", "pw")
		require.True(t, errors.Is(err, errors.ErrServer))
		require.Contains(t, err.Error(), "username already exists")
		require.False(t, f.store.IsAuthenticated())
	})

	t.Run("without tokens stays anonymous", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"ok","user":{"id":7,"username":"dave"}}`))
		}))
		t.Cleanup(srv.Close)
		f := newFixture(t, srv.URL, nil)

		result, err := f.controller.Register(ctx, "dave", "dave@example.com", "pw")
		require.NoError(t, err)
		require.Equal(t, int64(7), result.User.ID)
		require.False(t, result.Tokens.Complete())
		require.Equal(t, session.Anonymous, f.controller.State())
	})
}

func TestProfileOperations(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	ok, err := f.controller.Verify(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.controller.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	ok, err = f.controller.Verify(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	user, err := f.controller.UpdateEmail(ctx, "alice@new.example.com")
	require.NoError(t, err)
	require.Equal(t, "alice@new.example.com", user.Email)
	cached, _ := f.controller.User()
	require.Equal(t, "alice@new.example.com", cached.Email)

	_, err = f.controller.UpdateEmail(ctx, "broken")
	require.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	f.api.ExpireAccessTokens()
	ok, err = f.controller.Verify(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOnChangeUnsubscribe(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	var calls int
	unsubscribe := f.controller.OnChange(func(session.State) { calls++ })
	_, err := f.controller.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	unsubscribe()
	f.controller.Logout(ctx)
	require.Equal(t, 1, calls)
}
