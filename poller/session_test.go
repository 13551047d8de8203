package poller_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/fakeapi"
	"github.com/jrsteele09/go-sensor-dashboard/poller"
	"github.com/jrsteele09/go-sensor-dashboard/schedule/schedulefake"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/jrsteele09/go-sensor-dashboard/session"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/kv"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	api        *fakeapi.Server
	store      *token.KVStore
	session    *session.Controller
	scheduler  *schedulefake.FakeScheduler
	controller *poller.Controller

	mu       sync.Mutex
	statuses []poller.Status
}

// setupSessionFixture wires the poller to the session the way the watch command does.
func setupSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		api:       fakeapi.New(),
		store:     token.NewStore(kv.NewMemory()),
		scheduler: schedulefake.NewFakeScheduler(),
	}
	_, err := f.api.CreateUser("alice", "alice@example.com", "pw")
	require.NoError(t, err)
	f.api.Seed()
	server := httptest.NewServer(f.api)
	t.Cleanup(server.Close)

	client := apiclient.New(server.URL, f.store)
	f.session = session.New(client)
	f.controller = poller.New(sensors.NewService(client),
		poller.WithScheduler(f.scheduler),
		poller.WithAuthenticated(f.session.State() == session.Authenticated),
	)
	t.Cleanup(f.session.OnChange(func(s session.State) {
		f.controller.SetAuthenticated(s == session.Authenticated)
	}))
	t.Cleanup(f.controller.Subscribe(func(u poller.Update) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.statuses = append(f.statuses, u.Status)
	}))
	return f
}

func (f *sessionFixture) published() []poller.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]poller.Status(nil), f.statuses...)
}

func TestRefreshFailureDuringPollRequiresLogin(t *testing.T) {
	f := setupSessionFixture(t)
	ctx := context.Background()

	_, err := f.session.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	f.controller.SetRealtime(ctx, true)
	require.Equal(t, poller.StatusPolling, f.controller.Status())
	_, loaded := f.controller.Snapshot()
	require.True(t, loaded)

	f.api.ExpireAccessTokens()
	f.api.FailRefresh(true)
	f.scheduler.Advance(poller.DefaultInterval)

	require.False(t, f.store.IsAuthenticated())
	require.Equal(t, session.Anonymous, f.session.State())
	require.Equal(t, poller.StatusRequiresLogin, f.controller.Status())
	statuses := f.published()
	require.Equal(t, poller.StatusRequiresLogin, statuses[len(statuses)-1])
	require.False(t, f.controller.Active())
	_, loaded = f.controller.Snapshot()
	require.False(t, loaded)

	// logging back in resumes polling with a fresh fetch
	f.api.FailRefresh(false)
	_, err = f.session.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, poller.StatusPolling, f.controller.Status())
	require.True(t, f.controller.Active())
	_, loaded = f.controller.Snapshot()
	require.True(t, loaded)
}

func TestLogoutWhileWatchingStaysIdle(t *testing.T) {
	f := setupSessionFixture(t)
	ctx := context.Background()

	_, err := f.session.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	f.controller.SetRealtime(ctx, true)
	require.True(t, f.controller.Active())

	f.session.Logout(ctx)
	require.Equal(t, poller.StatusIdle, f.controller.Status())
	require.False(t, f.controller.Active())

	f.scheduler.Advance(3 * poller.DefaultInterval)
	require.Equal(t, poller.StatusIdle, f.controller.Status())
}
