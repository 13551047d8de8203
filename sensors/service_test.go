package sensors_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/internal/fakeapi"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/kv"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	api       *fakeapi.Server
	store     *token.KVStore
	service   *sensors.Service
	roof      string
	refreshes int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	api := fakeapi.New()
	user, err := api.CreateUser("alice", "alice@example.com", "pw")
	require.NoError(t, err)
	pair, err := api.IssueTokens(user.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	roof := api.AddDevice("Roof", "Building A")
	_, err = api.AddReading(sensors.Reading{Device: roof, Temperature: 21, Humidity: 40, AirQuality: 90, Timestamp: now.Add(-5 * time.Hour)})
	require.NoError(t, err)
	_, err = api.AddReading(sensors.Reading{Device: roof, Temperature: 42, Humidity: 35, AirQuality: 120, Timestamp: now.Add(-time.Hour)})
	require.NoError(t, err)

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	store := token.NewStore(kv.NewMemory())
	require.NoError(t, store.Set(pair))
	f := &testFixture{api: api, store: store, roof: roof}

	// mints a fresh pair directly instead of going through the refresh endpoint
	refresher := apiclient.RefresherFunc(func(context.Context) (string, error) {
		f.refreshes++
		next, err := api.IssueTokens(user.ID)
		if err != nil {
			return "", err
		}
		return next.Access, store.Set(next)
	})
	f.service = sensors.NewService(apiclient.New(server.URL, store, apiclient.WithRefresher(refresher)))
	return f
}

func TestService(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t.Run("health", func(t *testing.T) {
		health, err := f.service.Health(ctx)
		require.NoError(t, err)
		require.Equal(t, "healthy", health.Status)
	})

	t.Run("latest", func(t *testing.T) {
		readings, err := f.service.Latest(ctx)
		require.NoError(t, err)
		require.Len(t, readings, 1)
		require.Equal(t, "Roof", readings[0].DeviceName)
		require.True(t, readings[0].TemperatureExtreme())
	})

	t.Run("history unwraps the paginated envelope", func(t *testing.T) {
		readings, err := f.service.History(ctx, f.roof, 2)
		require.NoError(t, err)
		require.Len(t, readings, 1)

		readings, err = f.service.History(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, readings, 2)
	})

	t.Run("statistics and summary", func(t *testing.T) {
		stats, err := f.service.Statistics(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		require.Equal(t, 2, stats[0].TotalRecords)
		require.Equal(t, 1, stats[0].ActiveAlerts)

		summary, err := f.service.Summary(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Totals.TotalDevices)
		require.Equal(t, 1, summary.Totals.ActiveAlertsCount)
	})

	t.Run("alerts", func(t *testing.T) {
		alerts, err := f.service.ActiveAlerts(ctx)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		require.Equal(t, "temperature_high", alerts[0].AlertType)
		require.True(t, alerts[0].Active())

		resolved, err := f.service.ResolveAlert(ctx, alerts[0].ID)
		require.NoError(t, err)
		require.False(t, resolved.Active())

		_, err = f.service.ResolveAlert(ctx, 404)
		require.True(t, errors.Is(err, errors.ErrNotFound))

		alerts, err = f.service.ActiveAlerts(ctx)
		require.NoError(t, err)
		require.Empty(t, alerts)
	})

	t.Run("expired session is refreshed transparently", func(t *testing.T) {
		f.api.ExpireAccessTokens()
		readings, err := f.service.Latest(ctx)
		require.NoError(t, err)
		require.Len(t, readings, 1)
		require.Equal(t, 1, f.refreshes)
	})
}

func TestListEnvelopes(t *testing.T) {
	ctx := context.Background()
	body := `[{"id":1,"device":"d1","temperature":20,"humidity":40,"air_quality":80,"uv_index":null,"light_level":300,"timestamp":"2026-03-01T10:00:00Z"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == sensors.RouteSensorData {
			_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":` + body + `}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	service := sensors.NewService(apiclient.New(srv.URL, token.NewStore(kv.NewMemory())))

	latest, err := service.Latest(ctx)
	require.NoError(t, err)
	history, err := service.History(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, latest, history)
	require.Nil(t, latest[0].UVIndex)
	require.Equal(t, 300.0, *latest[0].LightLevel)
}

func TestAirQualityLevels(t *testing.T) {
	require.Equal(t, sensors.AirQualityGood, sensors.ClassifyAirQuality(50))
	require.Equal(t, sensors.AirQualityModerate, sensors.ClassifyAirQuality(150))
	require.Equal(t, sensors.AirQualityPoor, sensors.ClassifyAirQuality(500))
	require.Equal(t, sensors.AirQualityDangerous, sensors.ClassifyAirQuality(500.1))
	require.Equal(t, "dangerous", sensors.AirQualityDangerous.String())
}

func TestDevicesAndSettings(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t.Run("devices", func(t *testing.T) {
		devices, err := f.service.Devices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		require.Equal(t, f.roof, devices[0].ID)
		require.True(t, devices[0].IsActive)

		device, err := f.service.Device(ctx, f.roof)
		require.NoError(t, err)
		require.Equal(t, "Building A", device.Location)

		_, err = f.service.Device(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, errors.ErrNotFound)
		_, err = f.service.Device(ctx, "")
		require.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("defaults until first save", func(t *testing.T) {
		settings, err := f.service.Settings(ctx)
		require.NoError(t, err)
		require.Equal(t, sensors.DefaultSettings(), *settings)
		require.Zero(t, settings.ID)
	})

	t.Run("first save creates, later saves update", func(t *testing.T) {
		settings := sensors.DefaultSettings()
		settings.TempHighThreshold = 30
		created, err := f.service.UpdateSettings(ctx, settings)
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		require.Equal(t, "alice", created.Username)
		require.Equal(t, 1, f.api.Calls(http.MethodPost, sensors.RouteSettings))

		created.EmailNotifications = false
		updated, err := f.service.UpdateSettings(ctx, *created)
		require.NoError(t, err)
		require.Equal(t, created.ID, updated.ID)
		require.False(t, updated.EmailNotifications)
		require.Equal(t, 1, f.api.Calls(http.MethodPut, fakeapi.RouteSettingsItem))

		current, err := f.service.Settings(ctx)
		require.NoError(t, err)
		require.Equal(t, 30.0, current.TempHighThreshold)
		require.False(t, current.EmailNotifications)
	})

	t.Run("inverted thresholds are refused locally", func(t *testing.T) {
		settings := sensors.DefaultSettings()
		settings.TempHighThreshold = 1
		_, err := f.service.UpdateSettings(ctx, settings)
		require.ErrorIs(t, err, errors.ErrInvalidInput)
		require.ErrorContains(t, err, "TempHighThreshold")

		settings = sensors.DefaultSettings()
		settings.HumidityHighThreshold = 120
		_, err = f.service.UpdateSettings(ctx, settings)
		require.ErrorIs(t, err, errors.ErrInvalidInput)
		require.Equal(t, 1, f.api.Calls(http.MethodPost, sensors.RouteSettings))
	})
}
