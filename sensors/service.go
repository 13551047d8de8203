package sensors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
)

// Backend routes for sensor data
const (
	RouteHealth        = "/api/health/"
	RouteLatest        = "/api/sensor-data/latest/"
	RouteSensorData    = "/api/sensor-data/"
	RouteStatistics    = "/api/sensor-data/statistics/"
	RouteSummary       = "/api/dashboard/summary/"
	RouteActiveAlerts  = "/api/alerts/active/"
	RouteDevices       = "/api/devices/"
	RouteSettings      = "/api/settings/"
	routeResolveFormat = "/api/alerts/%d/resolve/"
)

// ResolveRoute returns the route that resolves the given alert.
func ResolveRoute(id int64) string {
	return fmt.Sprintf(routeResolveFormat, id)
}

// Service reads sensor data through an authenticated client.
type Service struct {
	api *apiclient.Client
}

func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// Latest returns the newest reading per device, in server order.
func (s *Service) Latest(ctx context.Context) ([]Reading, error) {
	var readings []Reading
	if err := s.getList(ctx, RouteLatest, nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// History lists readings, optionally for one device and within the last hours.
// Empty deviceID and zero hours leave the respective filter off.
func (s *Service) History(ctx context.Context, deviceID string, hours int) ([]Reading, error) {
	query := url.Values{}
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}
	if hours > 0 {
		query.Set("hours", strconv.Itoa(hours))
	}
	var readings []Reading
	if err := s.getList(ctx, RouteSensorData, query, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func (s *Service) Statistics(ctx context.Context) ([]DeviceStats, error) {
	var stats []DeviceStats
	if err := s.getList(ctx, RouteStatistics, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary
	if err := s.api.Get(ctx, RouteSummary, nil, &summary); err != nil {
		return nil, errors.Wrapf(err, "sensors.Summary")
	}
	return &summary, nil
}

func (s *Service) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	if err := s.getList(ctx, RouteActiveAlerts, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ResolveAlert marks an alert resolved and returns its new state.
func (s *Service) ResolveAlert(ctx context.Context, id int64) (*Alert, error) {
	var alert Alert
	if err := s.api.Patch(ctx, ResolveRoute(id), nil, &alert); err != nil {
		return nil, errors.Wrapf(err, "sensors.ResolveAlert %d", id)
	}
	return &alert, nil
}

// Health does not need a session.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := s.api.DoAnonymous(ctx, http.MethodGet, RouteHealth, nil, &health); err != nil {
		return nil, errors.Wrapf(err, "sensors.Health")
	}
	return &health, nil
}

func (s *Service) getList(ctx context.Context, path string, query url.Values, out any) error {
	var raw json.RawMessage
	if err := s.api.Get(ctx, path, query, &raw); err != nil {
		return errors.Wrapf(err, "sensors: GET %s", path)
	}
	if err := decodeList(raw, out); err != nil {
		return errors.Wrapf(err, "sensors: GET %s", path)
	}
	return nil
}

// decodeList accepts either a bare JSON array or a paginated {"results": [...]} envelope.
func decodeList(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return fmt.Errorf("decode page: %w", err)
		}
		if page.Results == nil {
			return fmt.Errorf("decode page: %w", errors.ErrNotFound)
		}
		trimmed = page.Results
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}
