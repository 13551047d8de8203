package sensors

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DeviceRoute is the detail route of one device.
func DeviceRoute(id string) string {
	return RouteDevices + url.PathEscape(id) + "/"
}

// SettingsRoute is the detail route of a saved settings row.
func SettingsRoute(id int64) string {
	return fmt.Sprintf("%s%d/", RouteSettings, id)
}

// Devices lists the user's devices, newest first.
func (s *Service) Devices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := s.getList(ctx, RouteDevices, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Service) Device(ctx context.Context, id string) (*Device, error) {
	if id == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "sensors.Device: empty id")
	}
	var device Device
	if err := s.api.Get(ctx, DeviceRoute(id), nil, &device); err != nil {
		return nil, errors.Wrapf(err, "sensors.Device %s", id)
	}
	return &device, nil
}

// Settings returns the user's saved thresholds, or DefaultSettings when none
// have been saved yet.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	var rows []Settings
	if err := s.getList(ctx, RouteSettings, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		defaults := DefaultSettings()
		return &defaults, nil
	}
	return &rows[0], nil
}

// UpdateSettings saves the thresholds, creating the row on first save.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) (*Settings, error) {
	const op = "sensors.UpdateSettings"
	if err := validateSettings(settings); err != nil {
		return nil, errors.Wrapf(err, op)
	}

	var saved Settings
	var err error
	if settings.ID == 0 {
		err = s.api.Post(ctx, RouteSettings, settings, &saved)
	} else {
		err = s.api.Put(ctx, SettingsRoute(settings.ID), settings, &saved)
	}
	if err != nil {
		return nil, errors.Wrapf(err, op)
	}
	return &saved, nil
}

func validateSettings(settings Settings) error {
	err := engine().Struct(settings)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: %s", errors.ErrInvalidInput, strings.Join(fields, ", "))
}
