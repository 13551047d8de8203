package fakeapi

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sensor-dashboard/internal/utils"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
)

const highUVIndex = 8.0

var alertTypeDisplay = map[string]string{
	"temperature_high": "High temperature",
	"temperature_low":  "Low temperature",
	"air_quality_bad":  "Poor air quality",
	"uv_high":          "High UV index",
}

var statusDisplay = map[string]string{
	sensors.AlertActive:   "Active",
	sensors.AlertResolved: "Resolved",
	sensors.AlertIgnored:  "Ignored",
}

// AddDevice registers an active device and returns its id.
func (s *Server) AddDevice(name, location string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	d := sensors.Device{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  location,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.devices = append(s.devices, d)
	return d.ID
}

// SetDeviceActive toggles a device. Inactive devices are left out of the
// summary's active count and latest readings.
func (s *Server) SetDeviceActive(id string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID == id {
			s.devices[i].IsActive = active
			s.devices[i].UpdatedAt = s.nowFunc().UTC()
			return true
		}
	}
	return false
}

// AddReading stores a reading for a known device. Id, device name and
// location are filled in; a zero timestamp becomes now. Readings that breach
// the dangerous thresholds raise alerts as the real backend does.
func (s *Server) AddReading(r sensors.Reading) (sensors.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.deviceLocked(r.Device)
	if !ok {
		return sensors.Reading{}, fmt.Errorf("fakeapi: unknown device %q", r.Device)
	}
	s.nextReading++
	r.ID = s.nextReading
	r.DeviceName = device.Name
	r.DeviceLocation = device.Location
	if r.Timestamp.IsZero() {
		r.Timestamp = s.nowFunc().UTC()
	}
	s.readings = append(s.readings, r)

	if r.AirQuality > sensors.DangerousAirQuality {
		s.raiseAlertLocked(device, "air_quality_bad", sensors.DangerousAirQuality, r.AirQuality, r.Timestamp)
	}
	if r.Temperature > sensors.ExtremeTemperatureHigh {
		s.raiseAlertLocked(device, "temperature_high", sensors.ExtremeTemperatureHigh, r.Temperature, r.Timestamp)
	}
	if r.Temperature < sensors.ExtremeTemperatureLow {
		s.raiseAlertLocked(device, "temperature_low", sensors.ExtremeTemperatureLow, r.Temperature, r.Timestamp)
	}
	if uv := utils.Value(r.UVIndex); uv > highUVIndex {
		s.raiseAlertLocked(device, "uv_high", highUVIndex, uv, r.Timestamp)
	}
	return r, nil
}

// Seed registers a few fixed devices with an hour of readings each, enough
// for the dashboard to have something to show.
func (s *Server) Seed() {
	now := s.nowFunc().UTC()
	fixtures := []struct {
		name, location string
		temp, hum, air float64
		uvIndex, lux   float64
	}{
		{"Rooftop Station", "Building A roof", 24.5, 41, 85, 6.2, 820},
		{"Greenhouse", "North garden", 29.8, 68, 140, 3.1, 540},
		{"Server Room", "Basement", 19.2, 35, 60, 0, 120},
	}
	for _, f := range fixtures {
		id := s.AddDevice(f.name, f.location)
		for i := 3; i >= 0; i-- {
			step := float64(3 - i)
			_, _ = s.AddReading(sensors.Reading{
				Device:      id,
				Temperature: f.temp + step*0.3,
				Humidity:    f.hum - step,
				AirQuality:  f.air + step*5,
				UVIndex:     utils.Ptr(f.uvIndex),
				LightLevel:  utils.Ptr(f.lux),
				Timestamp:   now.Add(-time.Duration(i) * 15 * time.Minute),
			})
		}
	}
}

// CleanupRevoked drops blacklist entries whose tokens have expired anyway.
func (s *Server) CleanupRevoked() int {
	return s.revoked.Cleanup() + s.expired.Cleanup()
}

func (s *Server) raiseAlertLocked(device sensors.Device, alertType string, threshold, current float64, at time.Time) {
	s.nextAlert++
	s.alerts = append(s.alerts, &sensors.Alert{
		ID:               s.nextAlert,
		Device:           device.ID,
		DeviceName:       device.Name,
		AlertType:        alertType,
		AlertTypeDisplay: alertTypeDisplay[alertType],
		ThresholdValue:   threshold,
		CurrentValue:     current,
		Status:           sensors.AlertActive,
		StatusDisplay:    statusDisplay[sensors.AlertActive],
		Message:          fmt.Sprintf("%s at %s: %.1f (threshold %.1f)", alertTypeDisplay[alertType], device.Name, current, threshold),
		CreatedAt:        at,
	})
}

func (s *Server) deviceLocked(id string) (sensors.Device, bool) {
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return sensors.Device{}, false
}

// devicesLocked returns the devices newest first, as the backend orders them.
func (s *Server) devicesLocked() []sensors.Device {
	out := append([]sensors.Device(nil), s.devices...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Server) settingsLocked(userID int64) (*sensors.Settings, bool) {
	settings, ok := s.settings[userID]
	return settings, ok
}

// readingsLocked returns readings newest first, optionally filtered.
func (s *Server) readingsLocked(deviceID string, since time.Time) []sensors.Reading {
	out := make([]sensors.Reading, 0, len(s.readings))
	for _, r := range s.readings {
		if deviceID != "" && r.Device != deviceID {
			continue
		}
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *Server) activeAlertsLocked(deviceID string) []sensors.Alert {
	out := make([]sensors.Alert, 0)
	for _, a := range s.alerts {
		if a.Status != sensors.AlertActive || (deviceID != "" && a.Device != deviceID) {
			continue
		}
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
