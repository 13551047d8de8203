package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-sensor-dashboard/internal/utils"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
)

type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []sensors.Reading `json:"results"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, sensors.Health{
			Status:    "healthy",
			Timestamp: s.nowFunc().UTC(),
			Message:   "Environmental monitoring server is running",
			Version:   Version,
		})
	}
}

// LatestHandler returns the newest reading of every device.
func (s *Server) LatestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		latest := make([]sensors.Reading, 0, len(s.devices))
		for _, d := range s.devices {
			if readings := s.readingsLocked(d.ID, time.Time{}); len(readings) > 0 {
				latest = append(latest, readings[0])
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, latest)
	}
}

// SensorDataHandler lists readings as a paginated envelope. An unparsable
// hours value is ignored.
func (s *Server) SensorDataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.URL.Query().Get("device_id")
		var since time.Time
		if hours, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && hours > 0 {
			since = s.nowFunc().Add(-time.Duration(hours) * time.Hour)
		}

		s.mu.Lock()
		readings := s.readingsLocked(deviceID, since)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, page{Count: len(readings), Results: readings})
	}
}

func (s *Server) StatisticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		stats := make([]sensors.DeviceStats, 0, len(s.devices))
		for _, d := range s.devices {
			readings := s.readingsLocked(d.ID, time.Time{})
			if len(readings) == 0 {
				continue
			}
			var temp, hum, air float64
			for _, r := range readings {
				temp += r.Temperature
				hum += r.Humidity
				air += r.AirQuality
			}
			n := float64(len(readings))
			stats = append(stats, sensors.DeviceStats{
				DeviceID:        d.ID,
				DeviceName:      d.Name,
				TotalRecords:    len(readings),
				LatestTimestamp: utils.Ptr(readings[0].Timestamp),
				AvgTemperature:  utils.Ptr(temp / n),
				AvgHumidity:     utils.Ptr(hum / n),
				AvgAirQuality:   utils.Ptr(air / n),
				ActiveAlerts:    len(s.activeAlertsLocked(d.ID)),
			})
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		yesterday := s.nowFunc().Add(-24 * time.Hour)

		s.mu.Lock()
		summary := sensors.Summary{LatestReadings: make([]sensors.LatestReading, 0)}
		summary.Totals.TotalDevices = len(s.devices)
		summary.Totals.RecentDataCount = len(s.readingsLocked("", yesterday))
		summary.Totals.ActiveAlertsCount = len(s.activeAlertsLocked(""))
		for _, d := range s.devices {
			if !d.IsActive {
				continue
			}
			summary.Totals.ActiveDevices++
			if readings := s.readingsLocked(d.ID, time.Time{}); len(readings) > 0 {
				r := readings[0]
				summary.LatestReadings = append(summary.LatestReadings, sensors.LatestReading{
					DeviceName:     d.Name,
					DeviceLocation: d.Location,
					Temperature:    r.Temperature,
					Humidity:       r.Humidity,
					AirQuality:     r.AirQuality,
					Timestamp:      r.Timestamp,
				})
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) ActiveAlertsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		alerts := s.activeAlertsLocked("")
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, alerts)
	}
}

func (s *Server) ResolveAlertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, detail("Not found."))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, a := range s.alerts {
			if a.ID != id {
				continue
			}
			now := s.nowFunc().UTC()
			a.Status = sensors.AlertResolved
			a.StatusDisplay = statusDisplay[sensors.AlertResolved]
			a.ResolvedAt = &now
			writeJSON(w, http.StatusOK, a)
			return
		}
		writeJSON(w, http.StatusNotFound, detail("Not found."))
	}
}
