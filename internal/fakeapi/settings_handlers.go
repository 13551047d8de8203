package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
)

func (s *Server) DevicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		devices := s.devicesLocked()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, devices)
	}
}

func (s *Server) DeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		device, ok := s.deviceLocked(mux.Vars(r)["id"])
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, detail("Not found."))
			return
		}
		writeJSON(w, http.StatusOK, device)
	}
}

// SettingsHandler lists the caller's settings: zero or one row in a page envelope.
func (s *Server) SettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		rows := make([]sensors.Settings, 0, 1)
		s.mu.Lock()
		if settings, ok := s.settingsLocked(user.ID); ok {
			rows = append(rows, *settings)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "next": nil, "previous": nil, "results": rows})
	}
}

// CreateSettingsHandler saves the caller's first settings row. Fields left out
// of the body take the backend defaults.
func (s *Server) CreateSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		settings := sensors.DefaultSettings()
		if err := decodeBody(r, &settings); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.settingsLocked(user.ID); exists {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"user": {"user settings with this user already exists."}})
			return
		}
		now := s.nowFunc().UTC()
		s.nextSettings++
		settings.ID = s.nextSettings
		settings.User = user.ID
		settings.Username = user.Username
		settings.CreatedAt = now
		settings.UpdatedAt = now
		s.settings[user.ID] = &settings
		writeJSON(w, http.StatusCreated, settings)
	}
}

// UpdateSettingsHandler serves PUT and PATCH. Another user's row is reported as not found.
func (s *Server) UpdateSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, detail("Not found."))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := s.settingsLocked(user.ID)
		if !ok || current.ID != id {
			writeJSON(w, http.StatusNotFound, detail("Not found."))
			return
		}
		updated := *current
		if err := decodeBody(r, &updated); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
			return
		}
		updated.ID = current.ID
		updated.User = current.User
		updated.Username = current.Username
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = s.nowFunc().UTC()
		s.settings[user.ID] = &updated
		writeJSON(w, http.StatusOK, updated)
	}
}
