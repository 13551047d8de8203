package fakeapi

import (
	"net/http"
)

// Routes served by the fake backend
const (
	RouteToken        = "/auth/token/"
	RouteTokenRefresh = "/auth/token/refresh/"
	RouteTokenVerify  = "/auth/token/verify/"
	RouteRegister     = "/auth/register/"
	RouteLogout       = "/auth/logout/"
	RouteProfile      = "/auth/profile/"

	RouteHealth       = "/api/health/"
	RouteSensorData   = "/api/sensor-data/"
	RouteLatest       = "/api/sensor-data/latest/"
	RouteStatistics   = "/api/sensor-data/statistics/"
	RouteSummary      = "/api/dashboard/summary/"
	RouteActiveAlerts = "/api/alerts/active/"
	RouteResolveAlert = "/api/alerts/{id:[0-9]+}/resolve/"
	RouteDevices      = "/api/devices/"
	RouteDevice       = "/api/devices/{id:[0-9a-fA-F-]+}/"
	RouteSettings     = "/api/settings/"
	RouteSettingsItem = "/api/settings/{id:[0-9]+}/"
)

func (s *Server) initRoutes() {
	s.router.Use(s.countMiddleware)

	// AUTH
	s.handle(http.MethodPost, RouteToken, s.TokenHandler())
	s.handle(http.MethodPost, RouteTokenRefresh, s.TokenRefreshHandler())
	s.handle(http.MethodPost, RouteTokenVerify, s.TokenVerifyHandler())
	s.handle(http.MethodPost, RouteRegister, s.RegisterHandler())
	s.handle(http.MethodPost, RouteLogout, ChainMiddleware(s.LogoutHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteProfile, ChainMiddleware(s.ProfileHandler(), s.RequireAuth()))
	s.handle(http.MethodPut, RouteProfile, ChainMiddleware(s.UpdateProfileHandler(), s.RequireAuth()))

	// SENSORS
	s.handle(http.MethodGet, RouteHealth, s.HealthHandler())
	s.handle(http.MethodGet, RouteLatest, ChainMiddleware(s.LatestHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteStatistics, ChainMiddleware(s.StatisticsHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteSensorData, ChainMiddleware(s.SensorDataHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteSummary, ChainMiddleware(s.SummaryHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteActiveAlerts, ChainMiddleware(s.ActiveAlertsHandler(), s.RequireAuth()))
	s.handle(http.MethodPatch, RouteResolveAlert, ChainMiddleware(s.ResolveAlertHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteDevices, ChainMiddleware(s.DevicesHandler(), s.RequireAuth()))
	s.handle(http.MethodGet, RouteDevice, ChainMiddleware(s.DeviceHandler(), s.RequireAuth()))

	// SETTINGS
	s.handle(http.MethodGet, RouteSettings, ChainMiddleware(s.SettingsHandler(), s.RequireAuth()))
	s.handle(http.MethodPost, RouteSettings, ChainMiddleware(s.CreateSettingsHandler(), s.RequireAuth()))
	s.handle(http.MethodPut, RouteSettingsItem, ChainMiddleware(s.UpdateSettingsHandler(), s.RequireAuth()))
	s.handle(http.MethodPatch, RouteSettingsItem, ChainMiddleware(s.UpdateSettingsHandler(), s.RequireAuth()))

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
	})
}

func (s *Server) handle(method, path string, h http.HandlerFunc) {
	s.router.HandleFunc(path, h).Methods(method)
}
