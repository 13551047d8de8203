package main

import (
	"fmt"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/config"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/jrsteele09/go-sensor-dashboard/session"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/kv"
	"github.com/rs/zerolog/log"
)

// app wires the store, client and controllers for one CLI invocation.
type app struct {
	cfg     config.Config
	store   token.Store
	api     *apiclient.Client
	session *session.Controller
	sensors *sensors.Service
	closers []func() error
}

func newApp(c config.Config, apiURL string) (*app, error) {
	a := &app{cfg: c}

	backend, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	a.store = token.NewStore(backend)
	if err := a.store.Init(); err != nil {
		a.close()
		return nil, fmt.Errorf("token store init: %w", err)
	}

	a.api = apiclient.New(apiURL, a.store, apiclient.WithTimeout(c.GetRequestTimeout()))
	a.session = session.New(a.api)
	a.sensors = sensors.NewService(a.api)
	return a, nil
}

func (a *app) openBackend() (kv.KeyValueStore, error) {
	switch a.cfg.GetStoreBackend() {
	case config.StoreBackendMemory:
		log.Warn().Msg("Using in-memory token store, the session ends with this process")
		return kv.NewMemory(), nil
	case config.StoreBackendRedis:
		r := kv.NewRedis(a.cfg.GetRedisAddr(), a.cfg.GetRedisPassword(), a.cfg.GetRedisPrefix())
		a.closers = append(a.closers, r.Close)
		return r, nil
	default:
		f := kv.NewFile(a.cfg.GetDataFolder())
		log.Debug().Str("path", f.Path()).Msg("Using file token store")
		return f, nil
	}
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Err(err).Msg("Failed to close token store backend")
		}
	}
}
