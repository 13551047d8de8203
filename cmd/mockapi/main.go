package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-sensor-dashboard/internal/config"
	"github.com/jrsteele09/go-sensor-dashboard/internal/fakeapi"
	"github.com/jrsteele09/go-sensor-dashboard/schedule"
)

const (
	secretEnvVar       = "MOCKAPI_SECRET"
	demoUserEnvVar     = "MOCKAPI_USER"
	demoPasswordEnvVar = "MOCKAPI_PASSWORD"
)

func main() {
	_ = godotenv.Load()
	for {
		if err := run(); err != nil {
			log.Printf("Error running mock API: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Mock API stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName() + " API")

	api := fakeapi.New(fakeapi.WithSecret(config.GetEnv(secretEnvVar, "sensordash-dev-secret")))
	username := config.GetEnv(demoUserEnvVar, "demo")
	if _, err := api.CreateUser(username, username+"@example.com", config.GetEnv(demoPasswordEnvVar, "demo")); err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	api.Seed()
	if c.GetEnv() == "DEV" {
		api.LogRoutes()
	}

	cleanup := schedule.New().Every(time.Minute, func() {
		if n := api.CleanupRevoked(); n > 0 {
			log.Printf("Dropped %d expired blacklist entries\n", n)
		}
	})
	defer cleanup.Stop()

	server := &http.Server{Addr: c.GetPort(), Handler: api.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Printf("Mock API listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
