package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/internal/metrics"
	"github.com/jrsteele09/go-sensor-dashboard/poller"
	"github.com/jrsteele09/go-sensor-dashboard/session"
	"github.com/rs/zerolog/log"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":    loginCmd,
	"register": registerCmd,
	"logout":   logoutCmd,
	"whoami":   whoamiCmd,
	"health":   healthCmd,
	"latest":   latestCmd,
	"summary":  summaryCmd,
	"stats":    statsCmd,
	"alerts":   alertsCmd,
	"resolve":  resolveCmd,
	"history":  historyCmd,
	"devices":  devicesCmd,
	"settings": settingsCmd,
	"watch":    watchCmd,
}

const passwordEnvVar = "SENSORDASH_PASSWORD"

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (default $"+passwordEnvVar+" or prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.session.Login(ctx, *username, readPassword(*password))
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (id %d)\n", result.User.DisplayName(), result.User.ID)
	return nil
}

func registerCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password (default $"+passwordEnvVar+" or prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.session.Register(ctx, *username, *email, readPassword(*password))
	if err != nil {
		return err
	}
	if a.session.State() == session.Authenticated {
		fmt.Printf("Registered and logged in as %s (id %d)\n", result.User.DisplayName(), result.User.ID)
		return nil
	}
	fmt.Printf("Registered %s, log in to continue\n", result.User.DisplayName())
	return nil
}

func logoutCmd(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Println("Logged out")
	return nil
}

func whoamiCmd(ctx context.Context, a *app, _ []string) error {
	if a.session.State() != session.Authenticated {
		fmt.Println(pleaseLogIn)
		return nil
	}
	user, err := a.session.Profile(ctx)
	if err != nil {
		cached, ok := a.session.User()
		if !ok {
			return err
		}
		log.Warn().Err(err).Msg("Profile unavailable, showing cached user")
		user = cached
	}
	renderUser(os.Stdout, user)
	return nil
}

func healthCmd(ctx context.Context, a *app, _ []string) error {
	health, err := a.sensors.Health(ctx)
	if err != nil {
		return err
	}
	renderHealth(os.Stdout, health)
	return nil
}

func latestCmd(ctx context.Context, a *app, _ []string) error {
	readings, err := a.sensors.Latest(ctx)
	if err != nil {
		return authHint(err)
	}
	renderReadings(os.Stdout, readings)
	return nil
}

func summaryCmd(ctx context.Context, a *app, _ []string) error {
	summary, err := a.sensors.Summary(ctx)
	if err != nil {
		return authHint(err)
	}
	renderSummary(os.Stdout, summary)
	return nil
}

func statsCmd(ctx context.Context, a *app, _ []string) error {
	stats, err := a.sensors.Statistics(ctx)
	if err != nil {
		return authHint(err)
	}
	renderStats(os.Stdout, stats)
	return nil
}

func alertsCmd(ctx context.Context, a *app, _ []string) error {
	alerts, err := a.sensors.ActiveAlerts(ctx)
	if err != nil {
		return authHint(err)
	}
	renderAlerts(os.Stdout, alerts)
	return nil
}

func resolveCmd(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("resolve takes exactly one alert id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid alert id %q", args[0])
	}
	alert, err := a.sensors.ResolveAlert(ctx, id)
	if err != nil {
		return authHint(err)
	}
	fmt.Printf("Alert %d is now %s\n", alert.ID, alert.Status)
	return nil
}

func historyCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	device := fs.String("device", "", "device id")
	hours := fs.Int("hours", 24, "look back this many hours (0 for everything)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	readings, err := a.sensors.History(ctx, *device, *hours)
	if err != nil {
		return authHint(err)
	}
	renderReadings(os.Stdout, readings)
	return nil
}

func devicesCmd(ctx context.Context, a *app, _ []string) error {
	devices, err := a.sensors.Devices(ctx)
	if err != nil {
		return authHint(err)
	}
	renderDevices(os.Stdout, devices)
	return nil
}

// settingsCmd shows the alert thresholds, saving first when any flag is given.
func settingsCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	tempHigh := fs.Float64("temp-high", 0, "high temperature threshold (°C)")
	tempLow := fs.Float64("temp-low", 0, "low temperature threshold (°C)")
	humHigh := fs.Float64("humidity-high", 0, "high humidity threshold (%)")
	humLow := fs.Float64("humidity-low", 0, "low humidity threshold (%)")
	air := fs.Float64("air", 0, "air quality threshold")
	email := fs.Bool("email", true, "email notifications")
	push := fs.Bool("push", true, "push notifications")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := a.sensors.Settings(ctx)
	if err != nil {
		return authHint(err)
	}

	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "temp-high":
			settings.TempHighThreshold = *tempHigh
		case "temp-low":
			settings.TempLowThreshold = *tempLow
		case "humidity-high":
			settings.HumidityHighThreshold = *humHigh
		case "humidity-low":
			settings.HumidityLowThreshold = *humLow
		case "air":
			settings.AirQualityThreshold = *air
		case "email":
			settings.EmailNotifications = *email
		case "push":
			settings.PushNotifications = *push
		}
	})
	if changed {
		if settings, err = a.sensors.UpdateSettings(ctx, *settings); err != nil {
			return authHint(err)
		}
		fmt.Println("Settings saved")
	}
	renderSettings(os.Stdout, settings)
	return nil
}

func watchCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", a.cfg.GetPollInterval(), "poll interval")
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9100")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Str("addr", *metricsAddr).Msg("Metrics server stopped")
			}
		}()
		defer srv.Close()
		log.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
	}

	displayAppname(a.cfg.GetAppName())

	p := poller.New(a.sensors,
		poller.WithInterval(*interval),
		poller.WithAuthenticated(a.session.State() == session.Authenticated),
	)
	unwatch := a.session.OnChange(func(s session.State) {
		p.SetAuthenticated(s == session.Authenticated)
	})
	defer unwatch()
	unsubscribe := p.Subscribe(func(u poller.Update) {
		renderUpdate(os.Stdout, u)
	})
	defer unsubscribe()

	if a.session.State() != session.Authenticated {
		fmt.Println(pleaseLogIn)
		return nil
	}

	p.SetRealtime(ctx, true)
	<-ctx.Done()
	p.Stop()
	fmt.Println()
	return nil
}

// readPassword falls back to the environment, then to a line from stdin.
func readPassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(passwordEnvVar); env != "" {
		return env
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
