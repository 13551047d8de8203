package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-sensor-dashboard/internal/config"
	"github.com/jrsteele09/go-sensor-dashboard/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: sensordash [-api url] [-no-color] <command> [flags]

commands:
  login     -u user [-p password]   log in and store the session
  register  -u user -e email [-p password]
  logout                           invalidate the refresh token and clear the session
  whoami                           show the logged in user
  health                           check the backend is up
  latest                           newest reading of every device
  summary                          dashboard overview
  stats                            per device statistics
  alerts                           active alerts
  resolve   <alert id>             resolve an alert
  history   [-device id] [-hours n]
  devices                          list your devices and their ids
  settings  [-temp-high n] [-temp-low n] [-humidity-high n] [-humidity-low n] [-air n] [-email=bool] [-push=bool]
  watch     [-interval 5s] [-metrics :9100]   poll the latest readings until interrupted
`

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, ui.Colorize(ui.Red, "error: "+err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	c := config.New()

	global := flag.NewFlagSet("sensordash", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	apiURL := global.String("api", c.GetAPIURL(), "backend base URL")
	noColor := global.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable ANSI colours")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}
	ui.Enabled = !*noColor
	configureLogging(c)

	cmd, ok := commands[global.Arg(0)]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", global.Arg(0))
	}

	a, err := newApp(c, *apiURL)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd(ctx, a, global.Args()[1:])
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !ui.Enabled})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
