package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/internal/ui"
	"github.com/jrsteele09/go-sensor-dashboard/internal/utils"
	"github.com/jrsteele09/go-sensor-dashboard/poller"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/jrsteele09/go-sensor-dashboard/users"
)

const (
	pleaseLogIn = "Please log in: sensordash login -u <username>"
	timeLayout  = "2006-01-02 15:04:05"
)

// authHint adds the login prompt to authentication failures.
func authHint(err error) error {
	if errors.IsAuth(err) {
		return fmt.Errorf("%w\n%s", err, pleaseLogIn)
	}
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderUser(w io.Writer, u *users.User) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", u.ID)
	fmt.Fprintf(tw, "username\t%s\n", u.Username)
	fmt.Fprintf(tw, "email\t%s\n", utils.FirstNonEmpty(u.Email, "-"))
	if !u.DateJoined.IsZero() {
		fmt.Fprintf(tw, "joined\t%s\n", u.DateJoined.Local().Format(timeLayout))
	}
	_ = tw.Flush()
}

func renderHealth(w io.Writer, h *sensors.Health) {
	status := ui.Colorize(ui.Green, h.Status)
	if h.Status != "healthy" {
		status = ui.Colorize(ui.Red, h.Status)
	}
	fmt.Fprintf(w, "%s  version %s  %s\n%s\n", status, h.Version, h.Timestamp.Local().Format(timeLayout), h.Message)
}

func renderReadings(w io.Writer, readings []sensors.Reading) {
	if len(readings) == 0 {
		fmt.Fprintln(w, "No readings")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DEVICE\tLOCATION\tTEMP\tHUMIDITY\tAIR QUALITY\tUV\tLIGHT\tTIME")
	for _, r := range readings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\t%s\t%s\t%s\n",
			utils.FirstNonEmpty(r.DeviceName, r.Device),
			utils.FirstNonEmpty(r.DeviceLocation, "-"),
			ui.Temperature(r),
			r.Humidity,
			ui.AirQuality(r.AirQuality),
			utils.FormatFloat(r.UVIndex, 1),
			utils.FormatFloat(r.LightLevel, 0),
			r.Timestamp.Local().Format(timeLayout),
		)
	}
	_ = tw.Flush()
}

func renderSummary(w io.Writer, s *sensors.Summary) {
	fmt.Fprintf(w, "Devices %d (%d active)  Readings in 24h %d  Active alerts %s\n\n",
		s.Totals.TotalDevices, s.Totals.ActiveDevices, s.Totals.RecentDataCount, alertCount(s.Totals.ActiveAlertsCount))
	if len(s.LatestReadings) == 0 {
		fmt.Fprintln(w, "No readings")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DEVICE\tLOCATION\tTEMP\tHUMIDITY\tAIR QUALITY\tTIME")
	for _, r := range s.LatestReadings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
			r.DeviceName, r.DeviceLocation,
			ui.Temperature(sensors.Reading{Temperature: r.Temperature}),
			r.Humidity, ui.AirQuality(r.AirQuality),
			r.Timestamp.Local().Format(timeLayout),
		)
	}
	_ = tw.Flush()
}

func renderStats(w io.Writer, stats []sensors.DeviceStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No statistics")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DEVICE\tRECORDS\tAVG TEMP\tAVG HUMIDITY\tAVG AIR\tALERTS\tLATEST")
	for _, s := range stats {
		latest := "-"
		if s.LatestTimestamp != nil {
			latest = s.LatestTimestamp.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.DeviceName, s.TotalRecords,
			utils.FormatFloat(s.AvgTemperature, 1),
			utils.FormatFloat(s.AvgHumidity, 1),
			utils.FormatFloat(s.AvgAirQuality, 0),
			alertCount(s.ActiveAlerts), latest,
		)
	}
	_ = tw.Flush()
}

func renderAlerts(w io.Writer, alerts []sensors.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, ui.Colorize(ui.Green, "No active alerts"))
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDEVICE\tTYPE\tVALUE\tTHRESHOLD\tRAISED\tMESSAGE")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%s\t%s\n",
			a.ID, a.DeviceName,
			ui.Colorize(ui.Red, utils.FirstNonEmpty(a.AlertTypeDisplay, a.AlertType)),
			a.CurrentValue, a.ThresholdValue,
			a.CreatedAt.Local().Format(timeLayout), a.Message,
		)
	}
	_ = tw.Flush()
}

func renderDevices(w io.Writer, devices []sensors.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSTATUS\tADDED")
	for _, d := range devices {
		status := ui.Colorize(ui.Green, "active")
		if !d.IsActive {
			status = ui.Colorize(ui.Gray, "inactive")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, utils.FirstNonEmpty(d.Location, "-"), status,
			d.CreatedAt.Local().Format(timeLayout),
		)
	}
	_ = tw.Flush()
}

func renderSettings(w io.Writer, s *sensors.Settings) {
	tw := newTable(w)
	if s.ID == 0 {
		fmt.Fprintln(tw, ui.Colorize(ui.Gray, "defaults, not saved yet"))
	}
	fmt.Fprintf(tw, "temperature\t%.1f°C to %.1f°C\n", s.TempLowThreshold, s.TempHighThreshold)
	fmt.Fprintf(tw, "humidity\t%.0f%% to %.0f%%\n", s.HumidityLowThreshold, s.HumidityHighThreshold)
	fmt.Fprintf(tw, "air quality\tbelow %.0f\n", s.AirQualityThreshold)
	fmt.Fprintf(tw, "email\t%t\n", s.EmailNotifications)
	fmt.Fprintf(tw, "push\t%t\n", s.PushNotifications)
	_ = tw.Flush()
}

// renderUpdate redraws the watch screen for one poller update.
func renderUpdate(w io.Writer, u poller.Update) {
	switch u.Status {
	case poller.StatusRequiresLogin:
		fmt.Fprintln(w, ui.Colorize(ui.Yellow, pleaseLogIn))
		return
	case poller.StatusIdle:
		fmt.Fprintln(w, ui.Colorize(ui.Gray, "Realtime updates paused"))
		return
	}
	if u.FetchedAt.IsZero() {
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.Colorize(ui.Cyan, "Updated "+u.FetchedAt.Local().Format(time.TimeOnly)))
	renderReadings(w, u.Readings)
}

func alertCount(n int) string {
	if n == 0 {
		return "0"
	}
	return ui.Colorize(ui.Red, fmt.Sprint(n))
}
