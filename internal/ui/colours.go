package ui

import (
	"fmt"

	"github.com/jrsteele09/go-sensor-dashboard/sensors"
)

const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	RedInverse = "\033[7;31m"

	ResetColor = "\033[0m" // Reset to default color
)

// MethodColors colours HTTP methods in route logs.
var MethodColors = map[string]string{
	"GET":   Green,
	"POST":  Blue,
	"PUT":   Cyan,
	"PATCH": Yellow,
}

var airQualityColors = map[sensors.AirQualityLevel]string{
	sensors.AirQualityGood:      Green,
	sensors.AirQualityModerate:  Yellow,
	sensors.AirQualityPoor:      Red,
	sensors.AirQualityDangerous: RedInverse,
}

// Enabled turns colouring on or off for every helper in this package.
var Enabled = true

// Colorize wraps s in the colour code when colouring is enabled.
func Colorize(color, s string) string {
	if !Enabled || color == "" {
		return s
	}
	return color + s + ResetColor
}

// AirQuality renders an air quality value coloured by its level.
func AirQuality(value float64) string {
	level := sensors.ClassifyAirQuality(value)
	return Colorize(airQualityColors[level], fmt.Sprintf("%.0f (%s)", value, level))
}

// Temperature renders a temperature, highlighting extremes.
func Temperature(r sensors.Reading) string {
	text := fmt.Sprintf("%.1f°C", r.Temperature)
	if r.TemperatureExtreme() {
		return Colorize(Red, text)
	}
	return text
}

// Method pads and colours an HTTP method for route listings.
func Method(method string) string {
	padded := fmt.Sprintf(" %-7s", method)
	if color, ok := MethodColors[method]; ok {
		return Colorize(color, padded)
	}
	return Colorize(Gray, padded)
}
