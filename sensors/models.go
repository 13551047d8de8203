package sensors

import (
	"encoding/json"
	"time"
)

const (
	// DangerousAirQuality is the reading above which air quality is flagged as dangerous.
	DangerousAirQuality = 500.0
	// ExtremeTemperatureLow and ExtremeTemperatureHigh bound the normal temperature range in °C.
	ExtremeTemperatureLow  = 0.0
	ExtremeTemperatureHigh = 40.0
)

// Reading is one environmental measurement from a device. Readings are never
// modified after they are decoded.
type Reading struct {
	ID             int64           `json:"id"`
	Device         string          `json:"device"`
	DeviceName     string          `json:"device_name,omitempty"`
	DeviceLocation string          `json:"device_location,omitempty"`
	Temperature    float64         `json:"temperature"`
	Humidity       float64         `json:"humidity"`
	AirQuality     float64         `json:"air_quality"`
	UVIndex        *float64        `json:"uv_index"`
	LightLevel     *float64        `json:"light_level"`
	Timestamp      time.Time       `json:"timestamp"`
	RawData        json.RawMessage `json:"raw_data,omitempty"`
}

// TemperatureExtreme reports a temperature outside the normal operating range.
func (r Reading) TemperatureExtreme() bool {
	return r.Temperature < ExtremeTemperatureLow || r.Temperature > ExtremeTemperatureHigh
}

func (r Reading) AirQualityLevel() AirQualityLevel {
	return ClassifyAirQuality(r.AirQuality)
}

// AirQualityLevel buckets an air quality value for presentation.
type AirQualityLevel int

const (
	AirQualityGood AirQualityLevel = iota
	AirQualityModerate
	AirQualityPoor
	AirQualityDangerous
)

func ClassifyAirQuality(value float64) AirQualityLevel {
	switch {
	case value > DangerousAirQuality:
		return AirQualityDangerous
	case value > 300:
		return AirQualityPoor
	case value > 100:
		return AirQualityModerate
	default:
		return AirQualityGood
	}
}

func (l AirQualityLevel) String() string {
	switch l {
	case AirQualityGood:
		return "good"
	case AirQualityModerate:
		return "moderate"
	case AirQualityPoor:
		return "poor"
	case AirQualityDangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

// DeviceStats aggregates one device's readings over the last day.
type DeviceStats struct {
	DeviceID        string     `json:"device_id"`
	DeviceName      string     `json:"device_name"`
	TotalRecords    int        `json:"total_records"`
	LatestTimestamp *time.Time `json:"latest_timestamp"`
	AvgTemperature  *float64   `json:"avg_temperature"`
	AvgHumidity     *float64   `json:"avg_humidity"`
	AvgAirQuality   *float64   `json:"avg_air_quality"`
	ActiveAlerts    int        `json:"active_alerts"`
}

// Summary is the dashboard overview.
type Summary struct {
	Totals         SummaryTotals   `json:"summary"`
	LatestReadings []LatestReading `json:"latest_readings"`
}

type SummaryTotals struct {
	TotalDevices      int `json:"total_devices"`
	ActiveDevices     int `json:"active_devices"`
	RecentDataCount   int `json:"recent_data_count"`
	ActiveAlertsCount int `json:"active_alerts_count"`
}

// LatestReading is the trimmed reading embedded in a Summary.
type LatestReading struct {
	DeviceName     string    `json:"device_name"`
	DeviceLocation string    `json:"device_location"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	AirQuality     float64   `json:"air_quality"`
	Timestamp      time.Time `json:"timestamp"`
}

// Alert statuses
const (
	AlertActive   = "active"
	AlertResolved = "resolved"
	AlertIgnored  = "ignored"
)

// Alert is a threshold breach raised by the backend.
type Alert struct {
	ID               int64      `json:"id"`
	Device           string     `json:"device"`
	DeviceName       string     `json:"device_name"`
	AlertType        string     `json:"alert_type"`
	AlertTypeDisplay string     `json:"alert_type_display"`
	ThresholdValue   float64    `json:"threshold_value"`
	CurrentValue     float64    `json:"current_value"`
	Status           string     `json:"status"`
	StatusDisplay    string     `json:"status_display"`
	Message          string     `json:"message"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at"`
}

func (a Alert) Active() bool {
	return a.Status == AlertActive
}

// Health is the unauthenticated liveness response.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Version   string    `json:"version"`
}

// Device is a sensor box owned by the logged in user. Its API key is never
// returned by the backend.
type Device struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	IsActive      bool      `json:"is_active"`
	Owner         int64     `json:"owner,omitempty"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Settings are the per-user alert thresholds. A user has at most one row;
// ID is zero until it has been saved.
type Settings struct {
	ID                    int64     `json:"id,omitempty"`
	User                  int64     `json:"user,omitempty"`
	Username              string    `json:"username,omitempty"`
	TempHighThreshold     float64   `json:"temp_high_threshold" validate:"gtfield=TempLowThreshold"`
	TempLowThreshold      float64   `json:"temp_low_threshold" validate:"gte=-50"`
	HumidityHighThreshold float64   `json:"humidity_high_threshold" validate:"lte=100,gtfield=HumidityLowThreshold"`
	HumidityLowThreshold  float64   `json:"humidity_low_threshold" validate:"gte=0"`
	AirQualityThreshold   float64   `json:"air_quality_threshold" validate:"gt=0"`
	EmailNotifications    bool      `json:"email_notifications"`
	PushNotifications     bool      `json:"push_notifications"`
	CreatedAt             time.Time `json:"created_at,omitzero"`
	UpdatedAt             time.Time `json:"updated_at,omitzero"`
}

// DefaultSettings are the thresholds in force before a user saves their own.
func DefaultSettings() Settings {
	return Settings{
		TempHighThreshold:     35,
		TempLowThreshold:      5,
		HumidityHighThreshold: 80,
		HumidityLowThreshold:  20,
		AirQualityThreshold:   DangerousAirQuality,
		EmailNotifications:    true,
		PushNotifications:     true,
	}
}
