package config

import (
	"strings"
	"time"
)

const (
	apiURLEnvVar         = "SENSORDASH_API_URL"
	requestTimeoutEnvVar = "REQUEST_TIMEOUT"
	pollIntervalEnvVar   = "POLL_INTERVAL"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = 5 * time.Second
)

type API struct{}

var _ APIConfig = API{}

// GetAPIURL returns the backend base URL without a trailing slash (e.g. "http://localhost:8000")
func (API) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLEnvVar, "http://localhost:8000"), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutEnvVar, defaultRequestTimeout)
}

func (API) GetPollInterval() time.Duration {
	return GetDuration(pollIntervalEnvVar, defaultPollInterval)
}

// GetDuration parses envVar as a time.Duration, falling back on a missing, malformed or non-positive value.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
