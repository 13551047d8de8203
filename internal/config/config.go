package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type APIConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetPollInterval() time.Duration
}

type StoreConfig interface {
	GetStoreBackend() StoreBackend
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
}

type mainConfig struct {
	EnvVars
	API
	Store
}

func New() Config {
	return mainConfig{}
}
