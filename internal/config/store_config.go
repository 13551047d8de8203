package config

import "strings"

// StoreBackend selects where the token store persists its keys.
type StoreBackend string

const (
	StoreBackendFile   StoreBackend = "file"
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendRedis  StoreBackend = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() StoreBackend {
	switch b := StoreBackend(strings.ToLower(GetEnv("STORE_BACKEND", string(StoreBackendFile)))); b {
	case StoreBackendMemory, StoreBackendRedis:
		return b
	default:
		return StoreBackendFile
	}
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "sensordash:")
}
