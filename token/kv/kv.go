package kv

// KeyValueStore is the persistence behind the token store. Set writes all
// given keys atomically so a token pair is never stored half-written.
type KeyValueStore interface {
	// Init prepares the backend (create folders, check connectivity)
	Init() error
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)
	// Set stores every key/value pair in one operation, without expiry
	Set(values map[string]string) error
	// Del removes the keys; missing keys are not an error
	Del(keys ...string) error
}
