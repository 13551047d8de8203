package token

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/token/kv"
	"github.com/jrsteele09/go-sensor-dashboard/users"
	"github.com/rs/zerolog/log"
)

// Well-known keys the session is persisted under.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
)

// Store persists the token pair and the cached user. Reads never fail: a missing or unreadable
// entry is reported as absent.
type Store interface {
	Init() error
	Set(pair Pair) error
	// SetAccess replaces the access token, keeping the stored refresh token.
	SetAccess(access string) error
	Get() (Pair, bool)
	Clear()
	SetUser(user *users.User) error
	GetUser() (*users.User, bool)
	// IsAuthenticated is true iff an access token is stored. Expiry is not checked.
	IsAuthenticated() bool
}

// KVStore implements Store on top of any kv.KeyValueStore.
type KVStore struct {
	kv kv.KeyValueStore
}

var _ Store = (*KVStore)(nil)

func NewStore(backend kv.KeyValueStore) *KVStore {
	return &KVStore{kv: backend}
}

func (s *KVStore) Init() error {
	if err := s.kv.Init(); err != nil {
		return fmt.Errorf("token store init: %w", err)
	}
	return nil
}

func (s *KVStore) Set(pair Pair) error {
	if !pair.Complete() {
		return errors.ErrPartialPair
	}
	if err := s.kv.Set(map[string]string{
		AccessTokenKey:  pair.Access,
		RefreshTokenKey: pair.Refresh,
	}); err != nil {
		return fmt.Errorf("token store set: %w", err)
	}
	return nil
}

func (s *KVStore) SetAccess(access string) error {
	refresh, ok := s.read(RefreshTokenKey)
	if !ok {
		return errors.Wrapf(errors.ErrPartialPair, "token store set access")
	}
	return s.Set(Pair{Access: access, Refresh: refresh})
}

// Get returns the stored pair. A half-present pair is treated as absent and removed.
func (s *KVStore) Get() (Pair, bool) {
	access, hasAccess := s.read(AccessTokenKey)
	refresh, hasRefresh := s.read(RefreshTokenKey)
	if hasAccess && hasRefresh {
		return Pair{Access: access, Refresh: refresh}, true
	}
	if hasAccess || hasRefresh {
		log.Warn().Bool("access", hasAccess).Bool("refresh", hasRefresh).Msg("Token store held a partial pair, clearing it")
		s.Clear()
	}
	return Pair{}, false
}

func (s *KVStore) Clear() {
	if err := s.kv.Del(AccessTokenKey, RefreshTokenKey, UserKey); err != nil {
		log.Err(err).Msg("Failed to clear token store")
	}
}

func (s *KVStore) SetUser(user *users.User) error {
	if user == nil {
		return s.kv.Del(UserKey)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("token store set user: %w", err)
	}
	if err := s.kv.Set(map[string]string{UserKey: string(data)}); err != nil {
		return fmt.Errorf("token store set user: %w", err)
	}
	return nil
}

func (s *KVStore) GetUser() (*users.User, bool) {
	data, ok := s.read(UserKey)
	if !ok {
		return nil, false
	}
	var user users.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		log.Err(err).Msg("Discarding unreadable cached user")
		return nil, false
	}
	return &user, true
}

func (s *KVStore) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

func (s *KVStore) read(key string) (string, bool) {
	value, ok, err := s.kv.Get(key)
	if err != nil {
		log.Err(err).Str("key", key).Msg("Token store read failed")
		return "", false
	}
	return value, ok && value != ""
}
