package token

import (
	"sync"
	"time"
)

// Blacklist records revoked refresh tokens by jti until their natural expiry,
// after which they would be rejected anyway and can be dropped.
type Blacklist interface {
	Add(jti string, exp time.Time)
	IsRevoked(jti string) bool
	Cleanup() int
}

type InMemoryBlacklist struct {
	revoked map[string]time.Time
	nowFunc func() time.Time
	mu      sync.RWMutex
}

var _ Blacklist = (*InMemoryBlacklist)(nil)

func NewInMemoryBlacklist(nowFunc func() time.Time) *InMemoryBlacklist {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &InMemoryBlacklist{
		revoked: make(map[string]time.Time),
		nowFunc: nowFunc,
	}
}

func (b *InMemoryBlacklist) Add(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = exp
}

func (b *InMemoryBlacklist) IsRevoked(jti string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.revoked[jti]
	return exists
}

// Cleanup drops expired entries and returns how many were removed.
func (b *InMemoryBlacklist) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowFunc()
	removed := 0
	for jti, exp := range b.revoked {
		if now.After(exp) {
			delete(b.revoked, jti)
			removed++
		}
	}
	return removed
}
