package kv

import "sync"

type Memory struct {
	values map[string]string
	lock   sync.RWMutex
}

var _ KeyValueStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Init() error { return nil }

func (m *Memory) Get(key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(values map[string]string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *Memory) Del(keys ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
