package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const sessionFileName = "session.json"

// File keeps all keys in a single JSON document under the data folder, so a
// session survives process restarts. Every read goes to disk.
type File struct {
	path string
	lock sync.Mutex
}

var _ KeyValueStore = (*File)(nil)

func NewFile(folder string) *File {
	return &File{path: filepath.Join(folder, sessionFileName)}
}

func (f *File) Path() string { return f.path }

func (f *File) Init() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("kv file: create folder: %w", err)
	}
	return nil
}

func (f *File) Get(key string) (string, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *File) Set(values map[string]string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	current, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return f.save(current)
}

func (f *File) Del(keys ...string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	current, err := f.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("kv file: remove: %w", err)
		}
		return nil
	}
	return f.save(current)
}

func (f *File) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv file: read: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("kv file: decode %s: %w", f.path, err)
	}
	return values, nil
}

// save writes to a temp file and renames it over the target so readers never see a partial document.
func (f *File) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("kv file: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("kv file: create folder: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), sessionFileName+".*")
	if err != nil {
		return fmt.Errorf("kv file: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("kv file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv file: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("kv file: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("kv file: rename: %w", err)
	}
	return nil
}
