package config

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Store holds the live Settings snapshot. Readers poll Version to detect
// changes; nothing is pushed to them.
type Store struct {
	mu       sync.RWMutex
	settings Settings
	version  uint64

	path    string
	modTime time.Time
}

// NewStore creates a store seeded with s. If path is non-empty, Reload
// re-reads that file when its modification time changes.
func NewStore(s Settings, path string) *Store {
	st := &Store{settings: s, version: 1, path: path}
	if path != "" {
		if info, err := os.Stat(path); err == nil {
			st.modTime = info.ModTime()
		}
	}
	return st
}

// Get returns the current settings and their version.
func (s *Store) Get() (Settings, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.version
}

// Version returns the current settings version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the settings and bumps the version.
func (s *Store) Set(next Settings) {
	s.mu.Lock()
	s.settings = next
	s.version++
	s.mu.Unlock()
}

// Update applies fn to a copy of the current settings and stores the result.
func (s *Store) Update(fn func(*Settings)) {
	s.mu.Lock()
	next := s.settings
	fn(&next)
	s.settings = next
	s.version++
	s.mu.Unlock()
}

// Reload re-reads the backing file if it changed since the last load.
// Returns true when new settings were stored.
func (s *Store) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat settings file: %w", err)
	}

	s.mu.RLock()
	unchanged := info.ModTime().Equal(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	cfg, err := Load(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.settings = cfg.Settings
	s.modTime = info.ModTime()
	s.version++
	s.mu.Unlock()
	return true, nil
}
