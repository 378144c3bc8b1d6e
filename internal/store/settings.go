package store

import (
	"database/sql"
	"fmt"
	"time"
)

// visibilityKeyPrefix namespaces per-source visibility overrides within the
// settings table.
const visibilityKeyPrefix = "source_visible:"

// SettingsStore is the persisted single-value store: the daily reset marker
// and per-source visibility overrides live here. Single writer per key, so
// atomic row replace is all the discipline needed.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SourceVisibility returns the persisted visibility override for a source,
// or ok=false when the source has never been toggled.
func (s *SettingsStore) SourceVisibility(sourceID string) (visible, ok bool) {
	v, err := s.Get(visibilityKeyPrefix + sourceID)
	if err != nil {
		return false, false
	}
	return v == "true", true
}

// SetSourceVisibility persists a visibility override for a source.
func (s *SettingsStore) SetSourceVisibility(sourceID string, visible bool) error {
	v := "false"
	if visible {
		v = "true"
	}
	return s.Set(visibilityKeyPrefix+sourceID, v)
}
