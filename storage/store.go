// Package storage persists the core's durable state in SQLite: provider
// trust records and the model capability cache that lets a restarted
// process skip re-fetching provider model lists.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/models"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trust_records (
			name TEXT PRIMARY KEY,
			trusted BOOLEAN NOT NULL,
			decided_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS model_capabilities (
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			capabilities INTEGER NOT NULL,
			default_for INTEGER NOT NULL DEFAULT 0,
			discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider, model)
		)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// Trusted implements registry.TrustStore.
func (s *Store) Trusted(name string) (bool, bool, error) {
	var trusted bool
	err := s.db.QueryRow(
		`SELECT trusted FROM trust_records WHERE name = ?`, name,
	).Scan(&trusted)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("reading trust record: %w", err)
	}
	return trusted, true, nil
}

// SetTrusted implements registry.TrustStore.
func (s *Store) SetTrusted(name string, trusted bool) error {
	_, err := s.db.Exec(
		`INSERT INTO trust_records (name, trusted, decided_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET trusted = excluded.trusted, decided_at = excluded.decided_at`,
		name, trusted, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing trust record: %w", err)
	}
	return nil
}

// SaveCapabilities caches a model's capability registration.
func (s *Store) SaveCapabilities(provider, model string, caps, defaultFor capability.Capability) error {
	_, err := s.db.Exec(
		`INSERT INTO model_capabilities (provider, model, capabilities, default_for, discovered_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(provider, model) DO UPDATE SET
		   capabilities = excluded.capabilities,
		   default_for = excluded.default_for,
		   discovered_at = excluded.discovered_at`,
		provider, model, int64(caps), int64(defaultFor), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching capabilities for %s/%s: %w", provider, model, err)
	}
	return nil
}

// LoadCapabilities replays a provider's cached registrations into the
// manager, in the order they were discovered, so the provider's own
// initialization sees HasProviderCapabilities and skips the network call.
// It reports how many models were loaded.
func (s *Store) LoadCapabilities(provider string, mgr *models.Manager) (int, error) {
	rows, err := s.db.Query(
		`SELECT model, capabilities, default_for FROM model_capabilities
		 WHERE provider = ? ORDER BY rowid`, provider,
	)
	if err != nil {
		return 0, fmt.Errorf("loading capability cache for %s: %w", provider, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var model string
		var caps, defaultFor int64
		if err := rows.Scan(&model, &caps, &defaultFor); err != nil {
			return count, fmt.Errorf("scanning capability cache row: %w", err)
		}
		mgr.RegisterCapabilities(provider, model,
			capability.Capability(caps), capability.Capability(defaultFor))
		count++
	}
	return count, rows.Err()
}

// SnapshotCapabilities writes a provider's current registrations to the
// cache, defaults included.
func (s *Store) SnapshotCapabilities(provider string, mgr *models.Manager) error {
	for _, model := range mgr.Models(provider) {
		caps := mgr.RetrieveCapabilities(provider, model)
		defaultFor := mgr.DefaultFor(provider, model)
		if err := s.SaveCapabilities(provider, model, caps, defaultFor); err != nil {
			return err
		}
	}
	return nil
}
