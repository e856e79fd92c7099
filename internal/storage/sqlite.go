//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"lethe/internal/manifest"
	"lethe/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTrialRecord(ctx context.Context, record model.TrialRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTrialRecord(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO trial_records (domain, condition, seed, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, condition, seed) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.Domain, record.Condition, record.Seed, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetTrialRecord(ctx context.Context, domain, condition string, seed int64) (model.TrialRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.TrialRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM trial_records
		WHERE domain = ? AND condition = ? AND seed = ?
	`, domain, condition, seed).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TrialRecord{}, false, nil
		}
		return model.TrialRecord{}, false, err
	}

	record, err := DecodeTrialRecord(payload)
	if err != nil {
		return model.TrialRecord{}, false, fmt.Errorf("decode trial record %s/%s/%d: %w", domain, condition, seed, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListTrialRecords(ctx context.Context, domain, condition string) ([]model.TrialRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM trial_records
		WHERE domain = ? AND condition = ?
		ORDER BY seed ASC
	`, domain, condition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.TrialRecord, 0, 64)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeTrialRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SaveManifest(ctx context.Context, m manifest.Manifest) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeManifest(m)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO manifests (experiment_id, protocol_hash, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(experiment_id) DO UPDATE SET
			protocol_hash = excluded.protocol_hash,
			payload = excluded.payload
	`, m.ExperimentID, m.ProtocolHash, payload)
	return err
}

func (s *SQLiteStore) GetManifest(ctx context.Context, experimentID string) (manifest.Manifest, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return manifest.Manifest{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM manifests WHERE experiment_id = ?`, experimentID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return manifest.Manifest{}, false, nil
		}
		return manifest.Manifest{}, false, err
	}

	m, err := DecodeManifest(payload)
	if err != nil {
		return manifest.Manifest{}, false, fmt.Errorf("decode manifest %s: %w", experimentID, err)
	}
	return m, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trial_records (
			domain TEXT NOT NULL,
			condition TEXT NOT NULL,
			seed INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (domain, condition, seed)
		);
		CREATE TABLE IF NOT EXISTS manifests (
			experiment_id TEXT PRIMARY KEY,
			protocol_hash TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
