package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/birdsays/birdfact-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Useful when the
// fact database is queried in place (the serve command) rather than
// shipped around as a JSON file.
type SQLiteStore struct {
	db      *sql.DB
	modelID string
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn, modelID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, modelID: SanitizeModelID(modelID)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS facts (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	species    TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (model, species)
);

CREATE INDEX IF NOT EXISTS idx_facts_model ON facts(model);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Contains(ctx context.Context, species string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM facts WHERE model = ? AND species = ?`,
		s.modelID, species,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: contains %s", species)
	}
	return true, nil
}

func (s *SQLiteStore) Get(ctx context.Context, species string) (*model.FactRecord, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM facts WHERE model = ? AND species = ?`,
		s.modelID, species,
	).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", species)
	}

	var rec model.FactRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal record for %s", species)
	}
	return &rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, species string, rec *model.FactRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO facts (id, model, species, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (model, species) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		uuid.New().String(), s.modelID, species, string(recordJSON), now, now,
	)
	return eris.Wrapf(err, "sqlite: put %s", species)
}

func (s *SQLiteStore) All(ctx context.Context) (map[string]model.FactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT species, record FROM facts WHERE model = ?`,
		s.modelID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: all facts")
	}
	defer rows.Close()

	facts := make(map[string]model.FactRecord)
	for rows.Next() {
		var species, recordJSON string
		if err := rows.Scan(&species, &recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact")
		}
		var rec model.FactRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal record for %s", species)
		}
		facts[species] = rec
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: iterate facts")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM facts WHERE model = ?`,
		s.modelID,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count facts")
}
