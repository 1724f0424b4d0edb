package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/birdsays/birdfact-cli/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool, for deployments where
// several tools read the fact database concurrently.
type PostgresStore struct {
	pool    pgPool
	modelID string
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString, modelID string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, modelID: SanitizeModelID(modelID)}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS facts (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	species    TEXT NOT NULL,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (model, species)
);

CREATE INDEX IF NOT EXISTS idx_facts_model ON facts(model);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Contains(ctx context.Context, species string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM facts WHERE model = $1 AND species = $2`,
		s.modelID, species,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: contains %s", species)
	}
	return true, nil
}

func (s *PostgresStore) Get(ctx context.Context, species string) (*model.FactRecord, error) {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM facts WHERE model = $1 AND species = $2`,
		s.modelID, species,
	).Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", species)
	}

	var rec model.FactRecord
	if err := json.Unmarshal(recordJSON, &rec); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal record for %s", species)
	}
	return &rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, species string, rec *model.FactRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO facts (id, model, species, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (model, species) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		uuid.New().String(), s.modelID, species, recordJSON,
	)
	return eris.Wrapf(err, "postgres: put %s", species)
}

func (s *PostgresStore) All(ctx context.Context) (map[string]model.FactRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT species, record FROM facts WHERE model = $1`,
		s.modelID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all facts")
	}
	defer rows.Close()

	facts := make(map[string]model.FactRecord)
	for rows.Next() {
		var species string
		var recordJSON []byte
		if err := rows.Scan(&species, &recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact")
		}
		var rec model.FactRecord
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal record for %s", species)
		}
		facts[species] = rec
	}
	return facts, eris.Wrap(rows.Err(), "postgres: iterate facts")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM facts WHERE model = $1`,
		s.modelID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count facts")
}
