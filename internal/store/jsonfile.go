package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/birdsays/birdfact-cli/internal/model"
)

// JSONStore keeps the fact database as a single JSON snapshot file,
// rewritten atomically on every Put. This is the default backend: the
// file doubles as the distributable fact database.
type JSONStore struct {
	path string

	mu    sync.Mutex
	facts map[string]model.FactRecord
}

// NewJSON creates a JSON-file store under dir, with the filename
// qualified by the model identifier.
func NewJSON(dir, modelID string) *JSONStore {
	return &JSONStore{
		path:  filepath.Join(dir, "bird_fact_db_"+SanitizeModelID(modelID)+".json"),
		facts: make(map[string]model.FactRecord),
	}
}

// Path returns the snapshot file path.
func (s *JSONStore) Path() string { return s.path }

// Migrate loads the snapshot. A missing file is an empty database.
func (s *JSONStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "jsonstore: read %s", s.path)
	}
	if err := json.Unmarshal(data, &s.facts); err != nil {
		return eris.Wrapf(err, "jsonstore: parse %s", s.path)
	}
	return nil
}

func (s *JSONStore) Contains(ctx context.Context, species string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.facts[species]
	return ok, nil
}

func (s *JSONStore) Get(ctx context.Context, species string) (*model.FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.facts[species]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *JSONStore) Put(ctx context.Context, species string, rec *model.FactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts[species] = *rec
	if err := s.persistLocked(); err != nil {
		delete(s.facts, species)
		return err
	}
	return nil
}

func (s *JSONStore) All(ctx context.Context) (map[string]model.FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.FactRecord, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out, nil
}

func (s *JSONStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts), nil
}

func (s *JSONStore) Close() error { return nil }

// persistLocked writes the snapshot to a temp file and renames it over
// the target, so readers never observe a torn file.
func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "jsonstore: create data dir")
	}

	data, err := json.MarshalIndent(s.facts, "", "  ")
	if err != nil {
		return eris.Wrap(err, "jsonstore: marshal snapshot")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bird_fact_db_*.tmp")
	if err != nil {
		return eris.Wrap(err, "jsonstore: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "jsonstore: write snapshot")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "jsonstore: close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "jsonstore: rename to %s", s.path)
	}
	return nil
}
