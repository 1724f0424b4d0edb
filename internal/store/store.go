// Package store persists accepted fun facts. Every backend qualifies its
// data by model identifier, so facts generated by different model
// configurations never collide, and every Put is durable before it
// returns: a crash mid-run loses at most the in-flight species.
package store

import (
	"context"
	"strings"

	"github.com/birdsays/birdfact-cli/internal/model"
)

// Store is the durable mapping from species name to accepted fact.
type Store interface {
	// Migrate prepares the backend (creates tables, loads snapshots).
	Migrate(ctx context.Context) error

	// Contains reports whether the species already has a fact. The batch
	// loop checks this before running the pipeline, which is what makes
	// re-runs resumable.
	Contains(ctx context.Context, species string) (bool, error)

	// Get returns the stored fact, or nil when absent.
	Get(ctx context.Context, species string) (*model.FactRecord, error)

	// Put stores the fact and persists it before returning.
	Put(ctx context.Context, species string, rec *model.FactRecord) error

	// All returns every stored fact keyed by species.
	All(ctx context.Context) (map[string]model.FactRecord, error)

	// Count returns the number of stored facts.
	Count(ctx context.Context) (int, error)

	Close() error
}

// SanitizeModelID makes a model identifier safe for filenames and keys.
// "hf.co/bartowski/tulu:Q6_K" → "hf.co_bartowski_tulu-Q6_K".
func SanitizeModelID(modelID string) string {
	return strings.NewReplacer(":", "-", "/", "_").Replace(modelID)
}
