// Package searchdb maintains the on-disk cache of web search results per
// species. Searching is done once up front so pipeline runs are
// repeatable and do not hammer the metasearch instance.
package searchdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/model"
	"github.com/birdsays/birdfact-cli/pkg/searx"
)

// queryFormat is the search query issued per species.
const queryFormat = `Fun facts about bird species "%s"`

// Query returns the search query used for a species.
func Query(species string) string {
	return fmt.Sprintf(queryFormat, species)
}

// saveEvery bounds how much search work a crash can lose during Build.
const saveEvery = 100

// DB maps species name to its raw search results.
type DB map[string][]model.CandidateDocument

// Load reads the search database. A missing file is an empty database.
func Load(path string) (DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(DB), nil
		}
		return nil, eris.Wrapf(err, "searchdb: read %s", path)
	}
	db := make(DB)
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, eris.Wrapf(err, "searchdb: parse %s", path)
	}
	return db, nil
}

// Save writes the database as indented JSON via a temp-file rename.
func Save(path string, db DB) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "searchdb: create dir for %s", path)
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return eris.Wrap(err, "searchdb: marshal")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".searchdb-*.json")
	if err != nil {
		return eris.Wrap(err, "searchdb: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "searchdb: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "searchdb: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "searchdb: rename to %s", path)
	}
	return nil
}

// Missing returns, sorted, the species from names that the database has
// no entry for.
func Missing(db DB, names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := db[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Build searches for every species missing from db and fills it in
// place, persisting to path periodically and once at the end. Failed
// searches are logged and retried on the next build.
func Build(ctx context.Context, client searx.Client, path string, db DB, names []string) error {
	missing := Missing(db, names)
	zap.L().Info("building search database",
		zap.Int("cached", len(db)),
		zap.Int("missing", len(missing)))

	for i, name := range missing {
		resp, err := client.Search(ctx, Query(name))
		if err != nil {
			zap.L().Warn("search failed", zap.String("species", name), zap.Error(err))
			continue
		}

		docs := make([]model.CandidateDocument, 0, len(resp.Results))
		for _, r := range resp.Results {
			docs = append(docs, model.CandidateDocument{
				URL:     r.URL,
				Title:   r.Title,
				Content: r.Content,
			})
		}
		db[name] = docs

		if (i+1)%saveEvery == 0 {
			if err := Save(path, db); err != nil {
				return err
			}
		}
	}

	return Save(path, db)
}
