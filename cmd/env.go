package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/fetch"
	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/pipeline"
	"github.com/birdsays/birdfact-cli/internal/refdata"
	"github.com/birdsays/birdfact-cli/internal/searchdb"
	"github.com/birdsays/birdfact-cli/internal/store"
)

// pipelineEnv bundles everything a fact-generating command needs.
type pipelineEnv struct {
	Provider llm.Provider
	Store    store.Store
	Refdata  refdata.Provider
	Pipeline *pipeline.Pipeline
	SearchDB searchdb.DB
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context, modelID string) (store.Store, error) {
	switch cfg.Store.Driver {
	case "json":
		return store.NewJSON(cfg.Store.Path, modelID), nil
	case "sqlite":
		return store.NewSQLite(filepath.Join(cfg.Store.Path, "birdfact.db"), modelID)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, modelID)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFetcher() fetch.Fetcher {
	return fetch.NewHTTPFetcher(fetch.Options{
		Timeout:        time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		RequestsPerSec: cfg.Fetch.RequestsPerSec,
	})
}

// initRefdata loads the reference databases. Missing databases are not
// fatal for fact generation; accepted facts just lack image and page
// links until a refdata build runs.
func initRefdata() refdata.Provider {
	ref, err := refdata.NewFromFiles(cfg.Refdata.ImageDB, cfg.Refdata.LinkDB)
	if err != nil {
		zap.L().Warn("reference data unavailable", zap.Error(err))
		return nil
	}
	return ref
}

func searchDBPath() string {
	return filepath.Join(cfg.Store.Path, "search_db.json")
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, eris.Wrap(err, "init llm provider")
	}

	st, err := initStore(ctx, provider.ModelID())
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	db, err := searchdb.Load(searchDBPath())
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "load search database")
	}

	budgeter := pipeline.NewBudgeter(initFetcher(), cfg.Pipeline.BlacklistDomains, cfg.Pipeline.MaxDocsPerSpecies)
	ref := initRefdata()

	return &pipelineEnv{
		Provider: provider,
		Store:    st,
		Refdata:  ref,
		Pipeline: pipeline.New(provider, budgeter, ref, st, cfg.LLM.ContextSize, cfg.Pipeline.GenTemperature),
		SearchDB: db,
	}, nil
}
