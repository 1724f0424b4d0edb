package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/model"
	"github.com/birdsays/birdfact-cli/internal/searchdb"
	"github.com/birdsays/birdfact-cli/pkg/searx"
)

var (
	runSpecies string
	runForce   bool
	runLive    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a fun fact for a single species",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if !runForce {
			exists, err := env.Store.Contains(ctx, runSpecies)
			if err != nil {
				return eris.Wrap(err, "check store")
			}
			if exists {
				return eris.Errorf("%s already has a fact; use --force to regenerate", runSpecies)
			}
		}

		docs, ok := env.SearchDB[runSpecies]
		if !ok {
			if !runLive {
				return eris.Errorf("no cached search results for %s; run 'birdfact searchdb' first or pass --live", runSpecies)
			}
			docs, err = liveSearch(cmd, runSpecies)
			if err != nil {
				return err
			}
			env.SearchDB[runSpecies] = docs
			if err := searchdb.Save(searchDBPath(), env.SearchDB); err != nil {
				zap.L().Warn("could not cache live search results", zap.Error(err))
			}
		}

		result, err := env.Pipeline.Run(ctx, runSpecies, docs)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("species", result.Species),
			zap.String("decision", string(result.Decision)),
			zap.String("stage", string(result.Stage)))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func liveSearch(cmd *cobra.Command, species string) ([]model.CandidateDocument, error) {
	client := searx.NewClient(cfg.Search.BaseURL)
	resp, err := client.Search(cmd.Context(), searchdb.Query(species))
	if err != nil {
		return nil, eris.Wrapf(err, "live search for %s", species)
	}
	docs := make([]model.CandidateDocument, 0, len(resp.Results))
	for _, r := range resp.Results {
		docs = append(docs, model.CandidateDocument{URL: r.URL, Title: r.Title, Content: r.Content})
	}
	return docs, nil
}

func init() {
	runCmd.Flags().StringVar(&runSpecies, "species", "", "bird species common name (required)")
	runCmd.Flags().BoolVar(&runForce, "force", false, "regenerate even if a fact already exists")
	runCmd.Flags().BoolVar(&runLive, "live", false, "search the web when the species is not in the search database")
	_ = runCmd.MarkFlagRequired("species")
	rootCmd.AddCommand(runCmd)
}
