package main

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/refdata"
)

var (
	batchSpeciesFile string
	batchLimit       int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate fun facts for every species without one",
	Long:  "Walks the species list one bird at a time, skipping species that already have a stored fact. Safe to interrupt and re-run; each accepted fact is persisted immediately.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		names, err := batchSpeciesNames(env)
		if err != nil {
			return err
		}

		before, err := env.Store.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "count store")
		}

		var todo []string
		for _, name := range names {
			exists, err := env.Store.Contains(ctx, name)
			if err != nil {
				return eris.Wrap(err, "check store")
			}
			if !exists {
				todo = append(todo, name)
			}
		}
		sort.Strings(todo)
		if batchLimit > 0 && len(todo) > batchLimit {
			todo = todo[:batchLimit]
		}

		zap.L().Info("batch starting",
			zap.Int("with_facts", before),
			zap.Int("without_facts", len(todo)))

		var accepted, rejected, failed int
		for _, name := range todo {
			result, err := env.Pipeline.Run(ctx, name, env.SearchDB[name])
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				zap.L().Error("species failed", zap.String("species", name), zap.Error(err))
				failed++
				continue
			}
			if result.Accepted() {
				accepted++
			} else {
				rejected++
			}
		}

		after, err := env.Store.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "count store")
		}

		zap.L().Info("batch complete",
			zap.Int("accepted", accepted),
			zap.Int("rejected", rejected),
			zap.Int("failed", failed),
			zap.Int("stored_before", before),
			zap.Int("stored_after", after))

		return nil
	},
}

// batchSpeciesNames returns the species to attempt: the intersection of
// the reference data and the search database, or the contents of
// --species-file when given.
func batchSpeciesNames(env *pipelineEnv) ([]string, error) {
	if batchSpeciesFile != "" {
		return refdata.LoadSpeciesList(batchSpeciesFile)
	}
	if env.Refdata == nil {
		return nil, eris.New("no reference data; run 'birdfact refdata build' or pass --species-file")
	}
	var names []string
	for _, name := range env.Refdata.Species() {
		if _, ok := env.SearchDB[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchSpeciesFile, "species-file", "", "YAML or JSON file listing species to process")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "process at most this many species (0 = no limit)")
	rootCmd.AddCommand(batchCmd)
}
