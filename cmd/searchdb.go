package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/refdata"
	"github.com/birdsays/birdfact-cli/internal/searchdb"
	"github.com/birdsays/birdfact-cli/pkg/searx"
)

var searchdbSpeciesFile string

var searchdbCmd = &cobra.Command{
	Use:   "searchdb",
	Short: "Build the per-species search result cache",
	Long:  "Queries the SearXNG instance once per species missing from the search database and persists the raw results. Re-runs only search species that are still missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		var names []string
		var err error
		if searchdbSpeciesFile != "" {
			names, err = refdata.LoadSpeciesList(searchdbSpeciesFile)
			if err != nil {
				return err
			}
		} else {
			ref, err := refdata.NewFromFiles(cfg.Refdata.ImageDB, cfg.Refdata.LinkDB)
			if err != nil {
				return eris.Wrap(err, "load reference data; run 'birdfact refdata build' or pass --species-file")
			}
			names = ref.Species()
		}

		path := searchDBPath()
		db, err := searchdb.Load(path)
		if err != nil {
			return err
		}

		client := searx.NewClient(cfg.Search.BaseURL)
		if err := searchdb.Build(ctx, client, path, db, names); err != nil {
			return eris.Wrap(err, "build search database")
		}

		zap.L().Info("search database built",
			zap.Int("species", len(db)),
			zap.String("path", path))
		return nil
	},
}

func init() {
	searchdbCmd.Flags().StringVar(&searchdbSpeciesFile, "species-file", "", "YAML or JSON file listing species to search for")
	rootCmd.AddCommand(searchdbCmd)
}
