package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/searchdb"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		provider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return eris.Wrap(err, "init llm provider")
		}

		st, err := initStore(ctx, provider.ModelID())
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		count, err := st.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "count store")
		}

		db, err := searchdb.Load(searchDBPath())
		if err != nil {
			return err
		}

		ref := initRefdata()
		speciesKnown := 0
		if ref != nil {
			speciesKnown = len(ref.Species())
		}

		out := struct {
			Model         string `json:"model"`
			SpeciesKnown  int    `json:"species_known"`
			SearchResults int    `json:"species_with_search_results"`
			FactsStored   int    `json:"facts_stored"`
		}{
			Model:         provider.ModelID(),
			SpeciesKnown:  speciesKnown,
			SearchResults: len(db),
			FactsStored:   count,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
