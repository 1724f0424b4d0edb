package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/refdata"
)

var refdataConcurrency int

var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "Manage the species reference databases",
}

var refdataBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scrape species pages and images into the reference databases",
	Long:  "Scrapes the species index for page links, then each species page for its lead image. Species already present in the image database are not refetched, so interrupted builds resume where they left off.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("build"); err != nil {
			return err
		}

		builder := refdata.NewBuilder(cfg.Refdata.IndexURL,
			refdata.WithConcurrency(refdataConcurrency))

		links, err := builder.SpeciesLinks(ctx)
		if err != nil {
			return err
		}
		if err := refdata.WriteJSON(cfg.Refdata.LinkDB, links); err != nil {
			return err
		}
		zap.L().Info("species links written",
			zap.Int("species", len(links)),
			zap.String("path", cfg.Refdata.LinkDB))

		existing := make(map[string]string)
		if ref, err := refdata.NewFromFiles(cfg.Refdata.ImageDB, cfg.Refdata.LinkDB); err == nil {
			for _, name := range ref.Species() {
				if url, ok := ref.ImageURL(name); ok {
					existing[name] = url
				}
			}
		}

		images, err := builder.Build(ctx, links, existing)
		if err != nil {
			return eris.Wrap(err, "build image database")
		}
		if err := refdata.WriteJSON(cfg.Refdata.ImageDB, images); err != nil {
			return err
		}

		zap.L().Info("image database written",
			zap.Int("species", len(images)),
			zap.String("path", cfg.Refdata.ImageDB))
		return nil
	},
}

func init() {
	refdataBuildCmd.Flags().IntVar(&refdataConcurrency, "concurrency", 4, "max in-flight page fetches")
	refdataCmd.AddCommand(refdataBuildCmd)
	rootCmd.AddCommand(refdataCmd)
}
