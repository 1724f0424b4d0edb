package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/pipeline"
	"github.com/birdsays/birdfact-cli/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Re-classify stored facts and write the deliverable subset",
	Long:  "Runs a standalone second-opinion classification over every stored fact, persists the verdicts so re-runs skip already-audited species, and writes the facts that passed to a filtered database for delivery.",
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

		facts, err := st.All(ctx)
		if err != nil {
			return eris.Wrap(err, "load stored facts")
		}

		modelID := store.SanitizeModelID(provider.ModelID())
		verdictPath := filepath.Join(cfg.Store.Path, "fact_classification_"+modelID+".json")
		filteredPath := filepath.Join(cfg.Store.Path, "filtered_bird_db_"+modelID+".json")

		previous, err := loadVerdicts(verdictPath)
		if err != nil {
			return err
		}

		result, err := pipeline.AuditFacts(ctx, provider, facts, previous)
		if err != nil {
			return err
		}
		if err := writeJSONFile(verdictPath, result.Verdicts); err != nil {
			return err
		}

		filtered := pipeline.FilterAudited(facts, result.Verdicts)
		if err := writeJSONFile(filteredPath, filtered); err != nil {
			return err
		}

		zap.L().Info("audit complete",
			zap.Int("stored", len(facts)),
			zap.Int("audited", len(result.Verdicts)),
			zap.Int("skipped_overlong", result.Skipped),
			zap.Int("deliverable", len(filtered)),
			zap.String("filtered_path", filteredPath))
		return nil
	},
}

func loadVerdicts(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "read verdicts %s", path)
	}
	verdicts := make(map[string]bool)
	if err := json.Unmarshal(data, &verdicts); err != nil {
		return nil, eris.Wrapf(err, "parse verdicts %s", path)
	}
	return verdicts, nil
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create dir for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
