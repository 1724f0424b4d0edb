package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/model"
	"github.com/birdsays/birdfact-cli/internal/notify"
	"github.com/birdsays/birdfact-cli/internal/store"
)

var sendUnfiltered bool

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send each recipient their next fun fact",
	Long:  "Delivers one fact per configured recipient over Twilio, walking a persisted shuffled species order. By default only audited facts are sent; --unfiltered sends from the full store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("send"); err != nil {
			return err
		}

		facts, modelID, err := loadDeliverableFacts(cmd)
		if err != nil {
			return err
		}
		if len(facts) == 0 {
			return eris.New("no deliverable facts; run 'birdfact batch' and 'birdfact audit' first")
		}

		species := make([]string, 0, len(facts))
		for name := range facts {
			species = append(species, name)
		}
		sort.Strings(species)

		orderPath := filepath.Join(cfg.Store.Path, "shuffled_keys_"+modelID+".json")
		order, err := notify.LoadOrder(orderPath, species)
		if err != nil {
			return err
		}

		trackerPath := filepath.Join(cfg.Store.Path, "message_index_"+modelID+".json")
		tracker, err := notify.NewTracker(trackerPath)
		if err != nil {
			return err
		}

		sender := notify.NewSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
		if err := notify.SendNext(sender, tracker, order, facts, cfg.Twilio.Recipients); err != nil {
			return err
		}

		zap.L().Info("send complete",
			zap.Int("recipients", len(cfg.Twilio.Recipients)),
			zap.Int("deliverable_facts", len(facts)))
		return nil
	},
}

// loadDeliverableFacts returns the audited fact set, or the full store
// with --unfiltered.
func loadDeliverableFacts(cmd *cobra.Command) (map[string]model.FactRecord, string, error) {
	ctx := cmd.Context()

	modelID := store.SanitizeModelID(cfg.LLM.Model)

	if sendUnfiltered {
		st, err := initStore(ctx, cfg.LLM.Model)
		if err != nil {
			return nil, "", eris.Wrap(err, "init store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return nil, "", eris.Wrap(err, "migrate store")
		}
		facts, err := st.All(ctx)
		if err != nil {
			return nil, "", eris.Wrap(err, "load stored facts")
		}
		return facts, modelID, nil
	}

	path := filepath.Join(cfg.Store.Path, "filtered_bird_db_"+modelID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "read filtered facts %s; run 'birdfact audit' or pass --unfiltered", path)
	}
	facts := make(map[string]model.FactRecord)
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, "", eris.Wrapf(err, "parse filtered facts %s", path)
	}
	return facts, modelID, nil
}

func init() {
	sendCmd.Flags().BoolVar(&sendUnfiltered, "unfiltered", false, "send from the full store instead of the audited subset")
	rootCmd.AddCommand(sendCmd)
}
