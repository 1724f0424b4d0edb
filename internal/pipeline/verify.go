package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/model"
)

type verifyVerdict struct {
	IsSpeciesFact string `json:"is_species_fact"`
}

// VerifyFact re-presents the candidate fact alongside the source text it
// was generated from and asks the model whether the fact is grounded in
// those sources. Only an exact "yes" passes; any other answer counts as
// a failed check.
func VerifyFact(ctx context.Context, provider llm.Provider, ctxSize int, species string, fact *model.CandidateFact) (bool, error) {
	system := fmt.Sprintf(verifySystemPrompt, species)
	prompt := fmt.Sprintf(verifyUserPrompt, strings.Join(fact.SourceTexts, "\n"), fact.Fact)
	prompt = truncateTail(prompt, system, ctxSize)

	raw, err := provider.Complete(ctx, llm.Request{
		System:     system,
		Prompt:     prompt,
		Schema:     verifySchema,
		SchemaName: "species_fact_classifier",
	})
	if err != nil {
		return false, eris.Wrapf(err, "verify: complete for %s", species)
	}

	var verdict verifyVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return false, eris.Wrapf(err, "verify: parse verdict for %s", species)
	}

	ok := verdict.IsSpeciesFact == "yes"
	zap.L().Debug("verified candidate fact",
		zap.String("species", species),
		zap.Bool("grounded", ok))
	return ok, nil
}
