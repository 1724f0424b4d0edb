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

type funFact struct {
	Fact     string `json:"fact"`
	BirdName string `json:"bird_name"`
}

// GenerateFact produces a candidate fun fact for the species from the
// budgeted source text. The model is asked to name the bird it wrote
// about; a stated name that neither equals nor contains the requested
// species (case-insensitive, trimmed) is returned as a
// model.EntityMismatchError so the caller can reject instead of storing
// a fact about the wrong bird.
func GenerateFact(ctx context.Context, provider llm.Provider, ctxSize int, temperature float64, species string, content *model.BudgetedContent) (*model.CandidateFact, error) {
	prompt := fmt.Sprintf(generateUserPrompt, species, content.AssembledText())
	prompt = truncateTail(prompt, generateSystemPrompt, ctxSize)

	raw, err := provider.Complete(ctx, llm.Request{
		System:      generateSystemPrompt,
		Prompt:      prompt,
		Schema:      factSchema,
		SchemaName:  "fun_fact",
		Temperature: temperature,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "generate: complete for %s", species)
	}

	var fact funFact
	if err := json.Unmarshal(raw, &fact); err != nil {
		return nil, eris.Wrapf(err, "generate: parse fact for %s", species)
	}
	if fact.Fact == "" {
		return nil, eris.Errorf("generate: empty fact for %s", species)
	}

	want := strings.ToLower(strings.TrimSpace(species))
	got := strings.ToLower(strings.TrimSpace(fact.BirdName))
	if want != got && !strings.Contains(got, want) {
		return nil, &model.EntityMismatchError{Stated: fact.BirdName, Expected: species}
	}

	zap.L().Debug("generated candidate fact",
		zap.String("species", species),
		zap.Int("sources", len(content.UsedURLs)))

	return &model.CandidateFact{
		Fact:        fact.Fact,
		StatedName:  fact.BirdName,
		UsedURLs:    content.UsedURLs,
		SourceTexts: content.SourceTexts,
	}, nil
}
