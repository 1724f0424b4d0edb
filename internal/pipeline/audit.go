package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/model"
)

const auditSystemPrompt = "Classify the text supplied by the user as a fun bird fact written with humor " +
	`or not by replying "yes" for a fun bird fact or "no" for something else. Here are examples ` +
	`to classify as "no": lists of many bird species, a story about someone's ` +
	"vacation, bullet points (- Bird: ..., - Fact: ...), or a fact about a non-bird animal. "

// auditCtxSize is deliberately small; a single fact fits easily and a
// tight context keeps the classifier pass cheap.
const auditCtxSize = 5000

// maxDeliverableLen keeps facts under the 1600-character SMS body limit
// with headroom for the appended species page URL.
const maxDeliverableLen = 1400

type auditVerdict struct {
	Label string `json:"label"`
}

var auditSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"label": {"type": "string", "enum": ["yes", "no"]}
	},
	"required": ["label"],
	"additionalProperties": false
}`)

// AuditResult is the outcome of re-classifying stored facts.
type AuditResult struct {
	// Verdicts holds the classification per audited species.
	Verdicts map[string]bool
	// Skipped counts facts too long to deliver, excluded from auditing.
	Skipped int
}

// AuditFacts runs a second-opinion pass over already-stored facts:
// each fact is classified as a humorous bird fact or not, standalone,
// without its sources. Species present in previous keep their verdict
// and are not re-classified, so audits are resumable. Per-fact failures
// are logged and left unclassified.
func AuditFacts(ctx context.Context, provider llm.Provider, facts map[string]model.FactRecord, previous map[string]bool) (*AuditResult, error) {
	if provider == nil {
		return nil, eris.New("audit: provider is required")
	}

	result := &AuditResult{Verdicts: make(map[string]bool, len(facts))}
	for species, verdict := range previous {
		result.Verdicts[species] = verdict
	}

	for species, rec := range facts {
		if len(rec.Fact) >= maxDeliverableLen {
			result.Skipped++
			continue
		}
		if _, done := result.Verdicts[species]; done {
			continue
		}

		raw, err := provider.Complete(ctx, llm.Request{
			System:     auditSystemPrompt,
			Prompt:     rec.Fact,
			Schema:     auditSchema,
			SchemaName: "fact_classification",
		})
		if err != nil {
			zap.L().Warn("audit classification failed",
				zap.String("species", species),
				zap.Error(err))
			continue
		}

		var verdict auditVerdict
		if err := json.Unmarshal(raw, &verdict); err != nil {
			zap.L().Warn("audit verdict unparseable",
				zap.String("species", species),
				zap.Error(err))
			continue
		}
		result.Verdicts[species] = verdict.Label == "yes"
	}

	return result, nil
}

// FilterAudited returns the facts whose audit verdict is true. Facts
// with no verdict are excluded.
func FilterAudited(facts map[string]model.FactRecord, verdicts map[string]bool) map[string]model.FactRecord {
	out := make(map[string]model.FactRecord)
	for species, rec := range facts {
		if verdicts[species] {
			out[species] = rec
		}
	}
	return out
}
