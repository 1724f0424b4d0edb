package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/model"
)

type rankVerdict struct {
	Keep       bool `json:"keep"`
	Confidence int  `json:"confidence"`
}

// RankSources asks the model, one document at a time, whether each search
// result is worth using for the species and how confident it is. Kept
// documents come back sorted by confidence, highest first, with the
// original search order preserved among ties.
//
// A malformed or out-of-range verdict aborts the whole ranking: a model
// that has stopped following the schema cannot be trusted on the
// documents it already scored either.
func RankSources(ctx context.Context, provider llm.Provider, species string, docs []model.CandidateDocument) ([]model.RankedDocument, error) {
	prompt := fmt.Sprintf(rankUserPrompt, species)

	ranked := make([]model.RankedDocument, 0, len(docs))
	for _, doc := range docs {
		site := fmt.Sprintf(rankDocFormat, doc.URL, doc.Title, doc.Content)

		raw, err := provider.Complete(ctx, llm.Request{
			System:     rankSystemPrompt,
			Prompt:     prompt + site,
			Schema:     rankSchema,
			SchemaName: "keep_confidence",
		})
		if err != nil {
			return nil, eris.Wrapf(err, "rank: score document %s", doc.URL)
		}

		var verdict rankVerdict
		if err := json.Unmarshal(raw, &verdict); err != nil {
			return nil, eris.Wrapf(err, "rank: parse verdict for %s", doc.URL)
		}
		if verdict.Confidence < 1 || verdict.Confidence > 10 {
			return nil, eris.Errorf("rank: confidence %d out of range for %s", verdict.Confidence, doc.URL)
		}

		zap.L().Debug("ranked document",
			zap.String("species", species),
			zap.String("url", doc.URL),
			zap.Bool("keep", verdict.Keep),
			zap.Int("confidence", verdict.Confidence))

		if !verdict.Keep {
			continue
		}
		ranked = append(ranked, model.RankedDocument{
			CandidateDocument: doc,
			Keep:              verdict.Keep,
			Confidence:        verdict.Confidence,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked, nil
}
