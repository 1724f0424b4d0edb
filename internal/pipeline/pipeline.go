// Package pipeline turns web search results for a bird species into a
// stored, verified fun fact. The stages run strictly in order: rank the
// search results, budget and fetch the winners, generate a candidate
// fact, verify it against its sources, then persist. One species is in
// flight at a time; sequencing is the backpressure.
package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/llm"
	"github.com/birdsays/birdfact-cli/internal/model"
	"github.com/birdsays/birdfact-cli/internal/refdata"
	"github.com/birdsays/birdfact-cli/internal/store"
)

// Pipeline wires the stages together with their shared dependencies.
type Pipeline struct {
	provider llm.Provider
	budgeter *Budgeter
	refdata  refdata.Provider
	store    store.Store

	ctxSize        int
	genTemperature float64
}

// New creates a Pipeline.
func New(provider llm.Provider, budgeter *Budgeter, ref refdata.Provider, st store.Store, ctxSize int, genTemperature float64) *Pipeline {
	return &Pipeline{
		provider:       provider,
		budgeter:       budgeter,
		refdata:        ref,
		store:          st,
		ctxSize:        ctxSize,
		genTemperature: genTemperature,
	}
}

// Run processes one species end to end. A rejection at any stage is a
// normal outcome reported in the result; an error means the run could
// not reach a decision. Accepted facts are persisted before Run returns.
func (p *Pipeline) Run(ctx context.Context, species string, docs []model.CandidateDocument) (*model.PipelineResult, error) {
	log := zap.L().With(zap.String("species", species))

	ranked, err := RankSources(ctx, p.provider, species, docs)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: rank %s", species)
	}
	log.Debug("ranking complete", zap.Int("candidates", len(docs)), zap.Int("kept", len(ranked)))

	content, err := p.budgeter.Budget(ctx, species, ranked)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: budget %s", species)
	}
	if content == nil {
		log.Info("rejected: no usable sources")
		return &model.PipelineResult{
			Species:  species,
			Decision: model.DecisionRejected,
			Stage:    model.StageBudgeting,
			Reason:   "no usable sources",
		}, nil
	}

	fact, err := GenerateFact(ctx, p.provider, p.ctxSize, p.genTemperature, species, content)
	if err != nil {
		var mismatch *model.EntityMismatchError
		if errors.As(err, &mismatch) {
			log.Info("rejected: entity mismatch", zap.String("stated_name", mismatch.Stated))
			return &model.PipelineResult{
				Species:  species,
				Decision: model.DecisionRejected,
				Stage:    model.StageGenerating,
				Reason:   mismatch.Error(),
			}, nil
		}
		return nil, eris.Wrapf(err, "pipeline: generate %s", species)
	}

	grounded, err := VerifyFact(ctx, p.provider, p.ctxSize, species, fact)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: verify %s", species)
	}
	if !grounded {
		log.Info("rejected: fact failed verification")
		return &model.PipelineResult{
			Species:  species,
			Decision: model.DecisionRejected,
			Stage:    model.StageVerifying,
			Reason:   "fact not grounded in sources",
		}, nil
	}

	record := &model.FactRecord{
		Fact: fact.Fact,
		URLs: fact.UsedURLs,
	}
	if p.refdata != nil {
		if imgURL, ok := p.refdata.ImageURL(species); ok {
			record.ImgURL = imgURL
		}
		if page, ok := p.refdata.SpeciesPage(species); ok {
			record.SpeciesPage = page
		}
	}

	if err := p.store.Put(ctx, species, record); err != nil {
		return nil, eris.Wrapf(err, "pipeline: persist %s", species)
	}
	log.Info("accepted fact", zap.Int("sources", len(fact.UsedURLs)))

	return &model.PipelineResult{
		Species:  species,
		Decision: model.DecisionAccepted,
		Stage:    model.StageVerifying,
		Record:   record,
	}, nil
}
