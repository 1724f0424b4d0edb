package model

import (
	"fmt"
	"strings"
)

// CandidateDocument is a single raw search result for a species, as
// returned by the search provider. Read-only input to the ranker.
type CandidateDocument struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// RankedDocument is a candidate document after LLM scoring.
type RankedDocument struct {
	CandidateDocument

	Keep       bool `json:"keep"`
	Confidence int  `json:"confidence"`
}

// BudgetedContent is the bounded set of fetched page texts selected for
// fact generation. SourceTexts are the wrapped per-document blocks in
// final prompt order: lowest confidence first, so the strongest source
// sits at the end of the assembled text where the model weights it most.
type BudgetedContent struct {
	UsedURLs    []string
	SourceTexts []string
}

// AssembledText joins the wrapped source blocks with newlines.
func (b *BudgetedContent) AssembledText() string {
	return strings.Join(b.SourceTexts, "\n")
}

// CandidateFact is a generated fact before verification. StatedName is
// the species name the model claims the fact is about; it has already
// passed the entity-name check when a CandidateFact exists.
type CandidateFact struct {
	Fact        string
	StatedName  string
	UsedURLs    []string
	SourceTexts []string
}

// FactRecord is the persisted shape of an accepted fact. The stated name
// and raw source texts are deliberately dropped before persistence.
type FactRecord struct {
	Fact        string   `json:"fact"`
	URLs        []string `json:"urls"`
	ImgURL      string   `json:"img_url,omitempty"`
	SpeciesPage string   `json:"species_page,omitempty"`
}

// EntityMismatchError reports that the generator produced a fact about a
// different species than requested. The orchestrator treats it as a
// per-species rejection, not a run failure.
type EntityMismatchError struct {
	Stated   string
	Expected string
}

func (e *EntityMismatchError) Error() string {
	return fmt.Sprintf("species name mismatch: model stated %q, expected %q", e.Stated, e.Expected)
}

// Decision is the orchestrator's terminal state for one species.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Stage names the pipeline stage a decision was reached at.
type Stage string

const (
	StageRanking    Stage = "ranking"
	StageBudgeting  Stage = "budgeting"
	StageGenerating Stage = "generating"
	StageVerifying  Stage = "verifying"
)

// PipelineResult is the orchestrator's per-species outcome.
type PipelineResult struct {
	Species  string      `json:"species"`
	Decision Decision    `json:"decision"`
	Stage    Stage       `json:"stage"`
	Reason   string      `json:"reason,omitempty"`
	Record   *FactRecord `json:"record,omitempty"`
}

// Accepted reports whether the species ended in the accepted state.
func (r *PipelineResult) Accepted() bool {
	return r.Decision == DecisionAccepted
}
