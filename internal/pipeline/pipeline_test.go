package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdsays/birdfact-cli/internal/model"
)

func testPipeline(provider *fakeProvider, fetcher *fakeFetcher, st *memStore) *Pipeline {
	ref := &fakeRefdata{
		images: map[string]string{"Northern Cardinal": "https://img.test/cardinal.jpg"},
		links:  map[string]string{"Northern Cardinal": "https://birds.test/species/norcar"},
	}
	budgeter := NewBudgeter(fetcher, []string{"ebird.org", "birdsoftheworld.org"}, 3)
	return New(provider, budgeter, ref, st, 15000, 0.4)
}

func searchDocs() []model.CandidateDocument {
	return []model.CandidateDocument{
		{URL: "https://a.test/cardinal", Title: "Northern Cardinal facts", Content: "northern cardinal plumage"},
		{URL: "https://b.test/cardinal", Title: "Cardinal songs", Content: "the northern cardinal sings"},
	}
}

func TestPipelineAccepted(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("keep_confidence",
		`{"keep": true, "confidence": 9}`,
		`{"keep": true, "confidence": 6}`)
	provider.respond("fun_fact",
		`{"fact": "Cardinals stay red all year, talk about com-mitt-ed plumage!", "bird_name": "Northern Cardinal"}`)
	provider.respond("species_fact_classifier", `{"is_species_fact": "yes"}`)

	fetcher := newFakeFetcher()
	fetcher.pages["https://a.test/cardinal"] = "page a text"
	fetcher.pages["https://b.test/cardinal"] = "page b text"

	st := newMemStore()
	p := testPipeline(provider, fetcher, st)

	result, err := p.Run(context.Background(), "Northern Cardinal", searchDocs())
	require.NoError(t, err)

	assert.True(t, result.Accepted())
	assert.Equal(t, model.StageVerifying, result.Stage)
	require.NotNil(t, result.Record)
	assert.Equal(t, []string{"https://a.test/cardinal", "https://b.test/cardinal"}, result.Record.URLs)
	assert.Equal(t, "https://img.test/cardinal.jpg", result.Record.ImgURL)
	assert.Equal(t, "https://birds.test/species/norcar", result.Record.SpeciesPage)

	// Accepted facts are persisted before Run returns.
	stored, err := st.Get(context.Background(), "Northern Cardinal")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, result.Record.Fact, stored.Fact)
}

func TestPipelineRejectedNoSources(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	// Every document is ranked keep=false.
	provider.respond("keep_confidence",
		`{"keep": false, "confidence": 9}`,
		`{"keep": false, "confidence": 8}`)

	st := newMemStore()
	p := testPipeline(provider, newFakeFetcher(), st)

	result, err := p.Run(context.Background(), "Northern Cardinal", searchDocs())
	require.NoError(t, err)

	assert.False(t, result.Accepted())
	assert.Equal(t, model.StageBudgeting, result.Stage)
	assert.Equal(t, "no usable sources", result.Reason)

	count, _ := st.Count(context.Background())
	assert.Zero(t, count)
	// Generation was never reached.
	assert.Empty(t, provider.requestsFor("fun_fact"))
}

func TestPipelineRejectedEntityMismatch(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("keep_confidence",
		`{"keep": true, "confidence": 9}`,
		`{"keep": true, "confidence": 6}`)
	provider.respond("fun_fact",
		`{"fact": "Jays are loud!", "bird_name": "Blue Jay"}`)

	fetcher := newFakeFetcher()
	fetcher.pages["https://a.test/cardinal"] = "page a"
	fetcher.pages["https://b.test/cardinal"] = "page b"

	st := newMemStore()
	p := testPipeline(provider, fetcher, st)

	result, err := p.Run(context.Background(), "Northern Cardinal", searchDocs())
	require.NoError(t, err)

	assert.False(t, result.Accepted())
	assert.Equal(t, model.StageGenerating, result.Stage)
	assert.Contains(t, result.Reason, "Blue Jay")

	count, _ := st.Count(context.Background())
	assert.Zero(t, count)
	// Verification was never reached.
	assert.Empty(t, provider.requestsFor("species_fact_classifier"))
}

func TestPipelineRejectedByVerifier(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("keep_confidence",
		`{"keep": true, "confidence": 9}`,
		`{"keep": true, "confidence": 6}`)
	provider.respond("fun_fact",
		`{"fact": "Cardinals invented jazz.", "bird_name": "Northern Cardinal"}`)
	provider.respond("species_fact_classifier", `{"is_species_fact": "no"}`)

	fetcher := newFakeFetcher()
	fetcher.pages["https://a.test/cardinal"] = "page a"
	fetcher.pages["https://b.test/cardinal"] = "page b"

	st := newMemStore()
	p := testPipeline(provider, fetcher, st)

	result, err := p.Run(context.Background(), "Northern Cardinal", searchDocs())
	require.NoError(t, err)

	assert.False(t, result.Accepted())
	assert.Equal(t, model.StageVerifying, result.Stage)
	assert.Equal(t, "fact not grounded in sources", result.Reason)

	count, _ := st.Count(context.Background())
	assert.Zero(t, count)
}

func TestPipelineRankErrorPropagates(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.err = errors.New("model offline")

	p := testPipeline(provider, newFakeFetcher(), newMemStore())
	_, err := p.Run(context.Background(), "Northern Cardinal", searchDocs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}

func TestPipelineNoRefdataStillAccepts(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("keep_confidence", `{"keep": true, "confidence": 9}`)
	provider.respond("fun_fact",
		`{"fact": "A fact.", "bird_name": "House Wren"}`)
	provider.respond("species_fact_classifier", `{"is_species_fact": "yes"}`)

	fetcher := newFakeFetcher()
	fetcher.pages["https://a.test/wren"] = "wren text"

	st := newMemStore()
	budgeter := NewBudgeter(fetcher, nil, 3)
	p := New(provider, budgeter, nil, st, 15000, 0.4)

	docs := []model.CandidateDocument{
		{URL: "https://a.test/wren", Title: "House Wren", Content: "house wren"},
	}
	result, err := p.Run(context.Background(), "House Wren", docs)
	require.NoError(t, err)

	// Missing reference data leaves the optional fields empty.
	assert.True(t, result.Accepted())
	assert.Empty(t, result.Record.ImgURL)
	assert.Empty(t, result.Record.SpeciesPage)
}
