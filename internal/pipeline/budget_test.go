package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdsays/birdfact-cli/internal/model"
)

func rankedDoc(url, title, content string, confidence int) model.RankedDocument {
	return model.RankedDocument{
		CandidateDocument: model.CandidateDocument{URL: url, Title: title, Content: content},
		Keep:              true,
		Confidence:        confidence,
	}
}

func TestBudgetFiltersNameAndBlacklist(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["https://good.test/cardinal"] = "cardinal page text"

	ranked := []model.RankedDocument{
		// Mentions the species only in content, not title: still kept.
		rankedDoc("https://good.test/cardinal", "Backyard birds", "the northern cardinal sings", 9),
		// Blacklisted domain.
		rankedDoc("https://ebird.org/species/norcar", "Northern Cardinal", "northern cardinal", 8),
		// Never mentions the species.
		rankedDoc("https://other.test/bluejay", "Blue Jay", "all about blue jays", 7),
	}

	b := NewBudgeter(fetcher, []string{"ebird.org", "birdsoftheworld.org"}, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", ranked)
	require.NoError(t, err)
	require.NotNil(t, content)

	assert.Equal(t, []string{"https://good.test/cardinal"}, content.UsedURLs)
	assert.Equal(t, []string{"https://good.test/cardinal"}, fetcher.fetched)
	require.Len(t, content.SourceTexts, 1)
	assert.Contains(t, content.SourceTexts[0], "<url>https://good.test/cardinal</url>")
	assert.Contains(t, content.SourceTexts[0], "cardinal page text")
}

func TestBudgetNoSurvivors(t *testing.T) {
	t.Parallel()

	ranked := []model.RankedDocument{
		rankedDoc("https://ebird.org/x", "Northern Cardinal", "northern cardinal", 9),
		rankedDoc("https://other.test/y", "Sparrows", "sparrow content", 5),
	}

	b := NewBudgeter(newFakeFetcher(), []string{"ebird.org"}, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", ranked)
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestBudgetSkipsFetchFailures(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.failURLs["https://a.test/1"] = true
	fetcher.pages["https://b.test/2"] = "page two"

	ranked := []model.RankedDocument{
		rankedDoc("https://a.test/1", "Northern Cardinal", "", 9),
		rankedDoc("https://b.test/2", "Northern Cardinal", "", 8),
	}

	b := NewBudgeter(fetcher, nil, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", ranked)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, []string{"https://b.test/2"}, content.UsedURLs)
}

func TestBudgetAllFetchesFail(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.failURLs["https://a.test/1"] = true

	ranked := []model.RankedDocument{rankedDoc("https://a.test/1", "Northern Cardinal", "", 9)}

	b := NewBudgeter(fetcher, nil, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", ranked)
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestBudgetCapsAndReverses(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	for _, u := range []string{"https://a.test", "https://b.test", "https://c.test", "https://d.test"} {
		fetcher.pages[u] = "text for " + u
	}

	ranked := []model.RankedDocument{
		rankedDoc("https://a.test", "Northern Cardinal", "", 9),
		rankedDoc("https://b.test", "Northern Cardinal", "", 7),
		rankedDoc("https://c.test", "Northern Cardinal", "", 5),
		rankedDoc("https://d.test", "Northern Cardinal", "", 2),
	}

	b := NewBudgeter(fetcher, nil, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", ranked)
	require.NoError(t, err)
	require.NotNil(t, content)

	// Only the top 3 by rank are fetched; d is never touched.
	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://c.test"}, content.UsedURLs)
	assert.NotContains(t, fetcher.fetched, "https://d.test")

	// Source blocks are reversed so the strongest source comes last.
	require.Len(t, content.SourceTexts, 3)
	assert.Contains(t, content.SourceTexts[0], "https://c.test")
	assert.Contains(t, content.SourceTexts[1], "https://b.test")
	assert.Contains(t, content.SourceTexts[2], "https://a.test")
}

func TestBudgetCaseInsensitiveNameMatch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["https://a.test"] = "text"

	ranked := []model.RankedDocument{
		rankedDoc("https://a.test", "NORTHERN CARDINAL sightings", "", 5),
	}

	b := NewBudgeter(fetcher, nil, 3)
	content, err := b.Budget(context.Background(), "northern cardinal", ranked)
	require.NoError(t, err)
	assert.NotNil(t, content)
}

func TestBudgetEmptyRanked(t *testing.T) {
	t.Parallel()

	b := NewBudgeter(newFakeFetcher(), nil, 3)
	content, err := b.Budget(context.Background(), "Northern Cardinal", nil)
	require.NoError(t, err)
	assert.Nil(t, content)
}
