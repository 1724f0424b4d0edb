package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdsays/birdfact-cli/internal/model"
)

func candidate() *model.CandidateFact {
	return &model.CandidateFact{
		Fact:       "Cardinals never migrate, they just cardinal-ly refuse to leave!",
		StatedName: "Northern Cardinal",
		UsedURLs:   []string{"https://a.test"},
		SourceTexts: []string{
			"<website>\n<url>https://a.test</url>\n<title>\nA</title>\n<content>cardinals are year-round residents\n</content></website>",
		},
	}
}

func TestVerifyFact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"yes passes", `{"is_species_fact": "yes"}`, true},
		{"no fails", `{"is_species_fact": "no"}`, false},
		// Anything that is not exactly "yes" counts as a failure.
		{"unexpected value fails", `{"is_species_fact": "maybe"}`, false},
		{"empty value fails", `{"is_species_fact": ""}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			provider := newFakeProvider()
			provider.respond("species_fact_classifier", tt.body)

			ok, err := VerifyFact(context.Background(), provider, 15000, "Northern Cardinal", candidate())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyFactPromptShape(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("species_fact_classifier", `{"is_species_fact": "yes"}`)

	_, err := VerifyFact(context.Background(), provider, 15000, "Northern Cardinal", candidate())
	require.NoError(t, err)

	reqs := provider.requestsFor("species_fact_classifier")
	require.Len(t, reqs, 1)
	// The verifier sees the same source blocks generation used, plus the
	// fact under check.
	assert.Contains(t, reqs[0].System, "Northern Cardinal")
	assert.Contains(t, reqs[0].Prompt, "year-round residents")
	assert.Contains(t, reqs[0].Prompt, "<fact>Cardinals never migrate")
	assert.Zero(t, reqs[0].Temperature)
}

func TestVerifyFactMalformedResponse(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.respond("species_fact_classifier", `{{{`)

	_, err := VerifyFact(context.Background(), provider, 15000, "Northern Cardinal", candidate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse verdict")
}
