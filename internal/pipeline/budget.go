package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/fetch"
	"github.com/birdsays/birdfact-cli/internal/model"
)

// Budgeter selects which ranked documents feed fact generation and
// fetches their full page text.
type Budgeter struct {
	fetcher          fetch.Fetcher
	blacklistDomains []string
	maxDocs          int
}

// NewBudgeter creates a Budgeter. maxDocs caps how many fetched pages go
// into the generation prompt.
func NewBudgeter(fetcher fetch.Fetcher, blacklistDomains []string, maxDocs int) *Budgeter {
	return &Budgeter{
		fetcher:          fetcher,
		blacklistDomains: blacklistDomains,
		maxDocs:          maxDocs,
	}
}

// Budget filters ranked documents down to ones that mention the species
// and are not blacklisted, then fetches up to maxDocs of them in rank
// order. Fetch failures are logged and skipped. The collected website
// blocks are reversed so the highest-confidence source sits last, next
// to the instruction that follows it in the prompt.
//
// Returns nil when no document survives filtering or fetching: the
// species has nothing worth generating from this run.
func (b *Budgeter) Budget(ctx context.Context, species string, ranked []model.RankedDocument) (*model.BudgetedContent, error) {
	filtered := make([]model.RankedDocument, 0, len(ranked))
	for _, doc := range ranked {
		if !b.mentionsSpecies(species, doc) {
			continue
		}
		if b.blacklisted(doc.URL) {
			continue
		}
		filtered = append(filtered, doc)
	}
	if len(filtered) == 0 {
		zap.L().Info("no usable sources after filtering",
			zap.String("species", species),
			zap.Int("ranked", len(ranked)))
		return nil, nil
	}

	var (
		texts []string
		urls  []string
	)
	for _, doc := range filtered {
		text, err := b.fetcher.Text(ctx, doc.URL)
		if err != nil {
			zap.L().Warn("fetch failed, skipping source",
				zap.String("species", species),
				zap.String("url", doc.URL),
				zap.Error(err))
			continue
		}
		texts = append(texts, fmt.Sprintf(websiteFormat, doc.URL, doc.Title, text))
		urls = append(urls, doc.URL)
		if len(texts) >= b.maxDocs {
			break
		}
	}
	if len(texts) == 0 {
		zap.L().Info("no sources fetched successfully", zap.String("species", species))
		return nil, nil
	}

	// Most confident source last.
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}

	return &model.BudgetedContent{
		UsedURLs:    urls,
		SourceTexts: texts,
	}, nil
}

func (b *Budgeter) mentionsSpecies(species string, doc model.RankedDocument) bool {
	name := strings.ToLower(species)
	return strings.Contains(strings.ToLower(doc.Title), name) ||
		strings.Contains(strings.ToLower(doc.Content), name)
}

func (b *Budgeter) blacklisted(url string) bool {
	for _, domain := range b.blacklistDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}
	return false
}
