package blog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectOpportunities(t *testing.T) {
	t.Parallel()

	rows := []KeywordRow{
		{Query: "roof replacement cost", Impressions: 900, CTR: 0.01, Position: 7.2},
		{Query: "metal roof cost", Impressions: 400, CTR: 0.05, Position: 11},
		{Query: "acme roofing reviews", Impressions: 5000, CTR: 0.02, Position: 5},
		{Query: "roof estimate", Impressions: 2000, CTR: 0.3, Position: 2.1},
		{Query: "slate roof cost", Impressions: 30, CTR: 0, Position: 8},
		{Query: "tile roof lifespan", Impressions: 600, CTR: 0.2, Position: 25},
		{Query: "   ", Impressions: 1000, Position: 6},
		{Query: " shingle roof cost ", Impressions: 380, CTR: 0, Position: 4},
	}
	original := append([]KeywordRow(nil), rows...)

	got := SelectOpportunities(rows, OpportunityOptions{ExcludeTerms: []string{"ACME"}})
	require.Equal(t, original, rows)

	queries := make([]string, 0, len(got))
	for _, r := range got {
		queries = append(queries, r.Query)
	}
	// 900*0.99=891, 400*0.95=380, 380*1=380 -> tie broken by query
	require.Equal(t, []string{"roof replacement cost", "metal roof cost", "shingle roof cost"}, queries)

	limited := SelectOpportunities(rows, OpportunityOptions{Limit: 1, MinImpressions: 10})
	require.Len(t, limited, 1)
	require.Equal(t, "acme roofing reviews", limited[0].Query)
}

func TestOpportunityScoreClampsCTR(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 100.0, OpportunityScore(KeywordRow{Impressions: 100, CTR: -1}), 1e-9)
	require.InDelta(t, 0.0, OpportunityScore(KeywordRow{Impressions: 100, CTR: 2}), 1e-9)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	snap := SERPSnapshot{
		Keyword: "metal roof cost",
		Organic: []OrganicResult{
			{Position: 1, Title: "Metal Roof Cost Guide", URL: "https://a.example/metal"},
			{Position: 2, Title: "How Much Is a Metal Roof", URL: "https://b.example/cost"},
		},
		Questions: []string{"Is a metal roof worth it?"},
	}
	pages := []CompetitorPage{
		{URL: "https://a.example/metal", Title: "Metal Roof Cost Guide", Headings: []string{"Price per square", "Labor", "Extra"}, WordCount: 1800},
		{URL: "https://c.example/empty"},
	}

	p := BuildPrompt(" metal roof cost ", snap, pages, PromptOptions{Brand: "RoofQuote", ServiceArea: "Austin, TX", MaxHeadings: 2})
	require.Contains(t, p.System, "Markdown")
	require.Contains(t, p.User, "Target keyword: metal roof cost\n")
	require.Contains(t, p.User, "about 1200 words")
	require.Contains(t, p.User, "Brand: RoofQuote")
	require.Contains(t, p.User, "Service area: Austin, TX")
	require.Contains(t, p.User, "1. Metal Roof Cost Guide (https://a.example/metal)")
	require.Contains(t, p.User, "- Metal Roof Cost Guide (1800 words)")
	require.Contains(t, p.User, "  - Labor\n")
	require.NotContains(t, p.User, "Extra")
	require.NotContains(t, p.User, "c.example/empty")
	require.Contains(t, p.User, "- Is a metal roof worth it?")

	again := BuildPrompt(" metal roof cost ", snap, pages, PromptOptions{Brand: "RoofQuote", ServiceArea: "Austin, TX", MaxHeadings: 2})
	require.Equal(t, p, again)
}

func TestBuildPromptMinimal(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("roof cost", SERPSnapshot{}, nil, PromptOptions{WordTarget: 800})
	require.Contains(t, p.User, "about 800 words")
	require.NotContains(t, p.User, "Currently ranking")
	require.NotContains(t, p.User, "Competitor outlines")
	require.NotContains(t, p.User, "people also ask")
}

func TestParseDraft(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	md := "```markdown\n# Metal Roof Cost in 2025: A Homeowner's Guide\n\n" +
		"A metal roof costs more up front\nbut lasts decades.\n\n## Price per square\n\nDetails here.\n```"

	d := ParseDraft("metal roof cost", md, now)
	require.Equal(t, "Metal Roof Cost in 2025: A Homeowner's Guide", d.Title)
	require.Equal(t, "metal-roof-cost-in-2025-a-homeowner-s-guide", d.Slug)
	require.Equal(t, "A metal roof costs more up front but lasts decades.", d.Excerpt)
	require.False(t, strings.HasPrefix(d.Markdown, "```"))
	require.False(t, strings.HasSuffix(d.Markdown, "```"))
	require.Equal(t, now, d.GeneratedAt)
	require.Positive(t, d.WordCount)
}

func TestParseDraftWithoutTitle(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("word ", 100)
	d := ParseDraft("roof  repair cost", "## Intro\n\n"+body, time.Time{})
	require.Equal(t, "Roof Repair Cost", d.Title)
	require.Equal(t, "roof-repair-cost", d.Slug)
	require.LessOrEqual(t, len([]rune(d.Excerpt)), ExcerptLength)
	require.True(t, strings.HasSuffix(d.Excerpt, "..."))
	require.Equal(t, 101, d.WordCount)
}

func TestProviderError(t *testing.T) {
	t.Parallel()

	var err error = &ProviderError{Provider: "serp", StatusCode: 429, Body: "slow down"}
	require.EqualError(t, err, "serp: unexpected status 429: slow down")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 429, pe.StatusCode)
	require.EqualError(t, &ProviderError{Provider: "cms", StatusCode: 404}, "cms: unexpected status 404")
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, JobStatusQueued.Terminal())
	require.False(t, JobStatusRunning.Terminal())
	require.True(t, JobStatusSucceeded.Terminal())
	require.True(t, JobStatusFailed.Terminal())
	require.True(t, JobStatusCanceled.Terminal())
}
