package blog

import (
	"sort"
	"strings"
)

// OpportunityOptions filters Search Console rows down to "striking distance"
// queries: ones that already rank on page one or two but below the top three.
type OpportunityOptions struct {
	MinPosition    float64
	MaxPosition    float64
	MinImpressions float64
	Limit          int
	// ExcludeTerms drops queries containing any of these substrings (brand terms).
	ExcludeTerms []string
}

// Default opportunity filter values.
const (
	DefaultMinPosition    = 4
	DefaultMaxPosition    = 20
	DefaultMinImpressions = 50
)

func (o OpportunityOptions) withDefaults() OpportunityOptions {
	if o.MinPosition <= 0 {
		o.MinPosition = DefaultMinPosition
	}
	if o.MaxPosition <= 0 {
		o.MaxPosition = DefaultMaxPosition
	}
	if o.MinImpressions <= 0 {
		o.MinImpressions = DefaultMinImpressions
	}
	return o
}

// OpportunityScore estimates the clicks a query is leaving on the table.
func OpportunityScore(row KeywordRow) float64 {
	ctr := row.CTR
	if ctr < 0 {
		ctr = 0
	}
	if ctr > 1 {
		ctr = 1
	}
	return row.Impressions * (1 - ctr)
}

// SelectOpportunities filters and ranks rows by OpportunityScore, highest
// first, breaking ties by query. The input slice is not modified.
func SelectOpportunities(rows []KeywordRow, opts OpportunityOptions) []KeywordRow {
	opts = opts.withDefaults()
	out := make([]KeywordRow, 0, len(rows))
	for _, row := range rows {
		query := strings.TrimSpace(row.Query)
		if query == "" {
			continue
		}
		if row.Position < opts.MinPosition || row.Position > opts.MaxPosition {
			continue
		}
		if row.Impressions < opts.MinImpressions {
			continue
		}
		if containsAny(strings.ToLower(query), opts.ExcludeTerms) {
			continue
		}
		row.Query = query
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := OpportunityScore(out[i]), OpportunityScore(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].Query < out[j].Query
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(s, term) {
			return true
		}
	}
	return false
}
