package blog

import (
	"fmt"
	"strings"
)

// PromptOptions carries the site voice injected into every prompt.
type PromptOptions struct {
	Brand       string
	ServiceArea string
	WordTarget  int
	// MaxHeadings caps competitor headings listed per page.
	MaxHeadings int
}

// DefaultWordTarget is used when neither the job nor the config sets one.
const DefaultWordTarget = 1200

const defaultMaxHeadings = 12

const systemInstruction = `You are a senior content writer for a residential roofing estimate service.
Write accurate, practical articles for homeowners. Use US units and dollar amounts.
Never invent statistics, certifications, or named contractors.
Return GitHub-flavored Markdown only: start with a single "# " title line, then an intro paragraph,
then "## " sections. Do not wrap the output in code fences.`

// BuildPrompt assembles a deterministic prompt from the research gathered
// for keyword.
func BuildPrompt(keyword string, snapshot SERPSnapshot, pages []CompetitorPage, opts PromptOptions) Prompt {
	if opts.WordTarget <= 0 {
		opts.WordTarget = DefaultWordTarget
	}
	if opts.MaxHeadings <= 0 {
		opts.MaxHeadings = defaultMaxHeadings
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Target keyword: %s\n", strings.TrimSpace(keyword))
	fmt.Fprintf(&b, "Target length: about %d words\n", opts.WordTarget)
	if opts.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", opts.Brand)
	}
	if opts.ServiceArea != "" {
		fmt.Fprintf(&b, "Service area: %s\n", opts.ServiceArea)
	}

	if len(snapshot.Organic) > 0 {
		b.WriteString("\nCurrently ranking pages:\n")
		for _, r := range snapshot.Organic {
			fmt.Fprintf(&b, "%d. %s (%s)\n", r.Position, r.Title, r.URL)
		}
	}

	wrote := false
	for _, page := range pages {
		if len(page.Headings) == 0 {
			continue
		}
		if !wrote {
			b.WriteString("\nCompetitor outlines:\n")
			wrote = true
		}
		title := page.Title
		if title == "" {
			title = page.URL
		}
		fmt.Fprintf(&b, "- %s (%d words)\n", title, page.WordCount)
		headings := page.Headings
		if len(headings) > opts.MaxHeadings {
			headings = headings[:opts.MaxHeadings]
		}
		for _, h := range headings {
			fmt.Fprintf(&b, "  - %s\n", h)
		}
	}

	if len(snapshot.Questions) > 0 {
		b.WriteString("\nAnswer these questions people also ask:\n")
		for _, q := range snapshot.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	b.WriteString("\nCover everything the competitors cover, then add what they miss. " +
		"Include a section explaining how roof size, pitch, material and region change the price, " +
		"and close with a short call to action to get a free instant estimate.\n")

	return Prompt{System: systemInstruction, User: b.String()}
}
