package blog

import (
	"strings"
	"time"

	"github.com/JakeFAU/roof-estimate/internal/textutil"
)

// ExcerptLength is the maximum excerpt size in runes.
const ExcerptLength = 160

// ParseDraft derives title, slug, excerpt and word count from generated
// markdown. The first "# " line is the title; without one the keyword is
// title-cased. The excerpt is the first plain paragraph after the title.
func ParseDraft(keyword, markdown string, generatedAt time.Time) Draft {
	markdown = strings.TrimSpace(stripFence(markdown))
	lines := strings.Split(markdown, "\n")

	title := ""
	var paragraph []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if title == "" && strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			continue
		}
		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		paragraph = append(paragraph, trimmed)
	}
	if title == "" {
		title = textutil.Title(keyword)
	}

	return Draft{
		Title:       title,
		Slug:        textutil.Slugify(title),
		Excerpt:     textutil.Truncate(strings.Join(paragraph, " "), ExcerptLength),
		Markdown:    markdown,
		WordCount:   textutil.WordCount(markdown),
		GeneratedAt: generatedAt,
	}
}

// stripFence removes a ```markdown fence some models wrap output in.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		return ""
	}
	t = strings.TrimSpace(t)
	return strings.TrimSuffix(t, "```")
}
