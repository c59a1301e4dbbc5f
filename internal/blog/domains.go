package blog

import (
	"net/url"
	"strings"
)

// DomainFilter matches hosts against exact names and "*.suffix" wildcards.
// A nil filter matches nothing.
type DomainFilter struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewDomainFilter builds a filter from patterns such as "youtube.com",
// "*.gov" or ".reddit.com". It returns nil when no usable pattern is given.
func NewDomainFilter(patterns []string) *DomainFilter {
	f := &DomainFilter{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
			continue
		case strings.HasPrefix(value, "*."):
			f.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			f.addSuffix(strings.TrimPrefix(value, "."))
		default:
			f.exact[strings.TrimPrefix(value, "www.")] = struct{}{}
		}
	}
	if len(f.exact) == 0 && len(f.suffixes) == 0 {
		return nil
	}
	return f
}

func (f *DomainFilter) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range f.suffixes {
		if existing == suffix {
			return
		}
	}
	f.suffixes = append(f.suffixes, suffix)
}

// MatchHost reports whether host is covered. A leading "www." is ignored
// for exact entries.
func (f *DomainFilter) MatchHost(host string) bool {
	if f == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if host == "" {
		return false
	}
	if _, ok := f.exact[strings.TrimPrefix(host, "www.")]; ok {
		return true
	}
	for _, suffix := range f.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// MatchURL parses rawURL and matches its host. Unparseable URLs never match.
func (f *DomainFilter) MatchURL(rawURL string) bool {
	if f == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return f.MatchHost(u.Hostname())
}
