// Package locations holds the static table of served cities and resolves each
// one to a pricing region.
package locations

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JakeFAU/roof-estimate/internal/estimate"
	"github.com/JakeFAU/roof-estimate/internal/textutil"
)

// ErrNotFound is returned when a slug is not in the table.
var ErrNotFound = errors.New("location not found")

// Location is a city page target.
type Location struct {
	Slug       string `json:"slug"`
	City       string `json:"city"`
	State      string `json:"state"`
	StateCode  string `json:"state_code"`
	Region     string `json:"region"`
	Population int    `json:"population"`
}

type seed struct {
	city, state, code string
	population        int
}

var seeds = []seed{
	{"Austin", "Texas", "TX", 974447},
	{"Dallas", "Texas", "TX", 1302868},
	{"Houston", "Texas", "TX", 2314157},
	{"San Antonio", "Texas", "TX", 1495295},
	{"Phoenix", "Arizona", "AZ", 1650070},
	{"Tucson", "Arizona", "AZ", 546574},
	{"Denver", "Colorado", "CO", 716577},
	{"Salt Lake City", "Utah", "UT", 209593},
	{"Las Vegas", "Nevada", "NV", 660929},
	{"Los Angeles", "California", "CA", 3820914},
	{"San Diego", "California", "CA", 1388320},
	{"Sacramento", "California", "CA", 526384},
	{"Portland", "Oregon", "OR", 630498},
	{"Seattle", "Washington", "WA", 755078},
	{"Atlanta", "Georgia", "GA", 510823},
	{"Charlotte", "North Carolina", "NC", 911311},
	{"Raleigh", "North Carolina", "NC", 482295},
	{"Nashville", "Tennessee", "TN", 687788},
	{"Tampa", "Florida", "FL", 403364},
	{"Orlando", "Florida", "FL", 320742},
	{"Miami", "Florida", "FL", 455924},
	{"Jacksonville", "Florida", "FL", 985843},
	{"New Orleans", "Louisiana", "LA", 364136},
	{"Chicago", "Illinois", "IL", 2664452},
	{"Columbus", "Ohio", "OH", 913175},
	{"Indianapolis", "Indiana", "IN", 879293},
	{"Minneapolis", "Minnesota", "MN", 425115},
	{"Kansas City", "Missouri", "MO", 516032},
	{"Detroit", "Michigan", "MI", 633218},
	{"Philadelphia", "Pennsylvania", "PA", 1550542},
	{"Pittsburgh", "Pennsylvania", "PA", 303255},
	{"Baltimore", "Maryland", "MD", 565239},
	{"Richmond", "Virginia", "VA", 229395},
	{"Boston", "Massachusetts", "MA", 653833},
	{"New York", "New York", "NY", 8258035},
	{"Hartford", "Connecticut", "CT", 120689},
	{"Oklahoma City", "Oklahoma", "OK", 702767},
	{"Albuquerque", "New Mexico", "NM", 560274},
	{"Boise", "Idaho", "ID", 237446},
	{"Anchorage", "Alaska", "AK", 286075},
	{"Honolulu", "Hawaii", "HI", 341778},
}

var (
	bySlug  map[string]Location
	ordered []Location
)

func init() {
	bySlug = make(map[string]Location, len(seeds))
	for _, s := range seeds {
		region, err := estimate.RegionForState(s.code)
		if err != nil {
			panic(fmt.Sprintf("locations: %v", err))
		}
		loc := Location{
			Slug:       textutil.Slugify(s.city + " " + s.code),
			City:       s.city,
			State:      s.state,
			StateCode:  s.code,
			Region:     region.Key,
			Population: s.population,
		}
		bySlug[loc.Slug] = loc
		ordered = append(ordered, loc)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Slug < ordered[j].Slug })
}

// Lookup returns the location for slug.
func Lookup(slug string) (Location, error) {
	loc, ok := bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return loc, nil
}

// All returns every location sorted by slug.
func All() []Location {
	out := make([]Location, len(ordered))
	copy(out, ordered)
	return out
}

// ByState returns the locations for a two-letter state code.
func ByState(code string) []Location {
	code = strings.ToUpper(strings.TrimSpace(code))
	var out []Location
	for _, loc := range ordered {
		if loc.StateCode == code {
			out = append(out, loc)
		}
	}
	return out
}
