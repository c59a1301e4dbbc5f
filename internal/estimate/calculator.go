// Package estimate computes roof replacement price ranges from static
// material, pitch and regional lookup tables.
//
// A tier price is round((sqft/100) * (rate + tearOff) * pitch * region), where
// rate is the material's low, mid or high price per roofing square and tearOff
// is TearOffPerSquare when the existing roof must be removed.
package estimate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Lookup and validation errors returned by Calculate.
var (
	ErrUnknownMaterial    = errors.New("unknown material")
	ErrUnknownPitch       = errors.New("unknown pitch")
	ErrUnknownRegion      = errors.New("unknown region")
	ErrSquareFootageRange = errors.New("square footage out of range")
)

// Default square footage bounds accepted by the calculator.
const (
	DefaultMinSquareFeet = 100
	DefaultMaxSquareFeet = 100000
)

// Input is a single estimate request.
type Input struct {
	SquareFeet float64 `json:"square_feet"`
	Material   string  `json:"material"`
	Pitch      string  `json:"pitch"`
	Region     string  `json:"region,omitempty"`
	TearOff    bool    `json:"tear_off"`
}

// Estimate is the priced result for an Input.
type Estimate struct {
	Input            Input   `json:"input"`
	Squares          float64 `json:"squares"`
	Low              int     `json:"low"`
	Mid              int     `json:"mid"`
	High             int     `json:"high"`
	PitchMultiplier  float64 `json:"pitch_multiplier"`
	RegionMultiplier float64 `json:"region_multiplier"`
	TearOffPerSquare int     `json:"tear_off_per_square"`
}

// Config bounds calculator inputs.
type Config struct {
	MinSquareFeet float64
	MaxSquareFeet float64
	DefaultRegion string
}

// Calculator prices estimates against the built-in tables.
type Calculator struct {
	cfg Config
}

// NewCalculator builds a Calculator, filling zero config values with defaults.
func NewCalculator(cfg Config) *Calculator {
	if cfg.MinSquareFeet <= 0 {
		cfg.MinSquareFeet = DefaultMinSquareFeet
	}
	if cfg.MaxSquareFeet <= 0 {
		cfg.MaxSquareFeet = DefaultMaxSquareFeet
	}
	if strings.TrimSpace(cfg.DefaultRegion) == "" {
		cfg.DefaultRegion = DefaultRegion
	}
	return &Calculator{cfg: cfg}
}

// Calculate prices in with the package default bounds.
func Calculate(in Input) (Estimate, error) {
	return NewCalculator(Config{}).Calculate(in)
}

// Calculate validates in and returns the low/mid/high price range.
func (c *Calculator) Calculate(in Input) (Estimate, error) {
	sqft := in.SquareFeet
	if math.IsNaN(sqft) || math.IsInf(sqft, 0) || sqft < c.cfg.MinSquareFeet || sqft > c.cfg.MaxSquareFeet {
		return Estimate{}, fmt.Errorf("%w: %v not in [%v, %v]",
			ErrSquareFootageRange, sqft, c.cfg.MinSquareFeet, c.cfg.MaxSquareFeet)
	}
	material, err := LookupMaterial(in.Material)
	if err != nil {
		return Estimate{}, err
	}
	pitch, err := LookupPitch(in.Pitch)
	if err != nil {
		return Estimate{}, err
	}
	regionKey := in.Region
	if strings.TrimSpace(regionKey) == "" {
		regionKey = c.cfg.DefaultRegion
	}
	region, err := LookupRegion(regionKey)
	if err != nil {
		return Estimate{}, err
	}

	tearOff := 0
	if in.TearOff {
		tearOff = TearOffPerSquare
	}
	squares := sqft / SquareFeetPerSquare
	price := func(rate int) int {
		return int(math.Round(squares * float64(rate+tearOff) * pitch.Multiplier * region.Multiplier))
	}

	normalized := Input{
		SquareFeet: sqft,
		Material:   material.Key,
		Pitch:      pitch.Key,
		Region:     region.Key,
		TearOff:    in.TearOff,
	}
	return Estimate{
		Input:            normalized,
		Squares:          squares,
		Low:              price(material.Low),
		Mid:              price(material.Mid),
		High:             price(material.High),
		PitchMultiplier:  pitch.Multiplier,
		RegionMultiplier: region.Multiplier,
		TearOffPerSquare: tearOff,
	}, nil
}

// LookupMaterial resolves a material key.
func LookupMaterial(key string) (Material, error) {
	m, ok := materials[normalizeKey(key)]
	if !ok {
		return Material{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, key)
	}
	return m, nil
}

// LookupPitch resolves a pitch key.
func LookupPitch(key string) (Pitch, error) {
	p, ok := pitches[normalizeKey(key)]
	if !ok {
		return Pitch{}, fmt.Errorf("%w: %q", ErrUnknownPitch, key)
	}
	return p, nil
}

// LookupRegion resolves a region key.
func LookupRegion(key string) (Region, error) {
	r, ok := regions[normalizeKey(key)]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, key)
	}
	return r, nil
}

// RegionForState returns the pricing region for a two-letter state code.
func RegionForState(code string) (Region, error) {
	key, ok := stateRegions[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Region{}, fmt.Errorf("%w: no region for state %q", ErrUnknownRegion, code)
	}
	return regions[key], nil
}

// Materials returns every material sorted by key.
func Materials() []Material {
	out := make([]Material, 0, len(materials))
	for _, m := range materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Pitches returns every pitch sorted by multiplier, then key.
func Pitches() []Pitch {
	out := make([]Pitch, 0, len(pitches))
	for _, p := range pitches {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Multiplier != out[j].Multiplier {
			return out[i].Multiplier < out[j].Multiplier
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Regions returns every region sorted by key.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
