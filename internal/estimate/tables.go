package estimate

// Material is a roofing material with installed price tiers per roofing square.
type Material struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Low  int    `json:"low"`
	Mid  int    `json:"mid"`
	High int    `json:"high"`
}

// Pitch groups roof slopes that share a labor/material multiplier.
type Pitch struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// Region is a cost-of-labor area applied on top of material pricing.
type Region struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// SquareFeetPerSquare is the size of one roofing square.
const SquareFeetPerSquare = 100

// TearOffPerSquare is added to every price tier when the old roof is removed.
const TearOffPerSquare = 100

// DefaultRegion is used when a request carries no region.
const DefaultRegion = "national"

var materials = map[string]Material{
	"asphalt-3tab":          {Key: "asphalt-3tab", Name: "3-Tab Asphalt Shingle", Low: 350, Mid: 425, High: 500},
	"architectural-shingle": {Key: "architectural-shingle", Name: "Architectural Shingle", Low: 450, Mid: 550, High: 700},
	"metal-standing-seam":   {Key: "metal-standing-seam", Name: "Standing Seam Metal", Low: 900, Mid: 1150, High: 1400},
	"metal-corrugated":      {Key: "metal-corrugated", Name: "Corrugated Metal", Low: 500, Mid: 650, High: 800},
	"clay-tile":             {Key: "clay-tile", Name: "Clay Tile", Low: 1000, Mid: 1300, High: 1600},
	"concrete-tile":         {Key: "concrete-tile", Name: "Concrete Tile", Low: 700, Mid: 900, High: 1100},
	"slate":                 {Key: "slate", Name: "Natural Slate", Low: 1500, Mid: 2000, High: 2500},
	"wood-shake":            {Key: "wood-shake", Name: "Cedar Shake", Low: 650, Mid: 850, High: 1050},
	"flat-tpo":              {Key: "flat-tpo", Name: "TPO Membrane (Flat Roof)", Low: 500, Mid: 650, High: 800},
}

var pitches = map[string]Pitch{
	"flat":       {Key: "flat", Name: "Flat (0-2/12)", Multiplier: 1.00},
	"low":        {Key: "low", Name: "Low (3-4/12)", Multiplier: 1.00},
	"medium":     {Key: "medium", Name: "Medium (5-7/12)", Multiplier: 1.10},
	"steep":      {Key: "steep", Name: "Steep (8-10/12)", Multiplier: 1.25},
	"very-steep": {Key: "very-steep", Name: "Very Steep (11/12+)", Multiplier: 1.45},
}

var regions = map[string]Region{
	"national":      {Key: "national", Name: "National Average", Multiplier: 1.00},
	"northeast":     {Key: "northeast", Name: "Northeast", Multiplier: 1.15},
	"mid-atlantic":  {Key: "mid-atlantic", Name: "Mid-Atlantic", Multiplier: 1.08},
	"southeast":     {Key: "southeast", Name: "Southeast", Multiplier: 0.92},
	"midwest":       {Key: "midwest", Name: "Midwest", Multiplier: 0.95},
	"southwest":     {Key: "southwest", Name: "Southwest", Multiplier: 0.97},
	"mountain":      {Key: "mountain", Name: "Mountain West", Multiplier: 1.02},
	"pacific":       {Key: "pacific", Name: "Pacific Coast", Multiplier: 1.20},
	"alaska-hawaii": {Key: "alaska-hawaii", Name: "Alaska & Hawaii", Multiplier: 1.30},
}

// stateRegions maps USPS state codes to a pricing region.
var stateRegions = map[string]string{
	"CT": "northeast", "MA": "northeast", "ME": "northeast", "NH": "northeast",
	"NY": "northeast", "RI": "northeast", "VT": "northeast",
	"DC": "mid-atlantic", "DE": "mid-atlantic", "MD": "mid-atlantic", "NJ": "mid-atlantic",
	"PA": "mid-atlantic", "VA": "mid-atlantic", "WV": "mid-atlantic",
	"AL": "southeast", "AR": "southeast", "FL": "southeast", "GA": "southeast",
	"KY": "southeast", "LA": "southeast", "MS": "southeast", "NC": "southeast",
	"SC": "southeast", "TN": "southeast",
	"IA": "midwest", "IL": "midwest", "IN": "midwest", "KS": "midwest", "MI": "midwest",
	"MN": "midwest", "MO": "midwest", "ND": "midwest", "NE": "midwest", "OH": "midwest",
	"SD": "midwest", "WI": "midwest",
	"AZ": "southwest", "NM": "southwest", "OK": "southwest", "TX": "southwest",
	"CO": "mountain", "ID": "mountain", "MT": "mountain", "NV": "mountain",
	"UT": "mountain", "WY": "mountain",
	"CA": "pacific", "OR": "pacific", "WA": "pacific",
	"AK": "alaska-hawaii", "HI": "alaska-hawaii",
}
