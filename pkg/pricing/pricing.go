// Package pricing resolves per-token prices for a model and turns token counts
// into a USD cost breakdown. All prices are USD per million tokens.
package pricing

const perMillion = 1_000_000

// WildcardKey is the override map key matching any model.
const WildcardKey = "*"

type Prices struct {
	Input      float64 `json:"input" yaml:"input"`
	Output     float64 `json:"output" yaml:"output"`
	CacheRead  float64 `json:"cache_read" yaml:"cache_read"`
	CacheWrite float64 `json:"cache_write" yaml:"cache_write"`
}

type Tokens struct {
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
}

func (t Tokens) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite
}

type Breakdown struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cache_read"`
	CacheWrite float64 `json:"cache_write"`
}

func (b Breakdown) Total() float64 {
	return b.Input + b.Output + b.CacheRead + b.CacheWrite
}

// Catalog is the table of globally known models plus the price used for
// anything it does not list.
type Catalog struct {
	Known    map[string]Prices
	Fallback Prices
}

var (
	opusPrices   = Prices{Input: 15.0, Output: 75.0, CacheRead: 1.5, CacheWrite: 18.75}
	sonnetPrices = Prices{Input: 3.0, Output: 15.0, CacheRead: 0.30, CacheWrite: 3.75}
	haikuPrices  = Prices{Input: 0.80, Output: 4.0, CacheRead: 0.08, CacheWrite: 1.0}
)

// FallbackModel is priced like any model missing from the default catalog.
const FallbackModel = "claude-sonnet-4-5-20250929"

func DefaultCatalog() Catalog {
	return Catalog{
		Known: map[string]Prices{
			"claude-opus-4-6":            opusPrices,
			"claude-opus-4-5-20251101":   opusPrices,
			"claude-sonnet-4-5-20250929": sonnetPrices,
			"claude-haiku-4-5-20251001":  haikuPrices,
		},
		Fallback: sonnetPrices,
	}
}

func (c Catalog) Lookup(model string) Prices {
	if p, ok := c.Known[model]; ok {
		return p
	}
	return c.Fallback
}

// ComputeCost prices the token counts for model. overrides, when given, is
// consulted first by exact model then by WildcardKey before the catalog.
// Never fails and never rounds.
func (c Catalog) ComputeCost(model string, tokens Tokens, overrides map[string]Prices) (float64, Breakdown) {
	prices, found := overrides[model]
	if !found {
		prices, found = overrides[WildcardKey]
	}
	if !found {
		prices = c.Lookup(model)
	}

	breakdown := Breakdown{
		Input:      float64(tokens.Input) * prices.Input / perMillion,
		Output:     float64(tokens.Output) * prices.Output / perMillion,
		CacheRead:  float64(tokens.CacheRead) * prices.CacheRead / perMillion,
		CacheWrite: float64(tokens.CacheWrite) * prices.CacheWrite / perMillion,
	}
	return breakdown.Total(), breakdown
}
