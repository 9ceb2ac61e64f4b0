package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCost_KnownModels(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		model  string
		tokens Tokens
		total  float64
	}{
		{"claude-opus-4-6", Tokens{Input: 1_000_000}, 15.0},
		{"claude-opus-4-5-20251101", Tokens{Output: 1_000_000}, 75.0},
		{"claude-sonnet-4-5-20250929", Tokens{CacheRead: 1_000_000}, 0.30},
		{"claude-haiku-4-5-20251001", Tokens{CacheWrite: 1_000_000}, 1.0},
		{"claude-haiku-4-5-20251001", Tokens{Input: 500_000, Output: 250_000}, 0.40 + 1.0},
	}

	for _, tt := range tests {
		total, breakdown := catalog.ComputeCost(tt.model, tt.tokens, nil)
		assert.InDelta(t, tt.total, total, 1e-9, tt.model)
		assert.InDelta(t, breakdown.Total(), total, 1e-12)
	}
}

func TestComputeCost_Breakdown(t *testing.T) {
	catalog := DefaultCatalog()

	total, breakdown := catalog.ComputeCost("claude-opus-4-6", Tokens{
		Input: 1000, Output: 2000, CacheRead: 3000, CacheWrite: 4000,
	}, nil)

	assert.InDelta(t, 1000*15.0/1e6, breakdown.Input, 1e-12)
	assert.InDelta(t, 2000*75.0/1e6, breakdown.Output, 1e-12)
	assert.InDelta(t, 3000*1.5/1e6, breakdown.CacheRead, 1e-12)
	assert.InDelta(t, 4000*18.75/1e6, breakdown.CacheWrite, 1e-12)
	assert.InDelta(t, 0.015+0.15+0.0045+0.075, total, 1e-12)
}

func TestComputeCost_UnknownModelMatchesFallback(t *testing.T) {
	catalog := DefaultCatalog()
	tokens := Tokens{Input: 12345, Output: 6789, CacheRead: 1011, CacheWrite: 1213}

	fallbackTotal, fallbackBreakdown := catalog.ComputeCost(FallbackModel, tokens, nil)

	for _, model := range []string{"gpt-4o", "", "unknown", "claude-opus-9"} {
		total, breakdown := catalog.ComputeCost(model, tokens, nil)
		assert.Equal(t, fallbackTotal, total, model)
		assert.Equal(t, fallbackBreakdown, breakdown, model)
	}
}

func TestComputeCost_ZeroTokens(t *testing.T) {
	total, breakdown := DefaultCatalog().ComputeCost("claude-opus-4-6", Tokens{}, nil)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, Breakdown{}, breakdown)
}

func TestComputeCost_NoRounding(t *testing.T) {
	total, _ := DefaultCatalog().ComputeCost("claude-haiku-4-5-20251001", Tokens{Input: 1}, nil)
	assert.Equal(t, 0.80/1e6, total)
}

func TestComputeCost_OverrideOrder(t *testing.T) {
	catalog := DefaultCatalog()
	exact := Prices{Input: 1, Output: 1, CacheRead: 1, CacheWrite: 1}
	wild := Prices{Input: 2, Output: 2, CacheRead: 2, CacheWrite: 2}
	tokens := Tokens{Input: 1_000_000}

	total, _ := catalog.ComputeCost("m", tokens, map[string]Prices{"m": exact, WildcardKey: wild})
	assert.Equal(t, 1.0, total)

	total, _ = catalog.ComputeCost("m", tokens, map[string]Prices{WildcardKey: wild})
	assert.Equal(t, 2.0, total)

	// overrides for other models fall through to the catalog
	total, _ = catalog.ComputeCost("claude-opus-4-6", tokens, map[string]Prices{"m": exact})
	assert.Equal(t, 15.0, total)

	total, _ = catalog.ComputeCost("m", tokens, map[string]Prices{})
	assert.Equal(t, 3.0, total)
}

func TestCatalogIsInjectable(t *testing.T) {
	catalog := Catalog{
		Known:    map[string]Prices{"local-llm": {}},
		Fallback: Prices{Input: 100},
	}

	total, _ := catalog.ComputeCost("local-llm", Tokens{Input: 1_000_000}, nil)
	assert.Equal(t, 0.0, total)

	total, _ = catalog.ComputeCost("other", Tokens{Input: 1_000_000}, nil)
	assert.Equal(t, 100.0, total)
}
