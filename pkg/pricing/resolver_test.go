package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	exactPrices    = Prices{Input: 1, Output: 1, CacheRead: 1, CacheWrite: 1}
	wildPrices     = Prices{Input: 2, Output: 2, CacheRead: 2, CacheWrite: 2}
	defaultPrices  = Prices{Input: 4, Output: 4, CacheRead: 4, CacheWrite: 4}
	modelUnderTest = "claude-opus-4-6"
)

func TestResolve_TierPrecedence(t *testing.T) {
	r := NewResolver(DefaultCatalog(), map[string]Prices{"nvidia": defaultPrices})

	// all tiers populated for the same model/provider
	dev := NewDeviceOverrides()
	dev.AddModel(modelUnderTest, "nvidia", exactPrices)
	dev.AddProvider("nvidia", wildPrices)

	p, source := r.Resolve(modelUnderTest, "nvidia", dev)
	assert.Equal(t, exactPrices, p)
	assert.Equal(t, SourceDeviceModel, source)

	// drop the exact override: provider wildcard wins over config default
	dev = NewDeviceOverrides()
	dev.AddProvider("nvidia", wildPrices)
	p, source = r.Resolve(modelUnderTest, "nvidia", dev)
	assert.Equal(t, wildPrices, p)
	assert.Equal(t, SourceDeviceProvider, source)

	// no device rows: deployment default wins over the known-model table
	p, source = r.Resolve(modelUnderTest, "nvidia", NewDeviceOverrides())
	assert.Equal(t, defaultPrices, p)
	assert.Equal(t, SourceProviderDefault, source)

	// other provider: known model table
	p, source = r.Resolve(modelUnderTest, "anthropic", NewDeviceOverrides())
	assert.Equal(t, opusPrices, p)
	assert.Equal(t, SourceKnownModel, source)

	// unknown everything: fallback
	p, source = r.Resolve("mystery", "anthropic", NewDeviceOverrides())
	assert.Equal(t, sonnetPrices, p)
	assert.Equal(t, SourceFallback, source)
}

func TestResolve_ExactOverrideIgnoresProvider(t *testing.T) {
	r := NewResolver(DefaultCatalog(), nil)

	dev := NewDeviceOverrides()
	dev.AddModel("custom", "", exactPrices)
	dev.AddProvider("openrouter", wildPrices)

	p, source := r.Resolve("custom", "openrouter", dev)
	assert.Equal(t, exactPrices, p)
	assert.Equal(t, SourceDeviceModel, source)

	p, _ = r.Resolve("custom", "", dev)
	assert.Equal(t, exactPrices, p)
}

func TestResolve_ExactOverrideProviderTieBreak(t *testing.T) {
	r := NewResolver(DefaultCatalog(), nil)

	dev := NewDeviceOverrides()
	dev.AddModel("custom", "b", wildPrices)
	dev.AddModel("custom", "a", defaultPrices)

	p, _ := r.Resolve("custom", "b", dev)
	assert.Equal(t, wildPrices, p)

	// no matching provider and no blank row: smallest provider name
	p, _ = r.Resolve("custom", "z", dev)
	assert.Equal(t, defaultPrices, p)

	dev.AddModel("custom", "", exactPrices)
	p, _ = r.Resolve("custom", "z", dev)
	assert.Equal(t, exactPrices, p)
}

func TestResolve_WildcardIsProviderScoped(t *testing.T) {
	r := NewResolver(DefaultCatalog(), nil)

	dev := NewDeviceOverrides()
	dev.AddProvider("nvidia", Prices{})

	p, _ := r.Resolve("anything", "nvidia", dev)
	assert.Equal(t, Prices{}, p)

	p, source := r.Resolve("anything", "anthropic", dev)
	assert.Equal(t, sonnetPrices, p)
	assert.Equal(t, SourceFallback, source)
}

func TestEventOverrides_AgreesWithResolve(t *testing.T) {
	r := NewResolver(DefaultCatalog(), map[string]Prices{"bedrock": defaultPrices})

	dev := NewDeviceOverrides()
	dev.AddModel("custom", "", exactPrices)
	dev.AddProvider("nvidia", wildPrices)

	tokens := Tokens{Input: 1234, Output: 5678, CacheRead: 91011, CacheWrite: 1213}

	cases := []struct{ model, provider string }{
		{"custom", "nvidia"},
		{"llama", "nvidia"},
		{"llama", "bedrock"},
		{"claude-haiku-4-5-20251001", "anthropic"},
		{"llama", "anthropic"},
	}

	for _, c := range cases {
		p, _ := r.Resolve(c.model, c.provider, dev)
		want, _ := Catalog{Fallback: p}.ComputeCost("__none__", tokens, nil)
		got, _ := r.Cost(c.model, c.provider, tokens, dev)
		assert.Equal(t, want, got, "%s/%s", c.model, c.provider)
	}
}

func TestEventOverrides_Shape(t *testing.T) {
	r := NewResolver(DefaultCatalog(), map[string]Prices{"bedrock": defaultPrices})

	dev := NewDeviceOverrides()
	dev.AddModel("custom", "", exactPrices)
	dev.AddProvider("nvidia", wildPrices)

	assert.Equal(t, map[string]Prices{"custom": exactPrices}, r.EventOverrides("custom", "x", dev))
	assert.Equal(t, map[string]Prices{WildcardKey: wildPrices}, r.EventOverrides("llama", "nvidia", dev))
	assert.Equal(t, map[string]Prices{WildcardKey: defaultPrices}, r.EventOverrides("llama", "bedrock", dev))
	assert.Nil(t, r.EventOverrides("llama", "anthropic", dev))
}

func TestZeroPricedProviderYieldsZeroCost(t *testing.T) {
	r := NewResolver(DefaultCatalog(), nil)

	dev := NewDeviceOverrides()
	dev.AddProvider("nvidia", Prices{})

	total, breakdown := r.Cost("meta/llama-3.1-405b", "nvidia", Tokens{Input: 5000, Output: 900}, dev)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, Breakdown{}, breakdown)
}
