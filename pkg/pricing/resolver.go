package pricing

import "sort"

// Source names the tier that produced a resolved price.
type Source string

const (
	SourceDeviceModel     Source = "device_model"
	SourceDeviceProvider  Source = "device_provider"
	SourceProviderDefault Source = "provider_default"
	SourceKnownModel      Source = "known_model"
	SourceFallback        Source = "fallback"
)

// DeviceOverrides is the per-device override state loaded from storage.
type DeviceOverrides struct {
	// model -> provider -> prices
	Models map[string]map[string]Prices
	// provider -> prices, from model "*" rows
	Providers map[string]Prices
}

func NewDeviceOverrides() DeviceOverrides {
	return DeviceOverrides{
		Models:    map[string]map[string]Prices{},
		Providers: map[string]Prices{},
	}
}

func (d DeviceOverrides) Empty() bool {
	return len(d.Models) == 0 && len(d.Providers) == 0
}

// AddModel registers an exact model override.
func (d DeviceOverrides) AddModel(model, provider string, p Prices) {
	byProvider, ok := d.Models[model]
	if !ok {
		byProvider = map[string]Prices{}
		d.Models[model] = byProvider
	}
	byProvider[provider] = p
}

func (d DeviceOverrides) AddProvider(provider string, p Prices) {
	d.Providers[provider] = p
}

// exactModel ignores provider for the match itself; when one model carries
// rows for several providers the event's provider wins, then the row without
// a provider, then the smallest provider name.
func (d DeviceOverrides) exactModel(model, provider string) (Prices, bool) {
	byProvider, ok := d.Models[model]
	if !ok || len(byProvider) == 0 {
		return Prices{}, false
	}
	if p, ok := byProvider[provider]; ok {
		return p, true
	}
	if p, ok := byProvider[""]; ok {
		return p, true
	}
	keys := make([]string, 0, len(byProvider))
	for k := range byProvider {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return byProvider[keys[0]], true
}

// Resolver applies device overrides and deployment provider defaults on top
// of a Catalog.
type Resolver struct {
	Catalog          Catalog
	ProviderDefaults map[string]Prices
}

func NewResolver(catalog Catalog, providerDefaults map[string]Prices) *Resolver {
	if providerDefaults == nil {
		providerDefaults = map[string]Prices{}
	}
	return &Resolver{Catalog: catalog, ProviderDefaults: providerDefaults}
}

// Resolve returns the effective prices for model/provider, first match wins:
// device model override, device provider wildcard, deployment provider
// default, known model, fallback.
func (r *Resolver) Resolve(model, provider string, dev DeviceOverrides) (Prices, Source) {
	if p, ok := dev.exactModel(model, provider); ok {
		return p, SourceDeviceModel
	}
	if p, ok := dev.Providers[provider]; ok {
		return p, SourceDeviceProvider
	}
	if p, ok := r.ProviderDefaults[provider]; ok {
		return p, SourceProviderDefault
	}
	if p, ok := r.Catalog.Known[model]; ok {
		return p, SourceKnownModel
	}
	return r.Catalog.Fallback, SourceFallback
}

// EventOverrides builds the override map ComputeCost needs for one event so
// that the result always agrees with Resolve. Returns nil when only the
// catalog applies.
func (r *Resolver) EventOverrides(model, provider string, dev DeviceOverrides) map[string]Prices {
	p, source := r.Resolve(model, provider, dev)
	switch source {
	case SourceDeviceModel:
		return map[string]Prices{model: p}
	case SourceDeviceProvider, SourceProviderDefault:
		return map[string]Prices{WildcardKey: p}
	default:
		return nil
	}
}

// Cost resolves and prices in one step.
func (r *Resolver) Cost(model, provider string, tokens Tokens, dev DeviceOverrides) (float64, Breakdown) {
	return r.Catalog.ComputeCost(model, tokens, r.EventOverrides(model, provider, dev))
}
