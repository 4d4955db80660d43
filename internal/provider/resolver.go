package provider

import (
	"fmt"
	"strings"
)

var (
	// ErrUnknownProvider means an explicit provider name is not in the
	// known set.
	ErrUnknownProvider = fmt.Errorf("unknown provider")
	// ErrProviderUnavailable means the named provider exists but is
	// missing required credentials.
	ErrProviderUnavailable = fmt.Errorf("provider is not available")
	// ErrNoProviderAvailable means probing found no usable provider.
	ErrNoProviderAvailable = fmt.Errorf("no provider is available, check your credentials configuration")
)

// probeOrder is the fixed priority in which providers are tried when
// neither the request nor the config names one.
var probeOrder = []string{"bedrock", "openai"}

// Resolver picks the adapter that serves a request: explicit override
// first, then the configured default, then the first available adapter
// in probe order. A Resolver is immutable once built; config reloads
// build a new one.
type Resolver struct {
	adapters    map[string]Adapter
	defaultName string
}

func NewResolver(defaultName string, adapters ...Adapter) *Resolver {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Resolver{adapters: m, defaultName: strings.ToLower(defaultName)}
}

// Resolve returns the adapter for the request. An explicit name (or the
// configured default, when no explicit name is given) is strict: it
// must exist and be available. Only when neither selects anything are
// the adapters probed in order.
func (r *Resolver) Resolve(explicit string) (Adapter, error) {
	name := strings.ToLower(explicit)
	if name == "" {
		name = r.defaultName
	}

	if name != "" {
		a, ok := r.adapters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		if !a.Available() {
			return nil, fmt.Errorf("%w: %s (missing credentials?)", ErrProviderUnavailable, name)
		}
		return a, nil
	}

	for _, n := range probeOrder {
		if a, ok := r.adapters[n]; ok && a.Available() {
			return a, nil
		}
	}
	return nil, ErrNoProviderAvailable
}

// Default returns the statically configured default provider name, or
// empty when resolution falls through to probing.
func (r *Resolver) Default() string { return r.defaultName }

// Adapters returns the known adapters in probe order, for the
// informational providers listing.
func (r *Resolver) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, n := range probeOrder {
		if a, ok := r.adapters[n]; ok {
			out = append(out, a)
		}
	}
	return out
}
