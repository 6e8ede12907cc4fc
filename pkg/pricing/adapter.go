package pricing

import (
	"context"
	"fmt"
	"time"
)

// defaultFetchTimeout bounds a single upstream price lookup.
const defaultFetchTimeout = 4 * time.Second

// Adapter fetches live unit prices from one provider's pricing source.
// Implementations bound their own latency with a per-call timeout and never
// retry; retry/backoff policy belongs to the cache. Every failure is an
// *UpstreamError so the cache can apply its fallback chain uniformly.
type Adapter interface {
	Provider() Provider
	FetchUnitPrice(ctx context.Context, kind ResourceKind, skuKey string) (UnitPrice, error)
}

// AdapterSet indexes adapters by provider.
type AdapterSet map[Provider]Adapter

// For returns the adapter registered for a provider.
func (s AdapterSet) For(p Provider) (Adapter, bool) {
	a, ok := s[p]
	return a, ok
}

// errNoRoute marks SKUs that have no live pricing route on a provider. The
// cache treats it like any other upstream failure and serves the static price,
// without a wasted network round trip.
func errNoRoute(p Provider, skuKey string) *UpstreamError {
	return &UpstreamError{Provider: p, Reason: fmt.Sprintf("no live pricing route for sku %q", skuKey)}
}
