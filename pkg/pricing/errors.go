package pricing

import (
	"errors"
	"fmt"
)

// InvalidSpecError rejects malformed input before any pricing work happens.
// Surfaced to callers as a 4xx-equivalent; never retried.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec: %s: %s", e.Field, e.Reason)
}

// NewInvalidSpec builds an InvalidSpecError for a single offending field.
func NewInvalidSpec(field, format string, args ...any) *InvalidSpecError {
	return &InvalidSpecError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed live price fetch: timeout, non-2xx response, or
// an unparseable payload. It never escapes the cache layer; the fallback chain
// converts it into a degraded-but-usable price.
type UpstreamError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s pricing upstream: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s pricing upstream: %s", e.Provider, e.Reason)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstreamf(p Provider, err error, format string, args ...any) *UpstreamError {
	return &UpstreamError{Provider: p, Reason: fmt.Sprintf(format, args...), Err: err}
}

// UnresolvableSkuError means no live price, no cached price, and no static
// fallback exist for a SKU. This is a configuration gap in the reference table,
// surfaced as a 5xx-equivalent and logged as an operational alert.
type UnresolvableSkuError struct {
	Provider     Provider
	ResourceKind ResourceKind
	SKUKey       string
}

func (e *UnresolvableSkuError) Error() string {
	return fmt.Sprintf("no price resolvable for %s/%s sku %q", e.Provider, e.ResourceKind, e.SKUKey)
}

// IsInvalidSpec reports whether err is (or wraps) an InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var ise *InvalidSpecError
	return errors.As(err, &ise)
}
