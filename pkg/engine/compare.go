package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

// Compare estimates the same resource set against every provider
// concurrently and ranks the results. An invalid set or a catalog gap
// fails the whole comparison: a ranking with a silently missing
// provider would not be apples-to-apples. Upstream trouble never fails
// it; the cache degrades to stale or static prices, and if the compare
// deadline itself expires the affected estimates are recomputed
// offline.
func (e *Engine) Compare(ctx context.Context, set pricing.ResourceSet) (ComparisonResult, error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Compare")
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Compare.Timeout)
	defer cancel()

	providers := pricing.Providers()
	estimates := make([]EstimateResult, len(providers))

	g, gctx := errgroup.WithContext(cctx)
	for i, provider := range providers {
		g.Go(func() error {
			est, err := e.estimate(gctx, provider, set, false)
			if err == nil {
				estimates[i] = est
				return nil
			}
			if pricing.IsInvalidSpec(err) {
				return err
			}
			if gctx.Err() == nil {
				return err
			}
			// Deadline passed mid-estimate. Answer from cached and
			// static data rather than failing the comparison.
			e.Logger.Warn("compare deadline passed, recomputing offline", "provider", provider)
			est, err = e.estimate(ctx, provider, set, true)
			if err != nil {
				return err
			}
			estimates[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ComparisonResult{}, err
	}

	result := ComparisonResult{
		Estimates:        estimates,
		CheapestProvider: estimates[0].Provider,
	}

	cheapest := decimal.NewFromFloat(estimates[0].TotalMonthlyCost)
	dearest := cheapest
	for _, est := range estimates[1:] {
		total := decimal.NewFromFloat(est.TotalMonthlyCost)
		// Strict less-than keeps the lexicographically first provider
		// on ties.
		if total.LessThan(cheapest) {
			cheapest = total
			result.CheapestProvider = est.Provider
		}
		if total.GreaterThan(dearest) {
			dearest = total
		}
	}

	savings := dearest.Sub(cheapest)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	result.PotentialSavings, _ = savings.RoundBank(2).Float64()

	span.SetAttributes(
		attribute.String("cheapest", string(result.CheapestProvider)),
		attribute.Float64("savings", result.PotentialSavings),
	)
	e.Logger.Info("comparison computed",
		"cheapest", result.CheapestProvider,
		"potential_savings", result.PotentialSavings)
	return result, nil
}
