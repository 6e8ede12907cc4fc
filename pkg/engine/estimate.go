package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

// Validation bounds. The HTTP layer and the UI validate too; these are
// the engine's own boundary so library callers get the same checks.
const (
	maxQuantity      = 1000
	maxHoursPerMonth = 744
	minStorageGB     = 0.1
	maxStorageGB     = 1_000_000
	maxDBStorageGB   = 65_536
	maxRetentionDays = 365
	maxEgressGB      = 1_000_000

	// flatMonthlyHours converts hourly rates to flat monthly charges.
	flatMonthlyHours = 730
)

// plannedLine is a breakdown row before pricing. Planning resolves
// every SKU and validates every bound up front, so an invalid set is
// rejected before the first cache or adapter call.
type plannedLine struct {
	kind     pricing.ResourceKind
	skuKey   string
	label    string
	quantity float64
}

// Estimate prices a resource set against one provider. It returns
// *pricing.InvalidSpecError for out-of-range or unresolvable specs and
// *pricing.UnresolvableSkuError when the static catalog itself has a
// gap; upstream trouble degrades to cached or static prices instead of
// failing.
func (e *Engine) Estimate(ctx context.Context, provider pricing.Provider, set pricing.ResourceSet) (EstimateResult, error) {
	return e.estimate(ctx, provider, set, false)
}

// EstimateOffline prices without touching any adapter, from cached and
// static data only. Comparison uses it once its deadline has passed.
func (e *Engine) EstimateOffline(ctx context.Context, provider pricing.Provider, set pricing.ResourceSet) (EstimateResult, error) {
	return e.estimate(ctx, provider, set, true)
}

func (e *Engine) estimate(ctx context.Context, provider pricing.Provider, set pricing.ResourceSet, offline bool) (EstimateResult, error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Estimate")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(provider)),
		attribute.Bool("offline", offline),
	)

	plan, err := e.plan(provider, set)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EstimateResult{}, err
	}

	result := EstimateResult{
		Provider:   provider,
		Currency:   e.catalog.Currency(),
		ComputedAt: e.now(),
	}

	total := decimal.Zero
	var sources []string
	seen := make(map[string]bool)

	for _, line := range plan {
		price, err := e.price(ctx, offline, provider, line.kind, line.skuKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return EstimateResult{}, err
		}

		cost := decimal.NewFromFloat(price.UnitCost).Mul(decimal.NewFromFloat(line.quantity))
		total = total.Add(cost)

		// Line items keep full precision; rounding happens once at the
		// total so the breakdown always sums to it. Display layers round
		// when rendering.
		monthly, _ := cost.Float64()
		result.Breakdown = append(result.Breakdown, CostLineItem{
			Label:        line.label,
			UnitCost:     price.UnitCost,
			Quantity:     line.quantity,
			MonthlyCost:  monthly,
			SourceLabel:  price.SourceLabel,
			ResourceKind: line.kind,
		})

		note := price.SourceLabel
		if price.IsLive {
			note += " (verified)"
		}
		if !seen[note] {
			seen[note] = true
			sources = append(sources, note)
		}
	}

	monthly := total.RoundBank(2)
	annual := monthly.Mul(decimal.NewFromInt(12))
	result.TotalMonthlyCost, _ = monthly.Float64()
	result.TotalAnnualCost, _ = annual.Float64()

	if len(sources) > 0 {
		result.PricingNote = "Sources: " + strings.Join(sources, "; ")
	} else {
		result.PricingNote = "No resources selected"
	}

	e.Logger.Debug("estimate computed",
		"provider", provider,
		"lines", len(result.Breakdown),
		"monthly_total", result.TotalMonthlyCost,
		"offline", offline)
	return result, nil
}

func (e *Engine) price(ctx context.Context, offline bool, p pricing.Provider, kind pricing.ResourceKind, skuKey string) (pricing.UnitPrice, error) {
	if offline {
		return e.cache.GetPriceOffline(p, kind, skuKey)
	}
	return e.cache.GetPrice(ctx, p, kind, skuKey)
}

// plan validates the set and resolves every SKU, producing the ordered
// breakdown skeleton: compute, storage, database instance, database
// storage, data transfer, load balancer. Zero-quantity rows are
// dropped here, not emitted as zero-cost lines.
func (e *Engine) plan(provider pricing.Provider, set pricing.ResourceSet) ([]plannedLine, error) {
	if !provider.Valid() {
		return nil, pricing.NewInvalidSpec("provider", "unknown provider %q", provider)
	}

	var plan []plannedLine

	if c := set.Compute; c != nil {
		if c.Quantity < 1 || c.Quantity > maxQuantity {
			return nil, pricing.NewInvalidSpec("compute.quantity", "must be between 1 and %d, got %d", maxQuantity, c.Quantity)
		}
		if c.HoursPerMonth < 1 || c.HoursPerMonth > maxHoursPerMonth {
			return nil, pricing.NewInvalidSpec("compute.hours_per_month", "must be between 1 and %d, got %g", maxHoursPerMonth, c.HoursPerMonth)
		}
		sku, err := e.catalog.ResolveCompute(provider, c.Size)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedLine{
			kind:     pricing.KindCompute,
			skuKey:   sku.Key,
			label:    fmt.Sprintf("Compute (%s) x%d", c.Size, c.Quantity),
			quantity: c.HoursPerMonth * float64(c.Quantity),
		})
	}

	if s := set.Storage; s != nil {
		if s.SizeGB < minStorageGB || s.SizeGB > maxStorageGB {
			return nil, pricing.NewInvalidSpec("storage.size_gb", "must be between %g and %d, got %g", minStorageGB, maxStorageGB, s.SizeGB)
		}
		sku, err := e.catalog.ResolveStorage(provider, s.Class)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedLine{
			kind:     pricing.KindStorage,
			skuKey:   sku.Key,
			label:    fmt.Sprintf("Storage (%s)", s.Class),
			quantity: s.SizeGB,
		})
	}

	if d := set.Database; d != nil {
		if d.StorageGB < 0 || d.StorageGB > maxDBStorageGB {
			return nil, pricing.NewInvalidSpec("database.storage_gb", "must be between 0 and %d, got %g", maxDBStorageGB, d.StorageGB)
		}
		if d.BackupRetentionDays < 0 || d.BackupRetentionDays > maxRetentionDays {
			return nil, pricing.NewInvalidSpec("database.backup_retention_days", "must be between 0 and %d, got %d", maxRetentionDays, d.BackupRetentionDays)
		}
		if d.Tier.TierMultiplier() == 0 {
			return nil, pricing.NewInvalidSpec("database.tier", "unknown tier %q", d.Tier)
		}
		sku, err := e.catalog.ResolveDatabase(provider, d.Type)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedLine{
			kind:     pricing.KindDatabase,
			skuKey:   sku.Key,
			label:    fmt.Sprintf("Database (%s, %s)", d.Type, d.Tier),
			quantity: flatMonthlyHours * d.Tier.TierMultiplier(),
		})
		// Backup retention folds into the storage row as a multiplier:
		// each 30 days of retention adds roughly one extra stored copy.
		if d.StorageGB > 0 {
			retention := 1 + float64(d.BackupRetentionDays)/30
			plan = append(plan, plannedLine{
				kind:     pricing.KindDatabase,
				skuKey:   e.catalog.DatabaseStorage(provider).Key,
				label:    "Database Storage",
				quantity: d.StorageGB * retention,
			})
		}
	}

	if set.EgressGB != 0 {
		if set.EgressGB < 0 || set.EgressGB > maxEgressGB {
			return nil, pricing.NewInvalidSpec("data_transfer_gb", "must be between 0 and %d, got %g", maxEgressGB, set.EgressGB)
		}
		plan = append(plan, plannedLine{
			kind:     pricing.KindNetwork,
			skuKey:   e.catalog.Egress(provider).Key,
			label:    "Data Transfer Out",
			quantity: set.EgressGB,
		})
	}

	if set.IncludeLoadBalancer {
		plan = append(plan, plannedLine{
			kind:     pricing.KindLoadBalancer,
			skuKey:   e.catalog.LoadBalancer(provider).Key,
			label:    "Load Balancer",
			quantity: flatMonthlyHours,
		})
	}

	return plan, nil
}
