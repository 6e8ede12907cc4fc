package engine

import (
	"time"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

// CostLineItem is one row of an estimate breakdown. Derived per
// request from a UnitPrice and a spec quantity, never stored.
type CostLineItem struct {
	Label        string               `json:"label"`
	UnitCost     float64              `json:"unit_cost"`
	Quantity     float64              `json:"quantity"`
	MonthlyCost  float64              `json:"monthly_cost"`
	SourceLabel  string               `json:"source_label"`
	ResourceKind pricing.ResourceKind `json:"resource_kind"`
}

// EstimateResult is the priced breakdown for one provider.
//
// TotalMonthlyCost equals the sum of the breakdown to the cent. Line
// items carry full precision; the total is rounded half-even once, so
// per-line rounding error never compounds. Display layers round when
// rendering.
type EstimateResult struct {
	Provider         pricing.Provider `json:"provider"`
	Breakdown        []CostLineItem   `json:"breakdown"`
	TotalMonthlyCost float64          `json:"total_monthly_cost"`
	TotalAnnualCost  float64          `json:"total_annual_cost"`
	Currency         string           `json:"currency"`
	ComputedAt       time.Time        `json:"computed_at"`
	PricingNote      string           `json:"pricing_note"`
}

// ComparisonResult ranks all providers for one resource set.
//
// Estimates are ordered aws, azure, gcp. CheapestProvider is the
// argmin of monthly totals; on a tie the lexicographically first
// provider wins, which the fixed estimate order makes automatic.
type ComparisonResult struct {
	Estimates        []EstimateResult `json:"estimates"`
	CheapestProvider pricing.Provider `json:"cheapest_provider"`
	PotentialSavings float64          `json:"potential_savings"`
}
