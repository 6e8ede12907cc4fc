package report

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/cloudquote/cloudquote/pkg/engine"
	"github.com/cloudquote/cloudquote/pkg/pricing"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEstimate() engine.EstimateResult {
	return engine.EstimateResult{
		Provider: pricing.ProviderAWS,
		Breakdown: []engine.CostLineItem{
			{
				Label:        "Compute (medium) x1",
				UnitCost:     0.0464,
				Quantity:     730,
				MonthlyCost:  33.872,
				SourceLabel:  "AWS Price List API",
				ResourceKind: pricing.KindCompute,
			},
			{
				Label:        "Storage (standard)",
				UnitCost:     0.023,
				Quantity:     100,
				MonthlyCost:  2.3,
				SourceLabel:  "AWS Price List API",
				ResourceKind: pricing.KindStorage,
			},
		},
		TotalMonthlyCost: 36.17,
		TotalAnnualCost:  434.04,
		Currency:         "USD",
		ComputedAt:       fixedTime,
		PricingNote:      "Sources: AWS Price List API (verified)",
	}
}

func sampleComparison() engine.ComparisonResult {
	storageLine := func(unit, monthly float64, source string) []engine.CostLineItem {
		return []engine.CostLineItem{{
			Label:        "Storage (standard)",
			UnitCost:     unit,
			Quantity:     100,
			MonthlyCost:  monthly,
			SourceLabel:  source,
			ResourceKind: pricing.KindStorage,
		}}
	}
	return engine.ComparisonResult{
		Estimates: []engine.EstimateResult{
			{
				Provider:         pricing.ProviderAWS,
				Breakdown:        storageLine(0.023, 2.3, "AWS Price List API"),
				TotalMonthlyCost: 2.3,
				TotalAnnualCost:  27.6,
				Currency:         "USD",
				ComputedAt:       fixedTime,
				PricingNote:      "Sources: AWS Price List API (verified)",
			},
			{
				Provider:         pricing.ProviderAzure,
				Breakdown:        storageLine(0.0184, 1.84, "Azure Retail Prices API"),
				TotalMonthlyCost: 1.84,
				TotalAnnualCost:  22.08,
				Currency:         "USD",
				ComputedAt:       fixedTime,
				PricingNote:      "Sources: Azure Retail Prices API (verified)",
			},
			{
				Provider:         pricing.ProviderGCP,
				Breakdown:        storageLine(0.02, 2, "GCP Public Pricing Data (static fallback)"),
				TotalMonthlyCost: 2,
				TotalAnnualCost:  24,
				Currency:         "USD",
				ComputedAt:       fixedTime,
				PricingNote:      "Sources: GCP Public Pricing Data (static fallback)",
			},
		},
		CheapestProvider: pricing.ProviderAzure,
		PotentialSavings: 0.46,
	}
}

func TestRenderEstimate(t *testing.T) {
	out := RenderEstimate(sampleEstimate(), "Amazon Web Services")

	for _, want := range []string{
		"Amazon Web Services (aws)",
		"Compute (medium) x1",
		"Storage (standard)",
		"0.0464",
		"730",
		"Monthly total",
		"36.17",
		"Annual total",
		"434.04",
		"Sources: AWS Price List API (verified)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected rendered estimate to contain %q\n%s", want, out)
		}
	}
}

func TestRenderEstimateWithoutDisplayName(t *testing.T) {
	out := RenderEstimate(sampleEstimate(), "")
	if !strings.Contains(out, "aws (aws)") {
		t.Errorf("Expected provider key as title fallback\n%s", out)
	}
}

func TestRenderEstimateEmptyBreakdown(t *testing.T) {
	est := engine.EstimateResult{
		Provider:    pricing.ProviderGCP,
		Currency:    "USD",
		ComputedAt:  fixedTime,
		PricingNote: "No resources selected",
	}
	out := RenderEstimate(est, "Google Cloud Platform")

	if !strings.Contains(out, "(no resources selected)") {
		t.Errorf("Expected empty-breakdown placeholder\n%s", out)
	}
	if !strings.Contains(out, "0.00") {
		t.Errorf("Expected zero totals\n%s", out)
	}
}

func TestRenderComparison(t *testing.T) {
	names := map[pricing.Provider]string{
		pricing.ProviderAWS:   "Amazon Web Services",
		pricing.ProviderAzure: "Microsoft Azure",
		pricing.ProviderGCP:   "Google Cloud Platform",
	}
	out := RenderComparison(sampleComparison(), names)

	// 1. Every provider row and the summary lines are present.
	for _, want := range []string{
		"Provider comparison",
		"Amazon Web Services",
		"Microsoft Azure",
		"Google Cloud Platform",
		"1.84",
		"22.08",
		"Cheapest: azure",
		"Potential savings: 0.46/month",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected comparison to contain %q\n%s", want, out)
		}
	}

	// 2. The winner row carries the marker, the others do not.
	var marked []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "*") {
			marked = append(marked, line)
		}
	}
	if len(marked) != 1 || !strings.Contains(marked[0], "Microsoft Azure") {
		t.Errorf("Expected exactly the azure row marked as winner, got %v", marked)
	}
}

func TestRenderComparisonUnknownName(t *testing.T) {
	out := RenderComparison(sampleComparison(), nil)
	if !strings.Contains(out, "aws") || !strings.Contains(out, "azure") {
		t.Errorf("Expected provider keys when no display names given\n%s", out)
	}
}

func TestTrimFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{730, "730"},
		{0.0416, "0.0416"},
		{2.5, "2.5"},
		{1825.5, "1825.5"},
		{100, "100"},
		{0, "0"},
		{0.00004, "0"},
	}
	for _, tc := range cases {
		if got := trimFloat(tc.in); got != tc.want {
			t.Errorf("trimFloat(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestMarshalEstimateGolden(t *testing.T) {
	data, err := MarshalJSON(sampleEstimate())
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, "estimate", data)
}

func TestMarshalComparisonGolden(t *testing.T) {
	data, err := MarshalJSON(sampleComparison())
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, "comparison", data)
}
