package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudquote/cloudquote/pkg/engine"
	"github.com/cloudquote/cloudquote/pkg/pricing"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func TestExportEstimateCSV(t *testing.T) {
	est := sampleEstimate()
	// A comma in the label exercises CSV quoting.
	est.Breakdown = append(est.Breakdown, engine.CostLineItem{
		Label:        "Database (sql, premium)",
		UnitCost:     0.017,
		Quantity:     1825,
		MonthlyCost:  31.025,
		SourceLabel:  "AWS Price List API",
		ResourceKind: pricing.KindDatabase,
	})
	est.TotalMonthlyCost = 67.2
	est.TotalAnnualCost = 806.4

	path := filepath.Join(t.TempDir(), "estimate.csv")
	if err := ExportEstimateCSV(est, path); err != nil {
		t.Fatalf("ExportEstimateCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	// 1. Header, three line items, TOTAL trailer.
	if len(rows) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(rows))
	}
	wantHeader := []string{"Item", "ResourceKind", "Quantity", "UnitCost", "MonthlyCost", "Source"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("Expected header column %q, got %q", col, rows[0][i])
		}
	}

	// 2. Line rows keep trimmed quantities and dollar-formatted costs.
	if rows[1][0] != "Compute (medium) x1" || rows[1][2] != "730" || rows[1][4] != "$33.87" {
		t.Errorf("Unexpected compute row: %v", rows[1])
	}
	// 31.025 sits just below the decimal half in binary, so it prints 31.02.
	if rows[3][0] != "Database (sql, premium)" || rows[3][3] != "0.017" || rows[3][4] != "$31.02" {
		t.Errorf("Unexpected database row: %v", rows[3])
	}

	// 3. The trailer carries the rounded total and the pricing note.
	if rows[4][0] != "TOTAL" || rows[4][4] != "$67.20" {
		t.Errorf("Unexpected total row: %v", rows[4])
	}
	if rows[4][5] != "Sources: AWS Price List API (verified)" {
		t.Errorf("Expected pricing note in total row, got %q", rows[4][5])
	}
}

func TestExportComparisonCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.csv")
	if err := ExportComparisonCSV(sampleComparison(), path); err != nil {
		t.Fatalf("ExportComparisonCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 provider rows, got %d", len(rows))
	}
	if rows[2][0] != "azure" || rows[2][1] != "$1.84" || rows[2][3] != "yes" {
		t.Errorf("Unexpected azure row: %v", rows[2])
	}
	if rows[1][3] != "" || rows[3][3] != "" {
		t.Errorf("Expected only azure marked cheapest: %v / %v", rows[1], rows[3])
	}
}

func TestExportJSONRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimate.json")
	if err := ExportJSON(sampleEstimate(), path); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var got engine.EstimateResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unparseable export: %v", err)
	}
	if got.Provider != pricing.ProviderAWS || got.TotalMonthlyCost != 36.17 {
		t.Errorf("Expected aws 36.17 back, got %s %v", got.Provider, got.TotalMonthlyCost)
	}
	if len(got.Breakdown) != 2 {
		t.Errorf("Expected 2 line items back, got %d", len(got.Breakdown))
	}
}
