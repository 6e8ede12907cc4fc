package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloudquote/cloudquote/pkg/engine"
)

// ExportEstimateCSV writes one estimate's breakdown to a CSV file,
// with a trailing total row.
func ExportEstimateCSV(est engine.EstimateResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"Item", "ResourceKind", "Quantity", "UnitCost", "MonthlyCost", "Source"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, line := range est.Breakdown {
		record := []string{
			line.Label,
			string(line.ResourceKind),
			trimFloat(line.Quantity),
			trimFloat(line.UnitCost),
			fmt.Sprintf("$%.2f", line.MonthlyCost),
			line.SourceLabel,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	total := []string{"TOTAL", "", "", "", fmt.Sprintf("$%.2f", est.TotalMonthlyCost), est.PricingNote}
	return w.Write(total)
}

// ExportComparisonCSV writes one row per provider, in fixed provider
// order so diffs stay stable, flagging the cheapest.
func ExportComparisonCSV(cmp engine.ComparisonResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"Provider", "MonthlyCost", "AnnualCost", "Cheapest", "PricingNote"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, est := range cmp.Estimates {
		cheapest := ""
		if est.Provider == cmp.CheapestProvider {
			cheapest = "yes"
		}
		record := []string{
			string(est.Provider),
			fmt.Sprintf("$%.2f", est.TotalMonthlyCost),
			fmt.Sprintf("$%.2f", est.TotalAnnualCost),
			cheapest,
			est.PricingNote,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSON writes any result as indented JSON.
func ExportJSON(v any, path string) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// MarshalJSON renders the canonical indented JSON form used by both
// file export and stdout output.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
