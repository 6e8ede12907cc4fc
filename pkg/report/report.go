// Package report renders and exports estimate output.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudquote/cloudquote/pkg/engine"
	"github.com/cloudquote/cloudquote/pkg/pricing"
)

var (
	colorAccent  = lipgloss.Color("#00D7AF")
	colorHeading = lipgloss.Color("#875FFF")
	colorSubtext = lipgloss.Color("#6C7086")
	colorWinner  = lipgloss.Color("#00FF87")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorHeading).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Bold(true)

	totalStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)

	winnerStyle = lipgloss.NewStyle().
			Foreground(colorWinner).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtext).
			Padding(0, 1)
)

// RenderEstimate renders one provider's breakdown as a bordered table.
func RenderEstimate(est engine.EstimateResult, displayName string) string {
	var b strings.Builder

	title := displayName
	if title == "" {
		title = string(est.Provider)
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", title, est.Provider)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-34s %12s %12s %12s", "Item", "Qty", "Unit $", "Monthly $")))
	b.WriteString("\n")

	for _, line := range est.Breakdown {
		b.WriteString(fmt.Sprintf("%-34s %12s %12s %12.2f\n",
			line.Label,
			trimFloat(line.Quantity),
			trimFloat(line.UnitCost),
			line.MonthlyCost))
	}
	if len(est.Breakdown) == 0 {
		b.WriteString(noteStyle.Render("(no resources selected)"))
		b.WriteString("\n")
	}

	b.WriteString(totalStyle.Render(fmt.Sprintf("%-34s %38.2f", "Monthly total", est.TotalMonthlyCost)))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("%-34s %38.2f", "Annual total", est.TotalAnnualCost)))
	b.WriteString("\n")
	b.WriteString(noteStyle.Render(est.PricingNote))

	return boxStyle.Render(b.String())
}

// RenderComparison renders the ranked provider table with the winner
// highlighted.
func RenderComparison(cmp engine.ComparisonResult, names map[pricing.Provider]string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Provider comparison"))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-28s %14s %14s", "Provider", "Monthly $", "Annual $")))
	b.WriteString("\n")

	for _, est := range cmp.Estimates {
		name := names[est.Provider]
		if name == "" {
			name = string(est.Provider)
		}
		row := fmt.Sprintf("%-28s %14.2f %14.2f", name, est.TotalMonthlyCost, est.TotalAnnualCost)
		if est.Provider == cmp.CheapestProvider {
			row = winnerStyle.Render(row + "  *")
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Cheapest: %s", cmp.CheapestProvider)))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Potential savings: %.2f/month", cmp.PotentialSavings)))

	return boxStyle.Render(b.String())
}

// trimFloat drops trailing zeros so quantities like 730 and rates like
// 0.0416 both read naturally in one column.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
