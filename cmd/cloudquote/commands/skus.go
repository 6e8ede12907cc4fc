package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

var skusProvider string

var skusHeaderStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#875FFF")).
	Bold(true)

var skusCmd = &cobra.Command{
	Use:   "skus",
	Short: "Show the provider SKU mapping tables",
	Long: `Prints how provider-neutral sizes, storage classes and database
types map onto concrete SKUs per provider.

Example:
  cloudquote skus
  cloudquote skus --provider azure`,
	Run: func(cmd *cobra.Command, args []string) {
		catalog, err := pricing.LoadCatalog()
		if err != nil {
			fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
			os.Exit(1)
		}

		providers := pricing.Providers()
		if skusProvider != "" {
			p := pricing.Provider(skusProvider)
			if !p.Valid() {
				fmt.Fprintf(os.Stderr, "unknown provider %q\n", skusProvider)
				os.Exit(1)
			}
			providers = []pricing.Provider{p}
		}

		instances := catalog.InstanceTypes()
		stores := catalog.StorageServices()
		databases := catalog.DatabaseServices()

		for _, p := range providers {
			fmt.Println(skusHeaderStyle.Render(fmt.Sprintf("%s (%s, %s)",
				catalog.DisplayName(p), p, catalog.Region(p))))

			fmt.Println("  Compute")
			for _, size := range pricing.ComputeSizes() {
				it := instances[p][size]
				fmt.Printf("    %-8s -> %-16s %d vCPU, %g GiB\n", size, it.Type, it.VCPU, it.MemoryGB)
			}

			fmt.Println("  Storage")
			for _, class := range pricing.StorageClasses() {
				svc := stores[p][class]
				fmt.Printf("    %-8s -> %-16s %s\n", class, svc.SKU, svc.Name)
			}

			fmt.Println("  Database")
			for _, dbt := range pricing.DatabaseTypes() {
				svc := databases[p][dbt]
				fmt.Printf("    %-8s -> %-16s %s\n", dbt, svc.SKU, svc.Name)
			}

			fmt.Println(strings.Repeat("-", 56))
		}
	},
}

func init() {
	skusCmd.Flags().StringVar(&skusProvider, "provider", "", "Limit to one provider")
}
