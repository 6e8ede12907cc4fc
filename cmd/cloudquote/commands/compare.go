package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloudquote/cloudquote/pkg/report"
)

var compareSpecFile string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare all providers for one resource spec",
	Long: `Prices the same resource spec file against AWS, Azure and GCP
concurrently and ranks the providers by monthly cost.

Example:
  cloudquote compare -f specs.yaml
  cloudquote compare -f specs.yaml -o json`,
	Run: func(cmd *cobra.Command, args []string) {
		set, err := loadSpecFile(compareSpecFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "spec error: %v\n", err)
			os.Exit(1)
		}

		logger := newLogger(false)
		eng, _, err := buildEngine(logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
			os.Exit(1)
		}

		result, err := eng.Compare(cmd.Context(), set)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compare failed: %v\n", err)
			os.Exit(1)
		}

		switch outputFormat {
		case "json":
			data, err := report.MarshalJSON(result)
			if err != nil {
				fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		case "csv":
			path := filepath.Join(ensureOutputDir(), "comparison.csv")
			if err := report.ExportComparisonCSV(result, path); err != nil {
				fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Comparison written to %s\n", path)
		default:
			fmt.Println(report.RenderComparison(result, eng.Catalog().ProviderNames()))
		}
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareSpecFile, "file", "f", "", "Resource spec file (YAML)")
	compareCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json or csv")
	compareCmd.Flags().StringVar(&outputDir, "out-dir", "cloudquote-out", "Directory for exported files")
	compareCmd.MarkFlagRequired("file")
}
