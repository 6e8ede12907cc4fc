package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloudquote/cloudquote/pkg/pricing"
	"github.com/cloudquote/cloudquote/pkg/report"
)

var (
	estimateProvider string
	estimateSpecFile string
	outputFormat     string
	outputDir        string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate monthly cost for one provider",
	Long: `Prices a resource spec file against a single provider.

The spec file is YAML:

  compute:
    size: medium
    quantity: 2
    hours_per_month: 730
  storage:
    storage_class: standard
    size_gb: 500
  data_transfer_gb: 100
  include_load_balancer: true

Example:
  cloudquote estimate -p aws -f specs.yaml
  cloudquote estimate -p azure -f specs.yaml -o json`,
	Run: func(cmd *cobra.Command, args []string) {
		set, err := loadSpecFile(estimateSpecFile)
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

		result, err := eng.Estimate(cmd.Context(), pricing.Provider(estimateProvider), set)
		if err != nil {
			fmt.Fprintf(os.Stderr, "estimate failed: %v\n", err)
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
			path := filepath.Join(ensureOutputDir(), "estimate.csv")
			if err := report.ExportEstimateCSV(result, path); err != nil {
				fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Estimate written to %s\n", path)
		default:
			name := eng.Catalog().DisplayName(result.Provider)
			fmt.Println(report.RenderEstimate(result, name))
		}
	},
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateProvider, "provider", "p", "aws", "Provider: aws, azure or gcp")
	estimateCmd.Flags().StringVarP(&estimateSpecFile, "file", "f", "", "Resource spec file (YAML)")
	estimateCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json or csv")
	estimateCmd.Flags().StringVar(&outputDir, "out-dir", "cloudquote-out", "Directory for exported files")
	estimateCmd.MarkFlagRequired("file")
}

func loadSpecFile(path string) (pricing.ResourceSet, error) {
	var set pricing.ResourceSet
	data, err := os.ReadFile(path)
	if err != nil {
		return set, err
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return set, fmt.Errorf("parse %s: %w", path, err)
	}
	return set, nil
}

func ensureOutputDir() string {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", outputDir, err)
		os.Exit(1)
	}
	return outputDir
}
