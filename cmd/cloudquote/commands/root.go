package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cloudquote/cloudquote/pkg/config"
	"github.com/cloudquote/cloudquote/pkg/engine"
	"github.com/cloudquote/cloudquote/pkg/pricing"
	"github.com/cloudquote/cloudquote/pkg/storage"
	"github.com/cloudquote/cloudquote/pkg/version"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cloudquote",
	Short: "Cross-provider cloud cost estimation",
	Long: `CloudQuote - Cloud Cost Estimation and Comparison

Price compute, storage, database and network resources against
AWS, Azure and GCP, and rank the providers by monthly cost.`,
	Version: version.Current,
	Run:     nil,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.cloudquote.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderStyledHelp(cmd)
	})

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(skusCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	verbose := cfg.Verbose
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
	if verbose {
		cfg.Verbose = true
	}
}

func renderStyledHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#875FFF")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("CLOUDQUOTE %s", version.Current)))
	fmt.Println("Cross-provider cloud cost estimation and comparison.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	fmt.Println(titleStyle.Render("COMMANDS"))
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
		}
	}
	fmt.Println("")

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  cloudquote estimate -p aws -f specs.yaml")
	fmt.Println("  cloudquote compare -f specs.yaml -o json")
	fmt.Println("  cloudquote serve --port 8080")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}

// newLogger builds the CLI logger. Interactive commands keep logs
// quiet unless --verbose; serve always logs JSON to stdout.
func newLogger(json bool) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if !json && !cfg.Verbose {
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// buildEngine wires the full stack: catalog, adapters, snapshot store
// and cache, per the resolved configuration. The AWS adapter is also
// returned on its own (nil when unavailable) so commands that hit the
// network first can probe the caller identity.
func buildEngine(logger *slog.Logger) (*engine.Engine, *pricing.AWSAdapter, error) {
	catalog, err := pricing.LoadCatalog()
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	adapters := pricing.AdapterSet{}

	awsAdapter, err := pricing.NewAWSAdapter(context.Background(), logger, pricing.AWSOptions{
		Region:   cfg.Fetch.AWSRegion,
		Profile:  cfg.Fetch.AWSProfile,
		Endpoint: cfg.Fetch.AWSEndpoint,
		Timeout:  cfg.Fetch.Timeout,
	})
	if err != nil {
		logger.Warn("aws adapter unavailable, serving aws from static data", "error", err)
		awsAdapter = nil
	} else {
		adapters[pricing.ProviderAWS] = awsAdapter
	}

	adapters[pricing.ProviderAzure] = pricing.NewAzureAdapter(logger, pricing.AzureOptions{
		Region:  cfg.Fetch.AzureRegion,
		BaseURL: cfg.Fetch.AzureBaseURL,
		Timeout: cfg.Fetch.Timeout,
	})
	adapters[pricing.ProviderGCP] = pricing.NewGCPAdapter(logger, catalog, pricing.GCPOptions{
		Region:  cfg.Fetch.GCPRegion,
		APIKey:  cfg.Fetch.GCPAPIKey,
		BaseURL: cfg.Fetch.GCPBaseURL,
		Timeout: cfg.Fetch.Timeout,
	})

	store, err := snapshotStore()
	if err != nil {
		return nil, nil, err
	}

	cache := pricing.NewCache(logger, catalog, adapters, pricing.CacheOptions{
		TTL:          cfg.Cache.TTL,
		StaleCeiling: cfg.Cache.StaleCeiling,
		Store:        store,
	})

	eng, err := engine.New(
		engine.WithLogger(logger),
		engine.WithConfig(cfg),
		engine.WithCatalog(catalog),
		engine.WithCache(cache),
	)
	if err != nil {
		return nil, nil, err
	}
	return eng, awsAdapter, nil
}

// verifyAWS logs which AWS account live pricing reads run as. Failure
// is never fatal: every SKU still resolves through the static catalog.
func verifyAWS(ctx context.Context, logger *slog.Logger, adapter *pricing.AWSAdapter) {
	if adapter == nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	account, err := adapter.VerifyIdentity(probeCtx)
	if err != nil {
		logger.Info("aws identity not verified, continuing anonymously", "error", err)
		return
	}
	logger.Info("connected to aws account", "account", account)
}

// snapshotStore picks the snapshot backend: local dir, S3 bucket, or
// none.
func snapshotStore() (storage.BlobStore, error) {
	if cfg.Cache.SnapshotDir != "" {
		store, err := storage.NewLocalStore(cfg.Cache.SnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		return store, nil
	}
	if cfg.Cache.SnapshotBucket != "" {
		client, err := storage.NewS3Client(context.Background(), cfg.Fetch.AWSRegion, cfg.Fetch.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		store, err := storage.NewS3Store(client, cfg.Cache.SnapshotBucket, cfg.Cache.SnapshotPrefix)
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		return store, nil
	}
	return nil, nil
}
