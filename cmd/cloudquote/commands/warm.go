package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudquote/cloudquote/internal/fetchpool"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Prefetch the whole price catalog into the cache",
	Long: `Fetches every known SKU through the provider adapters and writes
a cache snapshot, so a following serve starts hot. Concurrency adapts
to upstream latency.

Example:
  cloudquote warm`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(false)
		eng, awsAdapter, err := buildEngine(logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
			os.Exit(1)
		}
		verifyAWS(cmd.Context(), logger, awsAdapter)

		pool := fetchpool.New(logger, eng.Cache(), eng.Catalog(), fetchpool.Options{})
		res := pool.Warm(cmd.Context())

		fmt.Printf("Warmed %d SKUs: %d live, %d fallback (%s)\n",
			res.SKUs, res.Live, res.Fallback, res.Elapsed.Round(time.Millisecond))

		if err := eng.Cache().SaveSnapshot(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot save failed: %v\n", err)
			os.Exit(1)
		}
	},
}
