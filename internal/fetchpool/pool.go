package fetchpool

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

// congestedLatency marks a fetch as a congestion signal. It sits just
// under the adapter timeout, so both slow responses and timeouts count.
const congestedLatency = 3 * time.Second

// Options tune the warm-up pool. Zero values fall back to defaults
// sized for three public pricing APIs.
type Options struct {
	Start int
	Min   int
	Max   int
}

// Result summarizes one warm-up run.
type Result struct {
	SKUs     int
	Live     int
	Fallback int
	Elapsed  time.Duration
}

// Pool walks every (provider, SKU) pair in the catalog and primes the
// cache through GetPrice. Concurrency floats between Min and Max under
// AIMD control.
type Pool struct {
	logger  *slog.Logger
	cache   *pricing.Cache
	catalog *pricing.Catalog
	ctl     *Controller

	inflight atomic.Int32
}

func New(logger *slog.Logger, cache *pricing.Cache, catalog *pricing.Catalog, opts Options) *Pool {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Min <= 0 {
		opts.Min = 1
	}
	if opts.Max <= 0 {
		opts.Max = 16
	}
	if opts.Start <= 0 {
		opts.Start = 4
	}
	return &Pool{
		logger:  logger,
		cache:   cache,
		catalog: catalog,
		ctl:     NewController(opts.Start, opts.Min, opts.Max),
	}
}

type job struct {
	provider pricing.Provider
	sku      pricing.SKU
}

// Warm fetches every SKU once. Fetch failures degrade inside the
// cache, so warm-up itself never fails; it stops early only when the
// context is cancelled.
func (p *Pool) Warm(ctx context.Context) Result {
	start := time.Now()

	var jobs []job
	for _, provider := range pricing.Providers() {
		for _, sku := range p.catalog.AllSKUs(provider) {
			jobs = append(jobs, job{provider: provider, sku: sku})
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		live     int
		fallback int
	)

	for _, j := range jobs {
		if waitErr := p.waitForSlot(ctx); waitErr != nil {
			break
		}

		p.inflight.Add(1)
		wg.Add(1)
		go func(j job) {
			defer func() {
				p.inflight.Add(-1)
				wg.Done()
			}()

			fetchStart := time.Now()
			price, err := p.cache.GetPrice(ctx, j.provider, j.sku.Kind, j.sku.Key)
			latency := time.Since(fetchStart)

			p.ctl.Observe(latency, latency > congestedLatency)

			if err != nil {
				p.logger.Warn("warm-up sku unresolvable", "provider", j.provider, "sku", j.sku.Key)
				return
			}
			mu.Lock()
			if price.IsLive {
				live++
			} else {
				fallback++
			}
			mu.Unlock()
		}(j)
	}
	wg.Wait()

	res := Result{
		SKUs:     len(jobs),
		Live:     live,
		Fallback: fallback,
		Elapsed:  time.Since(start),
	}
	p.logger.Info("cache warm-up finished",
		"skus", res.SKUs,
		"live", res.Live,
		"fallback", res.Fallback,
		"elapsed", res.Elapsed.Round(time.Millisecond).String())
	return res
}

// waitForSlot blocks until the in-flight count drops below the current
// AIMD limit.
func (p *Pool) waitForSlot(ctx context.Context) error {
	for int(p.inflight.Load()) >= p.ctl.Limit() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return ctx.Err()
}
