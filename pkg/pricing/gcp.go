package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	gcpSourceLabel    = "GCP Cloud Billing Catalog"
	defaultGCPBaseURL = "https://cloudbilling.googleapis.com/v1"

	// Compute Engine service id in the billing catalog.
	gcpComputeService = "services/6F81-5844-456A"

	// Catalog pages are large; stop after a few rather than walking thousands
	// of SKUs when the rates we need are missing.
	gcpMaxPages = 5
)

// GCPOptions configures the GCP adapter.
type GCPOptions struct {
	Region  string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GCPAdapter resolves compute prices through the Cloud Billing Catalog API.
// E2 machine types are not priced as single SKUs: the catalog carries per-core
// and per-GiB-RAM rates, so the adapter recombines them using the machine
// shape. Without an API key every fetch degrades to the static table.
type GCPAdapter struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	apiKey  string
	region  string
	shapes  map[string]gcpShape
}

type gcpShape struct {
	BilledCores float64
	MemoryGB    float64
}

// gcpBilledCores maps shared-core machine types to their billed core fraction.
var gcpBilledCores = map[string]float64{
	"e2-micro":  0.25,
	"e2-small":  0.5,
	"e2-medium": 1.0,
}

func NewGCPAdapter(logger *slog.Logger, catalog *Catalog, opts GCPOptions) *GCPAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Region == "" {
		opts.Region = "us-central1"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGCPBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}

	shapes := make(map[string]gcpShape)
	if catalog != nil {
		for _, it := range catalog.InstanceTypes()[ProviderGCP] {
			cores := float64(it.VCPU)
			if billed, ok := gcpBilledCores[it.Type]; ok {
				cores = billed
			}
			shapes[it.Type] = gcpShape{BilledCores: cores, MemoryGB: it.MemoryGB}
		}
	}

	return &GCPAdapter{
		logger:  logger,
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		region:  opts.Region,
		shapes:  shapes,
	}
}

func (g *GCPAdapter) Provider() Provider { return ProviderGCP }

type gcpMoney struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
	Nanos        int64  `json:"nanos"`
}

func (m gcpMoney) Value() float64 {
	units, _ := strconv.ParseFloat(m.Units, 64)
	return units + float64(m.Nanos)/1e9
}

type gcpSKU struct {
	Description string `json:"description"`
	Category    struct {
		ResourceFamily string `json:"resourceFamily"`
		ResourceGroup  string `json:"resourceGroup"`
		UsageType      string `json:"usageType"`
	} `json:"category"`
	ServiceRegions []string `json:"serviceRegions"`
	PricingInfo    []struct {
		PricingExpression struct {
			UsageUnit   string `json:"usageUnit"`
			TieredRates []struct {
				UnitPrice gcpMoney `json:"unitPrice"`
			} `json:"tieredRates"`
		} `json:"pricingExpression"`
	} `json:"pricingInfo"`
}

type gcpSKUList struct {
	SKUs          []gcpSKU `json:"skus"`
	NextPageToken string   `json:"nextPageToken"`
}

// FetchUnitPrice fetches the hourly rate for a machine type by combining the
// catalog's per-core and per-GiB rates for its family.
func (g *GCPAdapter) FetchUnitPrice(ctx context.Context, kind ResourceKind, skuKey string) (UnitPrice, error) {
	if kind != KindCompute {
		return UnitPrice{}, errNoRoute(ProviderGCP, skuKey)
	}
	if g.apiKey == "" {
		return UnitPrice{}, upstreamf(ProviderGCP, nil, "no billing catalog api key configured")
	}
	shape, ok := g.shapes[skuKey]
	if !ok {
		return UnitPrice{}, errNoRoute(ProviderGCP, skuKey)
	}

	coreRate, ramRate, err := g.findFamilyRates(ctx, machineFamily(skuKey))
	if err != nil {
		g.logger.Warn("gcp price fetch failed", "sku", skuKey, "error", err)
		return UnitPrice{}, err
	}

	price := coreRate*shape.BilledCores + ramRate*shape.MemoryGB
	g.logger.Debug("gcp price fetched", "sku", skuKey, "unit_cost", price,
		"core_rate", coreRate, "ram_rate", ramRate)
	return UnitPrice{
		Provider:     ProviderGCP,
		ResourceKind: kind,
		SKUKey:       skuKey,
		UnitCost:     price,
		Currency:     "USD",
		SourceLabel:  gcpSourceLabel,
		FetchedAt:    time.Now().UTC(),
		IsLive:       true,
	}, nil
}

// machineFamily extracts the family prefix ("e2") used in SKU descriptions.
func machineFamily(machineType string) string {
	if i := strings.Index(machineType, "-"); i > 0 {
		return strings.ToUpper(machineType[:i])
	}
	return strings.ToUpper(machineType)
}

// findFamilyRates walks catalog pages until both the Core and Ram on-demand
// rates for the family in this region are known.
func (g *GCPAdapter) findFamilyRates(ctx context.Context, family string) (coreRate, ramRate float64, err error) {
	var haveCore, haveRAM bool
	pageToken := ""

	for page := 0; page < gcpMaxPages; page++ {
		list, err := g.listSKUs(ctx, pageToken)
		if err != nil {
			return 0, 0, err
		}
		for _, sku := range list.SKUs {
			if !g.matches(sku, family) {
				continue
			}
			rate, ok := firstRate(sku)
			if !ok {
				continue
			}
			switch sku.Category.ResourceGroup {
			case "CPU":
				coreRate, haveCore = rate, true
			case "RAM":
				ramRate, haveRAM = rate, true
			}
			if haveCore && haveRAM {
				return coreRate, ramRate, nil
			}
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	return 0, 0, upstreamf(ProviderGCP, nil, "no %s core/ram rates for %s in catalog", family, g.region)
}

func (g *GCPAdapter) matches(sku gcpSKU, family string) bool {
	if sku.Category.ResourceFamily != "Compute" || sku.Category.UsageType != "OnDemand" {
		return false
	}
	desc := sku.Description
	if !strings.HasPrefix(desc, family+" Instance") {
		return false
	}
	// Sole tenancy and custom shapes carry the same family prefix.
	if strings.Contains(desc, "Sole Tenancy") || strings.Contains(desc, "Custom") {
		return false
	}
	for _, r := range sku.ServiceRegions {
		if r == g.region {
			return true
		}
	}
	return false
}

func firstRate(sku gcpSKU) (float64, bool) {
	for _, pi := range sku.PricingInfo {
		for _, tr := range pi.PricingExpression.TieredRates {
			v := tr.UnitPrice.Value()
			if v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

func (g *GCPAdapter) listSKUs(ctx context.Context, pageToken string) (*gcpSKUList, error) {
	q := url.Values{}
	q.Set("key", g.apiKey)
	q.Set("currencyCode", "USD")
	q.Set("pageSize", "5000")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	endpoint := fmt.Sprintf("%s/%s/skus?%s", g.baseURL, gcpComputeService, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, upstreamf(ProviderGCP, err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, upstreamf(ProviderGCP, err, "timeout querying billing catalog")
		}
		return nil, upstreamf(ProviderGCP, err, "query billing catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamf(ProviderGCP, nil, "billing catalog returned status %d", resp.StatusCode)
	}

	var out gcpSKUList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, upstreamf(ProviderGCP, err, "unparseable billing catalog payload")
	}
	return &out, nil
}
