package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	azureSourceLabel    = "Azure Retail Prices API"
	defaultAzureBaseURL = "https://prices.azure.com/api/retail/prices"
)

// AzureOptions configures the Azure adapter.
type AzureOptions struct {
	Region  string
	BaseURL string
	Timeout time.Duration
}

// AzureAdapter resolves unit prices through the public Azure Retail Prices API.
// The API is unauthenticated; the interesting part is building the right OData
// filter per SKU and trusting only the first match.
type AzureAdapter struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	region  string
}

func NewAzureAdapter(logger *slog.Logger, opts AzureOptions) *AzureAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Region == "" {
		opts.Region = "uksouth"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAzureBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	return &AzureAdapter{
		logger:  logger,
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		region:  opts.Region,
	}
}

func (a *AzureAdapter) Provider() Provider { return ProviderAzure }

type azureRetailItem struct {
	RetailPrice   float64 `json:"retailPrice"`
	CurrencyCode  string  `json:"currencyCode"`
	ArmSkuName    string  `json:"armSkuName"`
	SkuName       string  `json:"skuName"`
	ProductName   string  `json:"productName"`
	MeterName     string  `json:"meterName"`
	ServiceName   string  `json:"serviceName"`
	ArmRegionName string  `json:"armRegionName"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	Type          string  `json:"type"`
}

type azureRetailResponse struct {
	Items        []azureRetailItem `json:"Items"`
	Count        int               `json:"Count"`
	NextPageLink string            `json:"NextPageLink"`
}

// FetchUnitPrice fetches the consumption rate for a resolved SKU.
func (a *AzureAdapter) FetchUnitPrice(ctx context.Context, kind ResourceKind, skuKey string) (UnitPrice, error) {
	filter, ok := a.filterFor(kind, skuKey)
	if !ok {
		return UnitPrice{}, errNoRoute(ProviderAzure, skuKey)
	}

	item, err := a.query(ctx, filter)
	if err != nil {
		a.logger.Warn("azure price fetch failed", "sku", skuKey, "error", err)
		return UnitPrice{}, err
	}

	currency := item.CurrencyCode
	if currency == "" {
		currency = "USD"
	}
	a.logger.Debug("azure price fetched", "sku", skuKey, "unit_cost", item.RetailPrice, "meter", item.MeterName)
	return UnitPrice{
		Provider:     ProviderAzure,
		ResourceKind: kind,
		SKUKey:       skuKey,
		UnitCost:     item.RetailPrice,
		Currency:     currency,
		SourceLabel:  azureSourceLabel,
		FetchedAt:    time.Now().UTC(),
		IsLive:       true,
	}, nil
}

// filterFor builds the OData $filter for SKUs that have a live route.
func (a *AzureAdapter) filterFor(kind ResourceKind, skuKey string) (string, bool) {
	switch {
	case kind == KindCompute:
		return fmt.Sprintf(
			"serviceName eq 'Virtual Machines' and armSkuName eq '%s' and armRegionName eq '%s' and priceType eq 'Consumption'",
			skuKey, a.region), true
	case skuKey == "hot-lrs":
		return fmt.Sprintf(
			"serviceName eq 'Storage' and armRegionName eq '%s' and skuName eq 'Hot LRS' and meterName eq 'Hot LRS Data Stored'",
			a.region), true
	case skuKey == "archive-lrs":
		return fmt.Sprintf(
			"serviceName eq 'Storage' and armRegionName eq '%s' and skuName eq 'Archive LRS' and meterName eq 'Archive LRS Data Stored'",
			a.region), true
	case skuKey == "premium-ssd-p10":
		return fmt.Sprintf(
			"serviceName eq 'Storage' and armRegionName eq '%s' and productName eq 'Premium SSD Managed Disks'",
			a.region), true
	}
	return "", false
}

func (a *AzureAdapter) query(ctx context.Context, filter string) (azureRetailItem, error) {
	q := url.Values{}
	q.Set("$filter", filter)
	q.Set("$top", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return azureRetailItem{}, upstreamf(ProviderAzure, err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return azureRetailItem{}, upstreamf(ProviderAzure, err, "timeout querying retail prices")
		}
		return azureRetailItem{}, upstreamf(ProviderAzure, err, "query retail prices")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return azureRetailItem{}, upstreamf(ProviderAzure, nil, "retail prices returned status %d", resp.StatusCode)
	}

	var out azureRetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return azureRetailItem{}, upstreamf(ProviderAzure, err, "unparseable retail prices payload")
	}
	if len(out.Items) == 0 {
		return azureRetailItem{}, upstreamf(ProviderAzure, nil, "no items matched filter")
	}
	return out.Items[0], nil
}

// isTimeout covers both context deadlines and transport-level timeouts.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
