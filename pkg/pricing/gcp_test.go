package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// gcpCatalogSKU builds one billing catalog SKU document.
func gcpCatalogSKU(desc, group, units string, nanos int64, regions ...string) map[string]any {
	return map[string]any{
		"description": desc,
		"category": map[string]any{
			"resourceFamily": "Compute",
			"resourceGroup":  group,
			"usageType":      "OnDemand",
		},
		"serviceRegions": regions,
		"pricingInfo": []any{
			map[string]any{
				"pricingExpression": map[string]any{
					"usageUnit": "h",
					"tieredRates": []any{
						map[string]any{"unitPrice": map[string]any{
							"currencyCode": "USD",
							"units":        units,
							"nanos":        nanos,
						}},
					},
				},
			},
		},
	}
}

func newGCPTestAdapter(t *testing.T, baseURL, apiKey string) *GCPAdapter {
	t.Helper()
	return NewGCPAdapter(nil, mustCatalog(t), GCPOptions{
		Region:  "us-central1",
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
}

func TestGCPFetchComputePrice(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewEncoder(w).Encode(map[string]any{
			"skus": []any{
				gcpCatalogSKU("E2 Instance Core running in Americas", "CPU", "0", 20000000, "us-central1"),
				gcpCatalogSKU("E2 Instance Ram running in Americas", "RAM", "0", 3000000, "us-central1"),
			},
		})
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "test-key")
	got, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-medium")
	if err != nil {
		t.Fatalf("FetchUnitPrice failed: %v", err)
	}

	// e2-medium bills 1 core and 4 GiB: 0.02*1 + 0.003*4.
	want := 0.032
	if math.Abs(got.UnitCost-want) > 1e-9 {
		t.Errorf("Expected unit cost %v, got %v", want, got.UnitCost)
	}
	if !got.IsLive {
		t.Error("Expected live price, got IsLive=false")
	}
	if got.SourceLabel != gcpSourceLabel {
		t.Errorf("Expected source label %q, got %q", gcpSourceLabel, got.SourceLabel)
	}

	if !strings.Contains(gotPath, gcpComputeService) {
		t.Errorf("Expected compute service in path, got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected api key in query, got %q", gotKey)
	}
}

func TestGCPBilledCoreFraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"skus": []any{
				gcpCatalogSKU("E2 Instance Core running in Americas", "CPU", "0", 20000000, "us-central1"),
				gcpCatalogSKU("E2 Instance Ram running in Americas", "RAM", "0", 3000000, "us-central1"),
			},
		})
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "test-key")
	got, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-micro")
	if err != nil {
		t.Fatalf("FetchUnitPrice failed: %v", err)
	}

	// e2-micro is shared-core: 0.25 billed cores, 1 GiB.
	want := 0.02*0.25 + 0.003*1
	if math.Abs(got.UnitCost-want) > 1e-9 {
		t.Errorf("Expected unit cost %v, got %v", want, got.UnitCost)
	}
}

func TestGCPPaginatesUntilRatesFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"skus": []any{
					gcpCatalogSKU("E2 Instance Core running in Americas", "CPU", "0", 20000000, "us-central1"),
				},
				"nextPageToken": "page-2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"skus": []any{
				gcpCatalogSKU("E2 Instance Ram running in Americas", "RAM", "0", 3000000, "us-central1"),
			},
		})
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "test-key")
	got, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-medium")
	if err != nil {
		t.Fatalf("FetchUnitPrice failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 catalog pages fetched, got %d", hits.Load())
	}
	if math.Abs(got.UnitCost-0.032) > 1e-9 {
		t.Errorf("Expected unit cost 0.032, got %v", got.UnitCost)
	}
}

func TestGCPSkipsSoleTenancyAndOtherRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"skus": []any{
				// Decoys that must not be picked up.
				gcpCatalogSKU("E2 Instance Core running in Americas (Sole Tenancy)", "CPU", "9", 0, "us-central1"),
				gcpCatalogSKU("E2 Instance Core running in EMEA", "CPU", "9", 0, "europe-west1"),
				gcpCatalogSKU("E2 Custom Instance Core running in Americas", "CPU", "9", 0, "us-central1"),
				// The real rates.
				gcpCatalogSKU("E2 Instance Core running in Americas", "CPU", "0", 20000000, "us-central1"),
				gcpCatalogSKU("E2 Instance Ram running in Americas", "RAM", "0", 3000000, "us-central1"),
			},
		})
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "test-key")
	got, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-medium")
	if err != nil {
		t.Fatalf("FetchUnitPrice failed: %v", err)
	}
	if math.Abs(got.UnitCost-0.032) > 1e-9 {
		t.Errorf("Expected decoy SKUs to be skipped and unit cost 0.032, got %v", got.UnitCost)
	}
}

func TestGCPWithoutAPIKey(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "")
	_, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-medium")
	if err == nil {
		t.Fatal("Expected error without an api key, got nil")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected 0 upstream requests without an api key, got %d", hits.Load())
	}
}

func TestGCPNonComputeNoRoute(t *testing.T) {
	a := newGCPTestAdapter(t, "http://127.0.0.1:0", "test-key")
	_, err := a.FetchUnitPrice(context.Background(), KindStorage, "gcs-standard")
	if err == nil {
		t.Fatal("Expected no-route error for storage sku, got nil")
	}
}

func TestGCPMissingFamilyRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"skus": []any{
				gcpCatalogSKU("N2 Instance Core running in Americas", "CPU", "0", 31611000, "us-central1"),
			},
		})
	}))
	defer srv.Close()

	a := newGCPTestAdapter(t, srv.URL, "test-key")
	_, err := a.FetchUnitPrice(context.Background(), KindCompute, "e2-medium")
	if err == nil {
		t.Fatal("Expected error when family rates are absent, got nil")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
}

func TestGCPMoneyValue(t *testing.T) {
	cases := []struct {
		units string
		nanos int64
		want  float64
	}{
		{"0", 21811000, 0.021811},
		{"3", 500000000, 3.5},
		{"0", 0, 0},
		{"1", 0, 1},
	}
	for _, tc := range cases {
		m := gcpMoney{CurrencyCode: "USD", Units: tc.units, Nanos: tc.nanos}
		if got := m.Value(); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("units=%s nanos=%d: expected %v, got %v", tc.units, tc.nanos, got, tc.want)
		}
	}
}
