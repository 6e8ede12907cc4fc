package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cloudquote/cloudquote/pkg/pricing"
)

func TestNewDefaults(t *testing.T) {
	e, err := New(WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.Catalog() == nil {
		t.Fatal("Expected a loaded catalog")
	}
	if e.Cache() == nil {
		t.Fatal("Expected a constructed cache")
	}

	// With no adapters everything prices from the static table.
	got, err := e.Estimate(context.Background(), pricing.ProviderAWS, pricing.ResourceSet{
		Compute: &pricing.ComputeSpec{Size: pricing.SizeSmall, Quantity: 1, HoursPerMonth: 730},
	})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	// 0.0116 * 730 = 8.468 -> 8.47.
	if got.TotalMonthlyCost != 8.47 {
		t.Errorf("Expected monthly total 8.47, got %v", got.TotalMonthlyCost)
	}
}

func TestRedactSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: redactSensitiveAttrs,
	}))

	logger.Info("adapter configured", "api_key", "AIzaSyTopSecret", "region", "us-central1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unparseable log line: %v", err)
	}
	if entry["api_key"] != "[REDACTED]" {
		t.Errorf("Expected api_key to be redacted, got %v", entry["api_key"])
	}
	if entry["region"] != "us-central1" {
		t.Errorf("Expected region to pass through, got %v", entry["region"])
	}
}
