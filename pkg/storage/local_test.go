package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

var _ BlobStore = (*LocalStore)(nil)

func TestLocalStoreRoundtrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "snapshots/cache.json", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := store.Get(ctx, "snapshots/cache.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"version":1}`)) {
		t.Errorf("Expected stored bytes back, got %q", got)
	}

	// Overwrites replace the previous blob.
	if err := store.Put(ctx, "snapshots/cache.json", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	got, err = store.Get(ctx, "snapshots/cache.json")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if string(got) != `{"version":2}` {
		t.Errorf("Expected overwritten bytes, got %q", got)
	}
}

func TestLocalStoreGetMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	_, err = store.Get(context.Background(), "absent.json")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestLocalStoreList(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"snapshots/a.json", "snapshots/b.json", "reports/est.csv"} {
		if err := store.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "snapshots/a.json" || keys[1] != "snapshots/b.json" {
		t.Errorf("Expected the two snapshot keys, got %v", keys)
	}

	// No leftover temp files from the atomic writes.
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	for _, key := range all {
		if strings.Contains(key, ".put-") {
			t.Errorf("Expected no temp files, found %s", key)
		}
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 keys total, got %v", all)
	}
}

func TestLocalStorePutCreatesParents(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "a/b/c/deep.bin", []byte("d")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, "a/b/c/deep.bin"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "..", "../evil", "a/../../evil", "/etc/passwd"} {
		if err := store.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Expected Put(%q) to be rejected", key)
		}
		if _, err := store.Get(ctx, key); err == nil {
			t.Errorf("Expected Get(%q) to be rejected", key)
		}
	}
}

func TestLocalStoreRequiresBase(t *testing.T) {
	if _, err := NewLocalStore(""); err == nil {
		t.Fatal("Expected an error for an empty base directory")
	}
}
