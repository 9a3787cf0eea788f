package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)
	v, ok, err := s.Get(context.Background(), "transactions")
	if err != nil || ok || v != nil {
		t.Fatalf("expected missing key, got v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestStoreSetOverwritesAndBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "categories", []byte(`[]`)); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := s.Set(ctx, "categories", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("second set: %v", err)
	}

	v, ok, err := s.Get(ctx, "categories")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(v) != `[{"id":"1"}]` {
		t.Fatalf("expected overwritten value, got %q", v)
	}

	version, err := s.Version(ctx, "categories")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
	if version, _ := s.Version(ctx, "missing"); version != 0 {
		t.Fatalf("expected version 0 for missing key, got %d", version)
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Set(ctx, "transactions", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	// Migrations must be idempotent on reopen
	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, ok, err := s.Get(ctx, "transactions")
	if err != nil || !ok || string(v) != `[{"id":"a"}]` {
		t.Fatalf("unexpected value after reopen: v=%q ok=%v err=%v", v, ok, err)
	}
}
