package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/kv/memory"
	"ledger/internal/ledger"
)

type failingSource struct{}

func (failingSource) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, &core.StorageCorruptionError{Key: "transactions", Err: errors.New("bad json")}
}

func newWorker(t *testing.T) (*ExportWorker, *ledger.Store, string) {
	t.Helper()
	store, err := ledger.Open(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	return NewExportWorker(store, path, export.CSVCodec{}), store, path
}

func TestHandleChangeMessageExports(t *testing.T) {
	ctx := context.Background()
	w, store, path := newWorker(t)

	tx, err := store.AddTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 1999}, Category: "Food", Date: core.NewDate(2024, 3, 1), Type: core.Expense,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	msg := amqp.NewChangeMessage(core.Change{Collection: core.CollectionTransactions, Op: core.OpCreate, ID: tx.ID})
	if err := w.HandleChangeMessage(ctx, msg); err != nil {
		t.Fatalf("HandleChangeMessage: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(b), "expense,19.99,2024-03-01,Food,,"+tx.ID) {
		t.Errorf("unexpected export:\n%s", b)
	}
	if st := w.Status(); st.Exports != 1 || st.LastCount != 1 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestHandleChangeMessageSkips(t *testing.T) {
	ctx := context.Background()
	w, _, path := newWorker(t)

	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage(core.Change{Collection: core.CollectionCategories, Op: core.OpCreate})); err != nil {
		t.Fatalf("category change: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("category change should not export")
	}

	if err := w.StartupExport(ctx); err != nil {
		t.Fatalf("StartupExport: %v", err)
	}
	stale := core.Change{Collection: core.CollectionTransactions, Op: core.OpDelete, Timestamp: time.Now().Add(-time.Hour)}
	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage(stale)); err != nil {
		t.Fatalf("stale change: %v", err)
	}
	if st := w.Status(); st.Exports != 1 {
		t.Errorf("stale change should be skipped, exports = %d", st.Exports)
	}
}

func TestHandleChangeMessagePropagatesErrors(t *testing.T) {
	w := NewExportWorker(failingSource{}, filepath.Join(t.TempDir(), "x.json"), export.JSONCodec{})
	err := w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(core.Change{Collection: core.CollectionTransactions, Op: core.OpReplace}))
	if !errors.Is(err, core.ErrCorrupt) {
		t.Fatalf("expected corruption error for requeue, got %v", err)
	}
}

func TestRunPeriodic(t *testing.T) {
	w, _, _ := newWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	if err := w.RunPeriodic(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunPeriodic returned %v", err)
	}
	if w.Status().Exports == 0 {
		t.Error("expected at least one periodic export")
	}
}
