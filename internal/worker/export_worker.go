package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/export"
)

// TransactionSource is the read side of ledger.Store the worker needs.
type TransactionSource interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// ExportWorker keeps a snapshot file of all transactions up to date. It
// re-exports on every transaction change message and periodically as a
// fallback for lost messages.
type ExportWorker struct {
	source TransactionSource
	path   string
	codec  export.Codec
	now    func() time.Time

	mu         sync.Mutex
	lastExport time.Time
	lastCount  int
	exports    int64
}

func NewExportWorker(source TransactionSource, path string, codec export.Codec) *ExportWorker {
	return &ExportWorker{
		source: source,
		path:   path,
		codec:  codec,
		now:    time.Now,
	}
}

// HandleChangeMessage re-exports after transaction changes. Category changes
// do not alter the snapshot and are acknowledged without work.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Collection != core.CollectionTransactions {
		slog.DebugContext(ctx, "Ignoring change message", "collection", msg.Collection, "op", msg.Op)
		return nil
	}
	slog.InfoContext(ctx, "Processing change message",
		"op", msg.Op,
		"id", msg.ID,
		"count", msg.Count)

	if w.isNewerThan(msg.Timestamp) {
		slog.DebugContext(ctx, "Snapshot already newer than change, skipping", "timestamp", msg.Timestamp)
		return nil
	}
	if err := w.ExportNow(ctx); err != nil {
		return fmt.Errorf("export after %s: %w", msg.Op, err)
	}
	return nil
}

// isNewerThan reports whether the last export started after ts.
func (w *ExportWorker) isNewerThan(ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !ts.IsZero() && !w.lastExport.IsZero() && w.lastExport.After(ts)
}

// ExportNow writes the current transactions to the snapshot file.
func (w *ExportWorker) ExportNow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	txs, err := w.source.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := export.WriteFile(w.path, w.codec, txs); err != nil {
		return err
	}
	w.lastExport = started
	w.lastCount = len(txs)
	w.exports++

	slog.InfoContext(ctx, "Exported transactions snapshot",
		"path", w.path,
		"count", len(txs),
		"duration", w.now().Sub(started))
	return nil
}

// StartupExport writes a snapshot when the worker starts, so the file exists
// even if no change arrives.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	if err := w.ExportNow(ctx); err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	return nil
}

// RunPeriodic re-exports every interval until ctx is done.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ExportNow(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

type Status struct {
	LastExport time.Time
	LastCount  int
	Exports    int64
}

func (w *ExportWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{LastExport: w.lastExport, LastCount: w.lastCount, Exports: w.exports}
}
