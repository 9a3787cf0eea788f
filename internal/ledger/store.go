// Package ledger implements the Ledger Store: persistence of transactions and
// categories over a kv.Store, default category seeding, and the derived
// dashboard and chart statistics.
//
// Every write is a read-modify-write of a whole collection. Writes from one
// process are serialized by the store; writers in different processes sharing
// the same medium are last-write-wins.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/kv"
)

const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
)

// Notifier receives a Change after every successful write.
type Notifier interface {
	NotifyChange(ctx context.Context, c core.Change) error
}

// Store is the single authority for the current ledger state.
type Store struct {
	mu       sync.RWMutex
	kv       kv.Store
	now      func() time.Time
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used by current-month aggregations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier publishes a Change after every write.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithLogger replaces the default ledger component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps medium without seeding. Most callers want Open.
func New(medium kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     medium,
		now:    time.Now,
		logger: slog.Default().With("component", "ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open wraps medium and seeds the default categories if none were ever stored.
func Open(ctx context.Context, medium kv.Store, opts ...Option) (*Store, error) {
	s := New(medium, opts...)
	seeded, err := s.EnsureDefaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure default categories: %w", err)
	}
	if seeded {
		s.logger.InfoContext(ctx, "Seeded default categories", "count", len(defaultCategories))
	}
	return s, nil
}

// Now returns the store's notion of the current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// load decodes the collection under key. A missing key yields an empty
// collection; an undecodable value yields a StorageCorruptionError.
func load[T any](ctx context.Context, medium kv.Store, key string) ([]T, bool, error) {
	raw, ok, err := medium.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return []T{}, false, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, true, &core.StorageCorruptionError{Key: key, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, true, nil
}

func save[T any](ctx context.Context, medium kv.Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := medium.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// mutate runs fn under the write lock and publishes the Change it returns
// once the lock is released. A nil Change publishes nothing.
func (s *Store) mutate(ctx context.Context, fn func() (*core.Change, error)) error {
	c, err := func() (*core.Change, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn()
	}()
	if err != nil || c == nil {
		return err
	}
	s.notify(ctx, *c)
	return nil
}

// change stamps a Change with the store clock.
func (s *Store) change(collection, op string) *core.Change {
	c := core.NewChange(collection, op, s.now())
	return &c
}

// notify publishes c. Failures are logged only; the write already happened.
func (s *Store) notify(ctx context.Context, c core.Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyChange(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			"collection", c.Collection,
			"op", c.Op,
			"id", c.ID,
			"error", err)
	}
}
