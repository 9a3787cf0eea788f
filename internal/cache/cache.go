// Package cache holds derived read models (dashboard stats, chart series)
// between ledger writes.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
	Size() int
}

// Loader fronts a Cache so that concurrent misses for the same key share one
// load. Invalidate bumps a generation; loads are shared and cached only
// within one generation, so a Get after Invalidate never sees older data.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu         sync.Mutex
	generation uint64
}

// Source tells where a Loader result came from.
type Source int

const (
	Hit    Source = iota // served from the cache
	Loaded               // this call ran the load
	Shared               // joined a load started by another call
)

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load to produce it.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, Source, error) {
	l.mu.Lock()
	gen := l.generation
	v, ok := l.cache.Get(key)
	l.mu.Unlock()
	if ok {
		return v, Hit, nil
	}

	// singleflight reports shared for the leader too, so only the caller
	// whose function ran counts as Loaded.
	ran := false
	flight := key + "#" + strconv.FormatUint(gen, 10)
	res, err, _ := l.group.Do(flight, func() (any, error) {
		ran = true
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.mu.Lock()
		if gen == l.generation {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})
	src := Shared
	if ran {
		src = Loaded
	}
	if err != nil {
		var zero T
		return zero, src, err
	}
	return res.(T), src, nil
}

// Invalidate drops every cached value.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	l.generation++
	l.cache.Purge()
	l.mu.Unlock()
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically drops expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cache cleanup", "component", "cache", "expired", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop halts the cleanup goroutine and waits for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}
