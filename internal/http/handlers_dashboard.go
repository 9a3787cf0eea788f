package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"ledger/internal/cache"
	applog "ledger/internal/log"
)

const allTimeKey = "all"

// cached serves key from loader. Only requests that ran the load count as
// misses; requests that joined one are counted separately.
func cached[T any](ctx context.Context, s *Server, loader *cache.Loader[T], key string, load func(context.Context) (T, error)) (T, error) {
	v, src, err := loader.Get(ctx, key, load)
	switch src {
	case cache.Loaded:
		atomic.AddInt64(&s.metrics.cacheMisses, 1)
	case cache.Shared:
		atomic.AddInt64(&s.metrics.cacheShared, 1)
	case cache.Hit:
		atomic.AddInt64(&s.metrics.cacheHits, 1)
	}
	return v, err
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := cached(r.Context(), s, s.statsCache, allTimeKey, s.store.DashboardStats)
	if err != nil {
		s.logStoreError(r, "Failed to compute dashboard stats", err, applog.OpRead)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(stats).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	slices, err := cached(r.Context(), s, s.breakdownCache, allTimeKey, s.store.CategoryBreakdown)
	if err != nil {
		s.logStoreError(r, "Failed to compute category breakdown", err, applog.OpRead)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(slices).Write(w)
}

// handleMonthlyChart caches per calendar month so the window rolls over
// without an explicit invalidation.
func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	key := s.store.Now().Format("2006-01")
	series, err := cached(r.Context(), s, s.seriesCache, key, s.store.MonthlySeries)
	if err != nil {
		s.logStoreError(r, "Failed to compute monthly series", err, applog.OpRead)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(series).Write(w)
}
