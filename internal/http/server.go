package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

const (
	cacheMaxEntries      = 64
	cacheCleanupInterval = 5 * time.Minute
)

type Options struct {
	RateLimitPerMinute int
	// CacheTTL bounds how long derived dashboard data is served from cache.
	// Writes through this server invalidate it immediately.
	CacheTTL       time.Duration
	TrustedProxies []string
	Logger         *applog.Logger
}

type Server struct {
	http.Server
	store  *ledger.Store
	logger *applog.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	cacheManager   *cache.Manager
	statsCache     *cache.Loader[core.DashboardStats]
	breakdownCache *cache.Loader[[]core.CategorySlice]
	seriesCache    *cache.Loader[[]core.MonthBucket]

	metrics      appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	statsLRU := cache.NewLRUCache[core.DashboardStats](cacheMaxEntries, ttl)
	breakdownLRU := cache.NewLRUCache[[]core.CategorySlice](cacheMaxEntries, ttl)
	seriesLRU := cache.NewLRUCache[[]core.MonthBucket](cacheMaxEntries, ttl)

	s := &Server{
		store:          store,
		logger:         logger,
		detector:       security.NewDetector(),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		cacheManager:   cache.NewManager(),
		statsCache:     cache.NewLoader[core.DashboardStats](statsLRU),
		breakdownCache: cache.NewLoader[[]core.CategorySlice](breakdownLRU),
		seriesCache:    cache.NewLoader[[]core.MonthBucket](seriesLRU),
		metrics:        appMetrics{startedAt: time.Now()},
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.cacheManager.Register(statsLRU)
	s.cacheManager.Register(breakdownLRU)
	s.cacheManager.Register(seriesLRU)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(trace.FromRequest))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/current-month", s.handleCurrentMonthTransactions)
		r.Get("/categories", s.handleListCategories)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/charts/categories", s.handleCategoryChart)
		r.Get("/charts/monthly", s.handleMonthlyChart)
		r.Get("/export", s.handleExport)

		// Only writes count against the per-client limit.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
			r.Post("/transactions", s.handleCreateTransaction)
			r.Put("/transactions", s.handleReplaceTransactions)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories", s.handleReplaceCategories)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
			r.Post("/import", s.handleImport)
		})
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// invalidateDerived drops cached dashboard data after a write.
func (s *Server) invalidateDerived() {
	s.statsCache.Invalidate()
	s.breakdownCache.Invalidate()
	s.seriesCache.Invalidate()
}

// Shutdown stops background goroutines and the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
