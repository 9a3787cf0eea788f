package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	startedAt    time.Time
	writes       int64
	cacheHits    int64
	cacheMisses  int64
	cacheShared  int64
	importedRows int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady verifies the stored collections can be read and decoded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"ledger": "ok"}
	if _, err := s.store.ListCategories(ctx); err != nil {
		checks["ledger"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if _, err := s.store.ListTransactions(ctx); err != nil {
		checks["ledger"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_response_time_avg_ms", "gauge", "Average response time in milliseconds", traceMetrics.AverageResponseTime.Milliseconds())
	writeMetric(w, "ledger_writes_total", "counter", "Successful ledger writes", atomic.LoadInt64(&s.metrics.writes))
	writeMetric(w, "ledger_imported_rows_total", "counter", "Transactions added by imports", atomic.LoadInt64(&s.metrics.importedRows))
	writeMetric(w, "cache_hits_total", "counter", "Dashboard cache hits", atomic.LoadInt64(&s.metrics.cacheHits))
	writeMetric(w, "cache_misses_total", "counter", "Dashboard cache misses", atomic.LoadInt64(&s.metrics.cacheMisses))
	writeMetric(w, "cache_shared_loads_total", "counter", "Dashboard requests that joined an in-flight load", atomic.LoadInt64(&s.metrics.cacheShared))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.metrics.startedAt).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

// recordWrite counts a successful mutation and drops derived caches.
func (s *Server) recordWrite() {
	atomic.AddInt64(&s.metrics.writes, 1)
	s.invalidateDerived()
}
