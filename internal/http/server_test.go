package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/kv/memory"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/middleware/trace"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	medium := memory.New()
	clock := func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }
	store, err := ledger.Open(context.Background(), medium, ledger.WithClock(clock))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	srv := NewServer(":0", store, opts)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, medium
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, medium := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	medium.Set(context.Background(), ledger.KeyTransactions, []byte("{broken"))
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with corrupted data status=%d", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set(trace.HeaderRequestID, "client-req-1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(trace.HeaderRequestID); got != "client-req-1" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("missing Cache-Control")
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":12.5,"date":"2024-03-02","category":"Food","description":"lunch","type":"expense"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[core.Transaction](t, rr)
	if created.ID == "" || created.Amount.Cents != 1250 {
		t.Fatalf("unexpected created transaction %+v", created)
	}
	if rr.Header().Get("Location") != "/api/transactions/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":"2500","date":"2024-02-01","category":"Income","type":"income"}`)

	list := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if len(list) != 2 || list[0].Type != core.Income {
		t.Fatalf("expected newest first, got %+v", list)
	}

	expenses := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?type=expense", ""))
	if len(expenses) != 1 || expenses[0].ID != created.ID {
		t.Fatalf("type filter returned %+v", expenses)
	}

	month := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions/current-month", ""))
	if len(month) != 1 || month[0].ID != created.ID {
		t.Fatalf("current month returned %+v", month)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"trailing data", `{"amount":1,"date":"2024-03-01","category":"Food","type":"expense"} {}`, http.StatusBadRequest, ""},
		{"non numeric amount", `{"amount":"abc","date":"2024-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity, "amount"},
		{"zero amount", `{"amount":0,"date":"2024-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity, "amount"},
		{"oversized amount", `{"amount":200000000000000000,"date":"2024-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity, "amount"},
		{"bad type", `{"amount":1,"date":"2024-03-01","category":"Food","type":"transfer"}`, http.StatusUnprocessableEntity, "type"},
		{"blank category", `{"amount":1,"date":"2024-03-01","category":"  ","type":"expense"}`, http.StatusUnprocessableEntity, "category"},
		{"missing date", `{"amount":1,"category":"Food","type":"expense"}`, http.StatusUnprocessableEntity, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.code, rr.Body)
			}
			body := decode[ErrorBody](t, rr)
			if body.Field != tt.field {
				t.Errorf("field = %q, want %q", body.Field, tt.field)
			}
		})
	}

	if list := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", "")); len(list) != 0 {
		t.Fatalf("rejected requests must not write, got %d", len(list))
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	created := decode[core.Transaction](t, do(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":5,"date":"2024-03-01","category":"Food","type":"expense"}`))

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestReplaceTransactions(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodPut, "/api/transactions",
		`[{"id":"a","amount":1,"date":"2024-03-01","category":"Food","type":"expense"}]`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("replace status=%d body=%s", rr.Code, rr.Body)
	}
	list := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	cats := decode[[]core.Category](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	if len(cats) != len(ledger.DefaultCategories()) {
		t.Fatalf("expected seeded defaults, got %d", len(cats))
	}
	incomeOnly := decode[[]core.Category](t, do(t, srv, http.MethodGet, "/api/categories?type=income", ""))
	if len(incomeOnly) != 1 || incomeOnly[0].Name != ledger.IncomeCategory {
		t.Fatalf("income categories = %+v", incomeOnly)
	}
	if rr := do(t, srv, http.MethodGet, "/api/categories?type=transfer", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid type status=%d", rr.Code)
	}

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Travel","color":"indigo"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category status=%d body=%s", rr.Code, rr.Body)
	}
	travel := decode[core.Category](t, rr)

	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Travel","color":"red"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate name status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodPut, "/api/categories/"+travel.ID, `{"name":"Trips","color":"orange"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/missing", `{"name":"X","color":"orange"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("update missing status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/categories/1", ""); rr.Code != http.StatusConflict {
		t.Fatalf("protected delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/categories/"+travel.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/categories/"+travel.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing status=%d", rr.Code)
	}
}

func TestDashboardCacheInvalidatedByWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{CacheTTL: time.Hour})

	stats := decode[core.DashboardStats](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	if stats.TotalExpenses.Cents != 0 || stats.TopCategories == nil {
		t.Fatalf("unexpected empty stats %+v", stats)
	}

	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":40,"date":"2024-03-01","category":"Food","type":"expense"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":100,"date":"2024-03-02","category":"Income","type":"income"}`)

	stats = decode[core.DashboardStats](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	if stats.TotalExpenses.Cents != 4000 || stats.TotalIncome.Cents != 10000 || stats.Balance.Cents != 6000 {
		t.Fatalf("stale stats after write: %+v", stats)
	}
	do(t, srv, http.MethodGet, "/api/dashboard", "")

	metrics := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	if !strings.Contains(metrics, "cache_hits_total 1") || !strings.Contains(metrics, "ledger_writes_total 2") {
		t.Errorf("unexpected metrics:\n%s", metrics)
	}
}

func TestCharts(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":30,"date":"2024-03-01","category":"Food","type":"expense"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":10,"date":"2024-01-10","category":"Gifts","type":"expense"}`)

	breakdown := decode[[]core.CategorySlice](t, do(t, srv, http.MethodGet, "/api/charts/categories", ""))
	if len(breakdown) != 2 {
		t.Fatalf("breakdown = %+v", breakdown)
	}
	for _, slice := range breakdown {
		if slice.Name == "Gifts" && slice.Color != core.DefaultColor {
			t.Errorf("unknown category color = %q", slice.Color)
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/charts/monthly", "")
	var series []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatal(err)
	}
	if len(series) != ledger.SeriesMonths {
		t.Fatalf("series length = %d", len(series))
	}
	last := series[len(series)-1]
	if last["name"] != "Mar" || last["expenses"] != 30.0 {
		t.Errorf("last bucket = %v", last)
	}
}

func TestExportAndImport(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":12.5,"date":"2024-03-01","category":"Food","type":"expense"}`)

	rr := do(t, srv, http.MethodGet, "/api/export?format=csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "transactions-2024-03-15.csv") {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), "expense,12.50,2024-03-01,Food,,") {
		t.Errorf("export body = %q", rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/api/export?format=xml", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import?format=csv",
		strings.NewReader("type,amount,date,category\nincome,100,2024-03-05,Income\nexpense,7,2024-03-06,Bills\n"))
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[map[string]int](t, rr)["imported"]; got != 2 {
		t.Fatalf("imported = %d", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/import?format=json",
		`[{"amount":1,"date":"2024-03-01","category":"Food","type":"expense"},{"amount":-1,"date":"2024-03-01","category":"Food","type":"expense"}]`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid import status=%d body=%s", rr.Code, rr.Body)
	}
	if list := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", "")); len(list) != 3 {
		t.Fatalf("invalid import must not write, have %d transactions", len(list))
	}
}

func TestCorruptedStorageIs500(t *testing.T) {
	srv, medium := newTestServer(t, Options{})
	medium.Set(context.Background(), ledger.KeyTransactions, []byte(`{"not":"a list"}`))

	rr := do(t, srv, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "not") {
		t.Errorf("internal details leaked: %s", rr.Body)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})
	body := `{"amount":1,"date":"2024-03-01","category":"Food","type":"expense"}`

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Reads are not limited.
	for i := 0; i < 5; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/transactions", ""); rr.Code != http.StatusOK {
			t.Fatalf("read %d status=%d", i, rr.Code)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodGet, "/api/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, "/api/transactions", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status=%d", rr.Code)
	}
}

func TestCachedCountsJoinedLoadsSeparately(t *testing.T) {
	srv, _ := newTestServer(t, Options{CacheTTL: time.Hour})
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	load := func(context.Context) (core.DashboardStats, error) {
		close(started)
		<-release
		return core.DashboardStats{TotalIncome: core.Money{Cents: 1}}, nil
	}
	done := make(chan error, 2)
	go func() {
		_, err := cached(ctx, srv, srv.statsCache, allTimeKey, load)
		done <- err
	}()
	<-started
	go func() {
		_, err := cached(ctx, srv, srv.statsCache, allTimeKey, load)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("cached: %v", err)
		}
	}

	if _, err := cached(ctx, srv, srv.statsCache, allTimeKey, load); err != nil {
		t.Fatalf("cached: %v", err)
	}
	hits := atomic.LoadInt64(&srv.metrics.cacheHits)
	misses := atomic.LoadInt64(&srv.metrics.cacheMisses)
	shared := atomic.LoadInt64(&srv.metrics.cacheShared)
	if hits != 1 || misses != 1 || shared != 1 {
		t.Fatalf("hits=%d misses=%d shared=%d, want 1 each", hits, misses, shared)
	}
}
