package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestRateLimitBlocksPerTenant(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := RateLimit(RateLimitPolicy{Name: "api", Window: time.Minute, Limit: 2}, limiter, nil)(okHandler())
	tenantA, tenantB := uuid.New(), uuid.New()

	send := func(tenant uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req = req.WithContext(WithPrincipal(req.Context(), tenant, "u", enums.MemberRoleStaff))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	for i := 0; i < 2; i++ {
		if resp := send(tenantA); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
	}
	blocked := send(tenantA)
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", blocked.Code)
	}
	if blocked.Header().Get("Retry-After") != "60" || blocked.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected headers %v", blocked.Header())
	}
	if resp := send(tenantB); resp.Code != http.StatusOK {
		t.Fatalf("other tenant must have its own window, got %d", resp.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := RateLimit(RateLimitPolicy{Window: time.Minute, Limit: 1}, limiter, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected request through when limiter fails, got %d", resp.Code)
	}
}

func TestRateLimitUsesClientIPWithoutTenant(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := RateLimit(RateLimitPolicy{Name: "webhooks", Window: time.Minute, Limit: 5}, limiter, nil)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if limiter.counts["webhooks:ip:203.0.113.9"] != 1 {
		t.Fatalf("expected ip scoped counter, got %v", limiter.counts)
	}
}
