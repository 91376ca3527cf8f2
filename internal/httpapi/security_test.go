package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := newTestAPI(t).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestOptionsPreflightShortCircuits(t *testing.T) {
	handler := newTestAPI(t).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Fatalf("allow methods %q", got)
	}
}

func TestMutatingRequestWithoutCSRFRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginAs(t, handler, "cashier", "cashier-test-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/clear", token, "", map[string]any{
		"terminal_id": "till-1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/cart/clear", token, "forged-token", map[string]any{
		"terminal_id": "till-1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for forged CSRF token, got %d", rec.Code)
	}
}

func TestMutatingRequestWithCSRFAccepted(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginAs(t, handler, "cashier", "cashier-test-pass")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/clear", token, csrf, map[string]any{
		"terminal_id": "till-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestLoginExemptFromCSRF(t *testing.T) {
	handler := newTestAPI(t).Handler()
	// loginAs sends no CSRF header; reaching 200 proves the exemption.
	if token := loginAs(t, handler, "admin", "admin-test-pass"); token == "" {
		t.Fatal("empty token")
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestForbiddenRoleGetsForbidden(t *testing.T) {
	handler := newTestAPI(t).Handler()
	cashierToken := loginAs(t, handler, "cashier", "cashier-test-pass")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+cashierToken)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on admin route, got %d", res.Code)
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}

func TestCSRFTokenValidationWindow(t *testing.T) {
	api := newTestAPI(t)
	token := api.generateCSRFToken()
	if !api.validateCSRFToken(token) {
		t.Fatal("freshly generated token rejected")
	}
	if api.validateCSRFToken("") || api.validateCSRFToken("bogus") {
		t.Fatal("invalid token accepted")
	}
}
