package mw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (auth.Identity, error) {
	owner, ok := s[token]
	if !ok {
		return auth.Identity{}, errors.New("bad token")
	}
	return auth.Identity{OwnerID: owner}, nil
}

func TestRequireIdentity(t *testing.T) {
	var seen string
	h := RequireIdentity(stubVerifier{"good": "alice"}, logger.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = auth.OwnerID(r.Context())
		}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantOwner  string
	}{
		{"valid token", "Bearer good", http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if seen != tt.wantOwner {
				t.Errorf("expected owner %q, got %q", tt.wantOwner, seen)
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), "login required") {
				t.Errorf("expected login required body, got %q", rec.Body.String())
			}
		})
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8", "192.168.1.5"}, true, logger.NewNop())(okHandler)

	tests := []struct {
		name       string
		remote     string
		xff        string
		wantStatus int
	}{
		{"cidr match", "10.1.2.3:5555", "", http.StatusOK},
		{"exact ip", "192.168.1.5:80", "", http.StatusOK},
		{"outside", "8.8.8.8:80", "", http.StatusForbidden},
		{"forwarded inside", "127.0.0.1:80", "10.9.9.9, 1.1.1.1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAllowOnlyCIDRS_EmptyIsPassthrough(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, logger.NewNop())(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "8.8.8.8:80"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected passthrough, got %d", rec.Code)
	}
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"stash.example.com", "stash.example.com", true},
		{"Stash.Example.com", "stash.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil.com", "*.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"*.example.com"}, logger.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/tags/sweep", nil)
	req.Host = "admin.example.com:8080"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected allowed host, got %d", rec.Code)
	}

	req.Host = "other.org"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(okHandler)

	hit := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := hit("1.2.3.4:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := hit("1.2.3.4:1000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}

	if rec := hit("5.6.7.8:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client should not be limited, got %d", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := hit("1.2.3.4:1000"); rec.Code != http.StatusOK {
		t.Errorf("expected refill after 1s, got %d", rec.Code)
	}
}

func TestRateLimitCapsActiveBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{
		Burst:             5,
		RefillPerIPPerMin: 60,
		MaxEntries:        3,
		Now:               func() time.Time { return now },
	})

	for i, key := range []string{"a", "b", "c", "d", "e"} {
		now = now.Add(time.Second)
		if ok, _, _ := l.allow(key, now); !ok {
			t.Fatalf("request %d for %q rejected", i, key)
		}
	}

	if n := len(l.buckets); n != 3 {
		t.Fatalf("expected 3 buckets, got %d", n)
	}
	for _, key := range []string{"a", "b"} {
		if _, ok := l.buckets[key]; ok {
			t.Errorf("least recently seen bucket %q should have been evicted", key)
		}
	}
	if _, ok := l.buckets["e"]; !ok {
		t.Error("newest bucket missing")
	}
}

func TestOwnerKey(t *testing.T) {
	key := OwnerKey(false)

	req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
	req.RemoteAddr = "1.2.3.4:1000"
	if got := key(req); got != "ip:1.2.3.4" {
		t.Errorf("anonymous key = %q", got)
	}

	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{OwnerID: "alice"}))
	if got := key(req); got != "owner:alice" {
		t.Errorf("owner key = %q", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/bookmarks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin for foreign site: %q", got)
	}
}
