package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mixer/internal/mixer"
)

var errBroken = errors.New("component down")

func TestRateLimiterExhaustionAndRefill(t *testing.T) {
	rl := NewRateLimiter(2, 1, time.Minute)

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst tokens should be available immediately")
	}
	if rl.Allow() {
		t.Fatal("third request should be rejected with the bucket empty")
	}
	if rl.Available() != 0 {
		t.Fatalf("expected 0 tokens, got %d", rl.Available())
	}

	// Backdate the last refill instead of sleeping: two periods elapsed
	// refill two tokens.
	rl.mu.Lock()
	rl.lastRefill = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("tokens should be refilled after the elapsed periods")
	}
	if rl.Allow() {
		t.Fatal("refill must not exceed the elapsed-period budget")
	}
}

func TestRateLimiterCapsAtMaxTokens(t *testing.T) {
	rl := NewRateLimiter(3, 10, time.Second)
	rl.mu.Lock()
	rl.lastRefill = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if rl.Allow() {
		t.Fatal("bucket must not hold more than maxTokens")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"depth too small", func(c *Config) { c.TreeDepth = 0 }},
		{"depth too large", func(c *Config) { c.TreeDepth = 32 }},
		{"denomination not a number", func(c *Config) { c.Denomination = "one" }},
		{"denomination zero", func(c *Config) { c.Denomination = "0" }},
		{"denomination negative", func(c *Config) { c.Denomination = "-5" }},
		{"empty state path", func(c *Config) { c.StatePath = "" }},
		{"empty key dir", func(c *Config) { c.KeyDir = "" }},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"zero burst", func(c *Config) { c.WithdrawBurst = 0 }},
		{"zero rate", func(c *Config) { c.WithdrawPerMinute = 0 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixerd.json")

	// First load creates and persists the defaults.
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TreeDepth != DefaultConfig().TreeDepth {
		t.Fatalf("expected default tree depth, got %d", cfg.TreeDepth)
	}

	cfg.TreeDepth = 8
	cfg.Denomination = "250"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig after save: %v", err)
	}
	if loaded.TreeDepth != 8 {
		t.Fatalf("expected tree depth 8, got %d", loaded.TreeDepth)
	}
	if loaded.DenominationValue().Int64() != 250 {
		t.Fatalf("expected denomination 250, got %s", loaded.Denomination)
	}
}

func TestMetricsRejectionKinds(t *testing.T) {
	m := NewMetrics()
	m.RecordRejection(mixer.KindInput)
	m.RecordRejection(mixer.KindInput)
	m.RecordRejection(mixer.KindStateConflict)
	m.RecordRejection(mixer.KindConsistency)
	m.RecordRejection(mixer.KindCrypto)
	m.RecordRejection(mixer.KindTransfer)
	m.RecordRateLimited()

	s := m.Snapshot()
	if s.RejectedInput != 2 {
		t.Errorf("RejectedInput = %d, want 2", s.RejectedInput)
	}
	if s.RejectedStateConflict != 1 || s.RejectedConsistency != 1 ||
		s.RejectedCrypto != 1 || s.RejectedTransfer != 1 {
		t.Errorf("per-kind rejection counters wrong: %+v", s.Counters)
	}
	if s.RateLimited != 1 {
		t.Errorf("RateLimited = %d, want 1", s.RateLimited)
	}
}

func TestMetricsOperationCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordDeposit(10 * time.Millisecond)
	m.RecordDeposit(30 * time.Millisecond)
	m.RecordWithdrawal(40 * time.Millisecond)

	s := m.Snapshot()
	if s.DepositsAccepted != 2 || s.WithdrawalsAccepted != 1 {
		t.Fatalf("counters wrong: %+v", s.Counters)
	}
	if s.AvgDepositMillis != 20 {
		t.Errorf("AvgDepositMillis = %v, want 20", s.AvgDepositMillis)
	}
	if s.AvgWithdrawMillis != 40 {
		t.Errorf("AvgWithdrawMillis = %v, want 40", s.AvgWithdrawMillis)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordDeposit(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("invalid metrics JSON: %v", err)
	}
	if s.DepositsAccepted != 1 {
		t.Fatalf("DepositsAccepted = %d, want 1", s.DepositsAccepted)
	}
}

// kindForStatus must stay the exact inverse of the API's error-to-status
// mapping; a drift here silently miscounts rejections.
func TestKindForStatusInvertsAPIMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   mixer.Kind
	}{
		{http.StatusBadRequest, mixer.KindInput},
		{http.StatusConflict, mixer.KindStateConflict},
		{http.StatusGone, mixer.KindConsistency},
		{http.StatusForbidden, mixer.KindCrypto},
		{http.StatusBadGateway, mixer.KindTransfer},
	}
	for _, tc := range cases {
		kind, ok := kindForStatus(tc.status)
		if !ok || kind != tc.kind {
			t.Errorf("kindForStatus(%d) = (%v, %v), want (%v, true)", tc.status, kind, ok, tc.kind)
		}
	}
	for _, status := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusInternalServerError} {
		if _, ok := kindForStatus(status); ok {
			t.Errorf("kindForStatus(%d) should not map to any kind", status)
		}
	}
}

func TestHealthCheckerReportsUnhealthy(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterComponent("ok", func() error { return nil })

	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy system returned %d", rec.Code)
	}

	hc.RegisterComponent("broken", func() error { return errBroken })
	rec = httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy system returned %d", rec.Code)
	}
	var report SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if report.OverallStatus != Unhealthy {
		t.Fatalf("overall status = %s, want %s", report.OverallStatus, Unhealthy)
	}
}
