// metrics.go - Metrics collection for the mixer daemon
package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"mixer/internal/mixer"
)

// Counters holds the raw operation counters.
type Counters struct {
	DepositsAccepted    int64 `json:"deposits_accepted"`
	WithdrawalsAccepted int64 `json:"withdrawals_accepted"`

	// Rejections per protocol error kind.
	RejectedInput         int64 `json:"rejected_input"`
	RejectedStateConflict int64 `json:"rejected_state_conflict"`
	RejectedConsistency   int64 `json:"rejected_consistency"`
	RejectedCrypto        int64 `json:"rejected_crypto"`
	RejectedTransfer      int64 `json:"rejected_transfer"`
	RateLimited           int64 `json:"rate_limited"`
}

// Metrics tracks pool operation counters and latencies.
type Metrics struct {
	mu       sync.RWMutex
	counters Counters

	depositDurations  []time.Duration
	withdrawDurations []time.Duration
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordDeposit counts one accepted deposit and its duration.
func (m *Metrics) RecordDeposit(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.DepositsAccepted++
	m.depositDurations = capped(append(m.depositDurations, d))
}

// RecordWithdrawal counts one paid withdrawal and its duration.
func (m *Metrics) RecordWithdrawal(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.WithdrawalsAccepted++
	m.withdrawDurations = capped(append(m.withdrawDurations, d))
}

// RecordRejection counts a failed operation by its error kind.
func (m *Metrics) RecordRejection(kind mixer.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case mixer.KindInput:
		m.counters.RejectedInput++
	case mixer.KindStateConflict:
		m.counters.RejectedStateConflict++
	case mixer.KindConsistency:
		m.counters.RejectedConsistency++
	case mixer.KindCrypto:
		m.counters.RejectedCrypto++
	case mixer.KindTransfer:
		m.counters.RejectedTransfer++
	}
}

// RecordRateLimited counts a withdrawal turned away by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.RateLimited++
}

// Summary is the JSON shape served on /metrics.
type Summary struct {
	Counters
	AvgDepositMillis  float64 `json:"avg_deposit_millis"`
	AvgWithdrawMillis float64 `json:"avg_withdraw_millis"`
}

// Snapshot returns a consistent copy of the counters and derived averages.
func (m *Metrics) Snapshot() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summary{
		Counters:          m.counters,
		AvgDepositMillis:  avgMillis(m.depositDurations),
		AvgWithdrawMillis: avgMillis(m.withdrawDurations),
	}
}

// Handler serves the metrics snapshot as JSON.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}

// capped keeps only the most recent 1000 samples for memory efficiency.
func capped(d []time.Duration) []time.Duration {
	if len(d) > 1000 {
		return d[len(d)-1000:]
	}
	return d
}

func avgMillis(d []time.Duration) float64 {
	if len(d) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range d {
		total += v
	}
	return float64(total.Milliseconds()) / float64(len(d))
}
