package pwreset

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	// MetricResetRequestSuccess counts reset requests that issued a token.
	MetricResetRequestSuccess MetricID = iota
	// MetricResetRequestFailure counts reset requests that failed for any
	// reason.
	MetricResetRequestFailure
	// MetricIdentityMismatch counts email verification failures.
	MetricIdentityMismatch
	// MetricTokenIssued counts tokens written to the store.
	MetricTokenIssued
	// MetricTokenRedeemed counts successful single-use redemptions.
	MetricTokenRedeemed
	// MetricTokenMismatch counts presentations of a wrong token.
	MetricTokenMismatch
	// MetricTokenReplay counts redemption attempts with no live record.
	MetricTokenReplay
	// MetricPasswordApplied counts successful directory password writes.
	MetricPasswordApplied
	// MetricModifyFailed counts directory rejections of the new password.
	MetricModifyFailed
	// MetricTokenReinstated counts records put back after a failed apply.
	MetricTokenReinstated
	// MetricDirectoryError counts connect/bind/search failures.
	MetricDirectoryError

	metricCount
)

// Metrics is a fixed block of atomic counters. Disabled metrics cost one
// branch per increment.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter at once. Counters advance independently, so
// the snapshot is consistent per counter, not across counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
