package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	bidsApplied      atomic.Uint64
	bidsRejected     atomic.Uint64
	proxyResolutions atomic.Uint64
	auctionsExtended atomic.Uint64
	auctionsClosed   atomic.Uint64

	// Gauges
	pendingTimers    atomic.Int32
	connectedClients atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordBidApplied records an accepted bid.
func (m *Metrics) RecordBidApplied() {
	m.bidsApplied.Add(1)
}

// RecordBidRejected records a validation rejection.
func (m *Metrics) RecordBidRejected() {
	m.bidsRejected.Add(1)
}

// RecordProxyResolution records one reactive proxy-resolution pass that
// produced a price jump.
func (m *Metrics) RecordProxyResolution() {
	m.proxyResolutions.Add(1)
}

// RecordAuctionExtended records an anti-sniping deadline extension.
func (m *Metrics) RecordAuctionExtended() {
	m.auctionsExtended.Add(1)
}

// RecordAuctionClosed records a completed ACTIVE→COMPLETED transition.
func (m *Metrics) RecordAuctionClosed() {
	m.auctionsClosed.Add(1)
}

// SetPendingTimers sets the current count of scheduled close timers.
func (m *Metrics) SetPendingTimers(count int32) {
	m.pendingTimers.Store(count)
}

// IncrementClients increments connected notification clients by 1.
func (m *Metrics) IncrementClients() {
	m.connectedClients.Add(1)
}

// DecrementClients decrements connected notification clients by 1.
func (m *Metrics) DecrementClients() {
	m.connectedClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	BidsApplied      uint64
	BidsRejected     uint64
	ProxyResolutions uint64
	AuctionsExtended uint64
	AuctionsClosed   uint64
	PendingTimers    int32
	ConnectedClients int32
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BidsApplied:      m.bidsApplied.Load(),
		BidsRejected:     m.bidsRejected.Load(),
		ProxyResolutions: m.proxyResolutions.Load(),
		AuctionsExtended: m.auctionsExtended.Load(),
		AuctionsClosed:   m.auctionsClosed.Load(),
		PendingTimers:    m.pendingTimers.Load(),
		ConnectedClients: m.connectedClients.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.bidsApplied.Store(0)
	m.bidsRejected.Store(0)
	m.proxyResolutions.Store(0)
	m.auctionsExtended.Store(0)
	m.auctionsClosed.Store(0)
	m.pendingTimers.Store(0)
	m.connectedClients.Store(0)
}
