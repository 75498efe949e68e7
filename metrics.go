package gluon

import (
	"sync/atomic"
	"time"

	"github.com/glugsim/gluon/internal/common"
)

// LatencyBuckets defines the submit-to-completion latency histogram
// buckets, in simulated cycles. Buckets cover from 10 cycles to 100M
// cycles with logarithmic spacing.
var LatencyBuckets = []uint64{
	10,
	100,
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
}

const numLatencyBuckets = 8

// DMADirection is the direction of a recorded DMA transfer — the same type
// DMAReq.Dir carries, so GLUG's phases can report straight through without
// a conversion layer.
type DMADirection = common.DMADir

const (
	DMAHostToDevice = common.H2D
	DMADeviceToHost = common.D2H
)

// MemOpKind distinguishes a MEM SET from a MEM COPY for metrics purposes,
// aliasing the same MemOp a MemCommand carries.
type MemOpKind = common.MemOp

const (
	MemOpSet  = common.MemOpSet
	MemOpCopy = common.MemOpCopy
)

// Metrics tracks operational statistics for a Simulator: kernel launch
// throughput and latency, DMA and MEM traffic, and fatal-error counts.
type Metrics struct {
	KernelLaunches         atomic.Uint64
	KernelCompletions      atomic.Uint64
	KernelExecErrors       atomic.Uint64
	ThreadBlocksDispatched atomic.Uint64

	DMAOpsH2D   atomic.Uint64
	DMAOpsD2H   atomic.Uint64
	DMABytesH2D atomic.Uint64
	DMABytesD2H atomic.Uint64

	MemSetOps  atomic.Uint64
	MemCopyOps atomic.Uint64
	MemBytes   atomic.Uint64

	CSROps atomic.Uint64

	Timeouts atomic.Uint64

	// Dispatch queue depth samples (KQ+MQ+CSQ occupancy at sample time).
	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	TotalLatencyCycles atomic.Uint64
	OpCount            atomic.Uint64

	// LatencyHistogram[i] is the count of operations whose latency was
	// <= LatencyBuckets[i] (cumulative).
	LatencyHistogram [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64 // UnixNano
}

// NewMetrics creates a new metrics instance with its start time set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordKernelLaunch records a kernel launch's completion.
func (m *Metrics) RecordKernelLaunch(blocks uint32, latencyCycles uint64, success bool) {
	m.KernelLaunches.Add(1)
	m.ThreadBlocksDispatched.Add(uint64(blocks))
	if success {
		m.KernelCompletions.Add(1)
	} else {
		m.KernelExecErrors.Add(1)
	}
	m.recordLatency(latencyCycles)
}

// RecordDMA records a DMA transfer of the given direction and size.
func (m *Metrics) RecordDMA(dir DMADirection, bytes uint64, latencyCycles uint64) {
	switch dir {
	case DMAHostToDevice:
		m.DMAOpsH2D.Add(1)
		m.DMABytesH2D.Add(bytes)
	case DMADeviceToHost:
		m.DMAOpsD2H.Add(1)
		m.DMABytesD2H.Add(bytes)
	}
	m.recordLatency(latencyCycles)
}

// RecordMemOp records a MEM SET or COPY.
func (m *Metrics) RecordMemOp(op MemOpKind, bytes uint64, latencyCycles uint64) {
	switch op {
	case MemOpSet:
		m.MemSetOps.Add(1)
	case MemOpCopy:
		m.MemCopyOps.Add(1)
	}
	m.MemBytes.Add(bytes)
	m.recordLatency(latencyCycles)
}

// RecordCSR records a CSR read or write completion.
func (m *Metrics) RecordCSR(latencyCycles uint64) {
	m.CSROps.Add(1)
	m.recordLatency(latencyCycles)
}

// RecordTimeout records a top-level cycle budget exhaustion.
func (m *Metrics) RecordTimeout() {
	m.Timeouts.Add(1)
}

// RecordQueueDepth records a dispatch queue occupancy sample.
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyCycles uint64) {
	m.TotalLatencyCycles.Add(latencyCycles)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyCycles <= bucket {
			m.LatencyHistogram[i].Add(1)
		}
	}
}

// Stop marks the simulator as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	KernelLaunches         uint64
	KernelCompletions      uint64
	KernelExecErrors       uint64
	ThreadBlocksDispatched uint64

	DMAOpsH2D   uint64
	DMAOpsD2H   uint64
	DMABytesH2D uint64
	DMABytesD2H uint64

	MemSetOps  uint64
	MemCopyOps uint64
	MemBytes   uint64

	CSROps   uint64
	Timeouts uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyCycles uint64
	UptimeNs         uint64

	LatencyP50  uint64
	LatencyP99  uint64
	LatencyP999 uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	ErrorRate  float64
}

// Snapshot returns a point-in-time snapshot of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		KernelLaunches:         m.KernelLaunches.Load(),
		KernelCompletions:      m.KernelCompletions.Load(),
		KernelExecErrors:       m.KernelExecErrors.Load(),
		ThreadBlocksDispatched: m.ThreadBlocksDispatched.Load(),
		DMAOpsH2D:              m.DMAOpsH2D.Load(),
		DMAOpsD2H:              m.DMAOpsD2H.Load(),
		DMABytesH2D:            m.DMABytesH2D.Load(),
		DMABytesD2H:            m.DMABytesD2H.Load(),
		MemSetOps:              m.MemSetOps.Load(),
		MemCopyOps:             m.MemCopyOps.Load(),
		MemBytes:               m.MemBytes.Load(),
		CSROps:                 m.CSROps.Load(),
		Timeouts:               m.Timeouts.Load(),
		MaxQueueDepth:          m.MaxQueueDepth.Load(),
	}

	snap.TotalOps = snap.KernelLaunches + snap.DMAOpsH2D + snap.DMAOpsD2H + snap.MemSetOps + snap.MemCopyOps + snap.CSROps
	snap.TotalBytes = snap.DMABytesH2D + snap.DMABytesD2H + snap.MemBytes

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatency := m.TotalLatencyCycles.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyCycles = totalLatency / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	totalErrors := snap.KernelExecErrors + snap.Timeouts
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHistogram[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50 = m.calculatePercentile(0.50)
		snap.LatencyP99 = m.calculatePercentile(0.99)
		snap.LatencyP999 = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyHistogram[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyHistogram[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters, for test isolation.
func (m *Metrics) Reset() {
	m.KernelLaunches.Store(0)
	m.KernelCompletions.Store(0)
	m.KernelExecErrors.Store(0)
	m.ThreadBlocksDispatched.Store(0)
	m.DMAOpsH2D.Store(0)
	m.DMAOpsD2H.Store(0)
	m.DMABytesH2D.Store(0)
	m.DMABytesD2H.Store(0)
	m.MemSetOps.Store(0)
	m.MemCopyOps.Store(0)
	m.MemBytes.Store(0)
	m.CSROps.Store(0)
	m.Timeouts.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalLatencyCycles.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyHistogram[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection.
type Observer interface {
	ObserveKernelLaunch(blocks uint32, latencyCycles uint64, success bool)
	ObserveDMA(dir DMADirection, bytes uint64, latencyCycles uint64)
	ObserveMemOp(op MemOpKind, bytes uint64, latencyCycles uint64)
	ObserveCSR(latencyCycles uint64)
	ObserveTimeout()
	ObserveQueueDepth(depth uint32)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveKernelLaunch(uint32, uint64, bool) {}
func (NoOpObserver) ObserveDMA(DMADirection, uint64, uint64)  {}
func (NoOpObserver) ObserveMemOp(MemOpKind, uint64, uint64)   {}
func (NoOpObserver) ObserveCSR(uint64)                        {}
func (NoOpObserver) ObserveTimeout()                          {}
func (NoOpObserver) ObserveQueueDepth(uint32)                 {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver builds an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveKernelLaunch(blocks uint32, latencyCycles uint64, success bool) {
	o.metrics.RecordKernelLaunch(blocks, latencyCycles, success)
}

func (o *MetricsObserver) ObserveDMA(dir DMADirection, bytes uint64, latencyCycles uint64) {
	o.metrics.RecordDMA(dir, bytes, latencyCycles)
}

func (o *MetricsObserver) ObserveMemOp(op MemOpKind, bytes uint64, latencyCycles uint64) {
	o.metrics.RecordMemOp(op, bytes, latencyCycles)
}

func (o *MetricsObserver) ObserveCSR(latencyCycles uint64) {
	o.metrics.RecordCSR(latencyCycles)
}

func (o *MetricsObserver) ObserveTimeout() {
	o.metrics.RecordTimeout()
}

func (o *MetricsObserver) ObserveQueueDepth(depth uint32) {
	o.metrics.RecordQueueDepth(depth)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
