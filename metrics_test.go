package gluon

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordKernelLaunch(4, 1000, true)
	m.RecordDMA(DMAHostToDevice, 2048, 2000)
	m.RecordKernelLaunch(2, 500, false)

	snap = m.Snapshot()

	if snap.KernelLaunches != 2 {
		t.Errorf("Expected 2 kernel launches, got %d", snap.KernelLaunches)
	}
	if snap.KernelCompletions != 1 {
		t.Errorf("Expected 1 kernel completion, got %d", snap.KernelCompletions)
	}
	if snap.KernelExecErrors != 1 {
		t.Errorf("Expected 1 kernel exec error, got %d", snap.KernelExecErrors)
	}
	if snap.ThreadBlocksDispatched != 6 {
		t.Errorf("Expected 6 thread blocks dispatched, got %d", snap.ThreadBlocksDispatched)
	}
	if snap.DMAOpsH2D != 1 || snap.DMABytesH2D != 2048 {
		t.Errorf("Expected 1 H2D op of 2048 bytes, got %d ops / %d bytes", snap.DMAOpsH2D, snap.DMABytesH2D)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsMemOps(t *testing.T) {
	m := NewMetrics()

	m.RecordMemOp(MemOpSet, 4096, 100)
	m.RecordMemOp(MemOpCopy, 8192, 200)
	m.RecordMemOp(MemOpCopy, 1024, 50)

	snap := m.Snapshot()
	if snap.MemSetOps != 1 {
		t.Errorf("Expected 1 SET op, got %d", snap.MemSetOps)
	}
	if snap.MemCopyOps != 2 {
		t.Errorf("Expected 2 COPY ops, got %d", snap.MemCopyOps)
	}
	if snap.MemBytes != 4096+8192+1024 {
		t.Errorf("Expected %d mem bytes, got %d", 4096+8192+1024, snap.MemBytes)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueDepth(10)
	m.RecordQueueDepth(20)
	m.RecordQueueDepth(15)

	snap := m.Snapshot()

	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordKernelLaunch(1, 1000, true)
	m.RecordCSR(2000)

	snap := m.Snapshot()

	expectedAvg := uint64(1500)
	if snap.AvgLatencyCycles != expectedAvg {
		t.Errorf("Expected avg latency %d cycles, got %d", expectedAvg, snap.AvgLatencyCycles)
	}
}

func TestMetricsTimeout(t *testing.T) {
	m := NewMetrics()

	m.RecordKernelLaunch(1, 100, true)
	m.RecordTimeout()

	snap := m.Snapshot()
	if snap.Timeouts != 1 {
		t.Errorf("Expected 1 timeout, got %d", snap.Timeouts)
	}
	if snap.ErrorRate < 99.9 {
		t.Errorf("Expected a timeout to dominate the error rate, got %.1f%%", snap.ErrorRate)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()

	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()

	if snap2.UptimeNs > snap.UptimeNs+2*1000000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordKernelLaunch(1, 1000, true)
	m.RecordDMA(DMADeviceToHost, 2048, 2000)
	m.RecordQueueDepth(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TotalBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.TotalBytes)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("Expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveKernelLaunch(1, 1000, true)
	observer.ObserveDMA(DMAHostToDevice, 1024, 1000)
	observer.ObserveMemOp(MemOpSet, 1024, 1000)
	observer.ObserveCSR(1000)
	observer.ObserveTimeout()
	observer.ObserveQueueDepth(10)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveKernelLaunch(1, 1000, true)
	metricsObserver.ObserveDMA(DMAHostToDevice, 2048, 2000)

	snap := m.Snapshot()
	if snap.KernelLaunches != 1 {
		t.Errorf("Expected 1 kernel launch from observer, got %d", snap.KernelLaunches)
	}
	if snap.DMAOpsH2D != 1 {
		t.Errorf("Expected 1 DMA op from observer, got %d", snap.DMAOpsH2D)
	}
	if snap.DMABytesH2D != 2048 {
		t.Errorf("Expected 2048 DMA bytes from observer, got %d", snap.DMABytesH2D)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordKernelLaunch(1, 500, true)
	}
	for i := 0; i < 49; i++ {
		m.RecordDMA(DMAHostToDevice, 1024, 5_000)
	}
	m.RecordDMA(DMADeviceToHost, 1024, 50_000)

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50 < 100 || snap.LatencyP50 > 1_000 {
		t.Errorf("Expected P50 in 100-1000 cycle range, got %d", snap.LatencyP50)
	}

	if snap.LatencyP99 < 10_000 || snap.LatencyP99 > 100_000 {
		t.Errorf("Expected P99 in 10000-100000 cycle range, got %d", snap.LatencyP99)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
