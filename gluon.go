// Package gluon is the top-level API of the simulator: a GLUG orchestrator
// (frontend, decode/dispatch, completion ring, engines, GLULs, DRAM) wired
// from configuration and driven one tick at a time.
package gluon

import (
	"sync"

	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/config"
	"github.com/glugsim/gluon/internal/glug"
)

// HostMemory is the mapped shared-memory region DMA requests read from and
// write into. Satisfied by *internal/hostmem.Region.
type HostMemory = glug.HostMemory

// Simulator is the top-level entry point. It serializes SubmitCommand,
// PopCompletion, and Tick through a single mutex, so a host-facing
// transport running on its own goroutine may call all three concurrently;
// any call sequence that respects this serialization is legal from the
// orchestrator's perspective.
type Simulator struct {
	mu       sync.Mutex
	core     *glug.GLUG
	metrics  *Metrics
	observer Observer
}

// glugObserver adapts a gluon.Observer to glug.Observer. glug cannot import
// gluon (gluon already imports glug), so it declares its own interface; the
// two are method-set-identical by construction, so a gluon.Observer would
// also assign to glug.Observer directly. This thin shim only names that
// adaptation at the call site.
type glugObserver struct {
	Observer
}

// New builds a Simulator from a decoded Config and a mapped host region.
// host may be nil for configurations that never issue DMA (e.g. MEM SET
// only workloads or tests). A nil obs defaults to an observer recording
// into the Simulator's own Metrics, retrievable via Metrics/MetricsSnapshot —
// callers that want no observation at all should pass NoOpObserver{}.
func New(cfg config.Config, host HostMemory, obs Observer) *Simulator {
	gluls := make([]common.GLULConfig, len(cfg.GLUG.GLULs))
	for i, g := range cfg.GLUG.GLULs {
		gluls[i] = g.ToCommon()
	}

	metrics := NewMetrics()
	observer := obs
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	core := glug.New(glug.Config{
		FrontendQueueSize: cfg.GLUG.Frontend.CommandQueueSize,
		KernelQueueSize:   cfg.GLUG.DecodeDispatch.KQSize,
		MemQueueSize:      cfg.GLUG.DecodeDispatch.MQSize,
		CSRQueueSize:      cfg.GLUG.DecodeDispatch.CSQSize,
		CompletionRingCap: cfg.GLUG.Completion.EventQueueSize,
		DRAMSize:          cfg.GLUG.DRAMSize,
		GLULConfigs:       gluls,
		TimeoutCycles:     cfg.Sim.TimeoutCycles,
		Host:              host,
		Observer:          glugObserver{observer},
	})

	return &Simulator{
		core:     core,
		metrics:  metrics,
		observer: observer,
	}
}

// Metrics returns the Simulator's own metrics instance. It records live
// data only when New was called with a nil Observer (the default); if a
// custom Observer was supplied, this snapshot stays at zero.
func (s *Simulator) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the Simulator's own
// metrics. See Metrics for when it reflects live data.
func (s *Simulator) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// SubmitCommand latches cmd at the frontend. It returns false if the
// frontend is already occupied — the caller must retry after a Tick.
func (s *Simulator) SubmitCommand(cmd common.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.SubmitCommand(cmd)
}

// PopCompletion returns the oldest ready completion event, in the order its
// command entered decode/dispatch.
func (s *Simulator) PopCompletion() (common.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PopCompletion()
}

// Tick advances the simulator by one cycle, running the fixed ten-phase
// orchestrator tick. It returns a non-nil error only on TIMEOUT, once the
// configured cycle budget is exhausted.
func (s *Simulator) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Tick()
}
