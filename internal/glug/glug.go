// Package glug composes the frontend, decode/dispatch, completion ring, the
// three engines, and the GLULs into the orchestrator's fixed-phase tick.
package glug

import (
	"github.com/glugsim/gluon/internal/bufpool"
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/dram"
	"github.com/glugsim/gluon/internal/glul"
)

// HostMemory is the subset of the host-shared-memory region a DMA needs:
// a byte window, writable in place, backing the mapped region.
type HostMemory interface {
	Bytes(offset, length uint32) ([]byte, error)
}

const (
	engineIdxKernel = 0
	engineIdxMem    = 1
	engineIdxCSR    = 2
)

// GLUG is one GPU-like accelerator: the frontend queue, decode/dispatch,
// completion ring, the three per-type engines, a DRAM, and the GLULs the
// KernelEngine schedules thread blocks onto. Tick runs the fixed ten-phase
// cycle; nothing here is safe for concurrent use, matching the rest of the
// single-threaded cooperative pipeline.
type GLUG struct {
	frontend   *Frontend
	decode     *DecodeDispatch
	completion *CompletionRing

	engines [3]Engine

	gluls []*glul.GLUL
	dram  *dram.DRAM
	host  HostMemory

	observer Observer
	// startCycle[i] is the cycle a completion-ring slot was allocated at,
	// indexed the same way the ring itself is — set at allocation time in
	// phaseFrontendDrain, read back in phaseEngineCompletions to turn a
	// completion into a submit-to-completion latency sample.
	startCycle []uint64

	cycle         uint64
	timeoutCycles uint64
}

// Config collects the queue sizes and GLUL set a GLUG is built with.
type Config struct {
	FrontendQueueSize int
	KernelQueueSize   int
	MemQueueSize      int
	CSRQueueSize      int
	CompletionRingCap int
	DRAMSize          uint32
	GLULConfigs       []common.GLULConfig
	TimeoutCycles     uint64
	Host              HostMemory
	// Observer receives per-operation metrics as phases complete. Nil means
	// no observation — GLUG substitutes a no-op rather than nil-checking it
	// on the hot path.
	Observer Observer
}

// New builds a GLUG from cfg, idle and ready for the first SubmitCommand.
func New(cfg Config) *GLUG {
	gluls := make([]*glul.GLUL, len(cfg.GLULConfigs))
	for i, gc := range cfg.GLULConfigs {
		gluls[i] = glul.New(gc)
	}

	observer := cfg.Observer
	if observer == nil {
		observer = noOpObserver{}
	}

	g := &GLUG{
		frontend:   NewFrontend(cfg.FrontendQueueSize),
		decode:     NewDecodeDispatch(cfg.KernelQueueSize, cfg.MemQueueSize, cfg.CSRQueueSize),
		completion: NewCompletionRing(cfg.CompletionRingCap),
		gluls:      gluls,
		dram:       dram.New(cfg.DRAMSize),
		host:       cfg.Host,
		observer:   observer,
		startCycle: make([]uint64, cfg.CompletionRingCap),

		timeoutCycles: cfg.TimeoutCycles,
	}
	g.engines[engineIdxKernel] = NewKernelEngine()
	g.engines[engineIdxMem] = NewMemEngine()
	g.engines[engineIdxCSR] = NewCSREngine()
	return g
}

// SubmitCommand latches cmd at the frontend. It returns false if the
// frontend is already occupied — the host must retry.
func (g *GLUG) SubmitCommand(cmd common.Command) bool {
	if g.frontend.Busy() {
		return false
	}
	g.frontend.SubmitCommand(cmd)
	return true
}

// PopCompletion returns the oldest ready completion event, in arrival order.
func (g *GLUG) PopCompletion() (common.Event, bool) {
	return g.completion.PopCompletion()
}

// Tick advances the whole pipeline by one cycle, in the fixed phase order:
// GLUL drain, engine completions, GLUL submissions, GLUL tick, MEM
// arbitration, DMA arbitration, engine tick, decode, frontend ingest,
// frontend drain/fence gating.
func (g *GLUG) Tick() error {
	g.cycle++
	if g.timeoutCycles != 0 && g.cycle > g.timeoutCycles {
		g.observer.ObserveTimeout()
		return common.NewSimErr(common.ErrTimeout, "cycle budget exhausted")
	}

	g.phaseGLULDrain()
	g.phaseEngineCompletions()
	g.phaseGLULSubmissions()
	g.phaseGLULTick()
	g.phaseMemArbitration()
	g.phaseDMAArbitration()
	g.phaseEngineTick()
	g.phaseDecode()
	g.phaseFrontendIngest()
	g.phaseFrontendDrain()
	return nil
}

func (g *GLUG) phaseGLULDrain() {
	for _, gl := range g.gluls {
		res, ok := gl.TryAcknowledgeDoneErr()
		if !ok {
			continue
		}
		eng := g.engines[res.EngineIdx]
		if res.Err != nil {
			eng.NotifyGLULErr(*res.Err)
			for _, other := range g.gluls {
				other.TryKill(res.EngineIdx)
			}
			continue
		}
		eng.NotifyGLULDone(res.NBlocks)
	}
}

func (g *GLUG) phaseEngineCompletions() {
	for engIdx, eng := range g.engines {
		event, idx, ok := eng.GetCompletion()
		if !ok {
			continue
		}
		g.completion.Set(idx, event)
		g.reportCompletion(engIdx, eng, event, idx)
	}
}

// reportCompletion turns one completed command into an Observer call,
// deriving submit-to-completion latency from the cycle its completion slot
// was allocated at. The per-engine-type data (blocks dispatched, MEM op
// kind and byte count) is only available from the concrete engine, so this
// type-asserts rather than widening the Engine interface for metrics alone.
func (g *GLUG) reportCompletion(engIdx int, eng Engine, event common.Event, idx int) {
	latency := g.cycle - g.startCycle[idx]
	success := event.Kind() == common.CompletionOK

	switch engIdx {
	case engineIdxKernel:
		var blocks uint32
		if ke, ok := eng.(*KernelEngine); ok {
			blocks = ke.LastGridBlocks()
		}
		g.observer.ObserveKernelLaunch(blocks, latency, success)
	case engineIdxMem:
		if me, ok := eng.(*MemEngine); ok {
			g.observer.ObserveMemOp(me.LastOp(), uint64(me.LastBytes()), latency)
		}
	case engineIdxCSR:
		g.observer.ObserveCSR(latency)
	}
}

func (g *GLUG) phaseGLULSubmissions() {
	for idx, eng := range g.engines {
		req, ok := eng.GetGLULReq()
		if !ok {
			continue
		}
		if req.GLULIdx < 0 || req.GLULIdx >= len(g.gluls) {
			continue
		}
		if g.gluls[req.GLULIdx].SubmitThreadBlock(idx, req.TB, req.N) {
			eng.ClearGLULReq()
		}
	}
}

func (g *GLUG) phaseGLULTick() {
	for _, gl := range g.gluls {
		gl.Tick()
	}
}

func (g *GLUG) phaseMemArbitration() {
	for _, eng := range g.engines {
		req, ok := eng.GetMemReq()
		if !ok {
			continue
		}
		if req.Fill {
			_ = g.dram.Fill(req.Addr, req.FillValue, req.Bytes)
			eng.SetMemResp(common.MemResp{})
		} else if req.Write {
			_ = g.dram.WriteAt(req.Data, req.Addr)
			eng.SetMemResp(common.MemResp{})
		} else {
			buf := bufpool.Get(req.Bytes)
			_ = g.dram.ReadAt(buf, req.Addr)
			resp := make([]byte, req.Bytes)
			copy(resp, buf)
			bufpool.Put(buf)
			eng.SetMemResp(common.MemResp{Data: resp})
		}
		return
	}
}

func (g *GLUG) phaseDMAArbitration() {
	for _, eng := range g.engines {
		req, ok := eng.GetDMAReq()
		if !ok {
			continue
		}
		if g.host != nil {
			switch req.Dir {
			case common.H2D:
				src, err := g.host.Bytes(req.SrcAddr, req.Sz)
				if err == nil {
					_ = g.dram.WriteAt(src, req.TargetAddr)
				}
			case common.D2H:
				buf := bufpool.Get(req.Sz)
				if g.dram.ReadAt(buf, req.SrcAddr) == nil {
					if dst, err := g.host.Bytes(req.TargetAddr, req.Sz); err == nil {
						copy(dst, buf)
					}
				}
				bufpool.Put(buf)
			}
			// DMA has no separate timing model of its own — it services
			// within the tick it is posted — so only the issuing command's
			// own submit-to-completion latency is meaningful here; this
			// call reports the transfer's direction and size alone.
			g.observer.ObserveDMA(req.Dir, uint64(req.Sz), 0)
		}
		eng.DoneDMAReq()
		return
	}
}

func (g *GLUG) phaseEngineTick() {
	statuses := make([]common.GLULStatus, len(g.gluls))
	for i, gl := range g.gluls {
		statuses[i] = gl.Status()
	}
	for _, eng := range g.engines {
		eng.SetGLULs(statuses)
		if eng.Busy() {
			_ = eng.Tick()
		}
	}
}

// phaseDecode pops at most one entry per per-type queue into a non-busy
// engine of matching type. It never touches the frontend — that is
// phaseFrontendDrain's job, one phase later in the cycle.
func (g *GLUG) phaseDecode() {
	for _, t := range []common.CmdType{common.CmdKernel, common.CmdMem, common.CmdCSR} {
		eng := g.engineFor(t)
		if eng.Busy() {
			continue
		}
		entry, ok := g.decode.Pop(t)
		if !ok {
			continue
		}
		eng.SetCmd(entry.Cmd, entry.CompletionIdx)
	}
}

func (g *GLUG) phaseFrontendIngest() {
	g.frontend.TryIngest()
}

// phaseFrontendDrain is the orchestrator's only writer into decode/dispatch
// and the only place a FENCE ever completes. A FENCE never occupies a
// decode/dispatch slot — there is no engine for it — so it releases by
// going straight to a set completion once the ring has drained.
func (g *GLUG) phaseFrontendDrain() {
	head, ok := g.frontend.PeekHead()
	if !ok {
		return
	}

	if head.Type() == common.CmdFence {
		if !g.completion.Empty() {
			return
		}
		for _, eng := range g.engines {
			if eng.Busy() {
				return
			}
		}
		idx, ok := g.completion.Allocate()
		if !ok {
			return
		}
		g.startCycle[idx] = g.cycle
		cmd, _ := g.frontend.PopHead()
		g.completion.Set(idx, common.EventFromOK(cmd.ID()))
		return
	}

	if !g.decode.CanEnqueue(head.Type()) {
		return
	}
	idx, ok := g.completion.Allocate()
	if !ok {
		return
	}
	g.startCycle[idx] = g.cycle
	cmd, _ := g.frontend.PopHead()
	entry := DecodeEntry{
		Cmd:           common.EngineCommand{ID: cmd.ID(), Payload: cmd.Payload()},
		CompletionIdx: idx,
	}
	g.decode.Enqueue(head.Type(), entry)
}

func (g *GLUG) engineFor(t common.CmdType) Engine {
	switch t {
	case common.CmdKernel:
		return g.engines[engineIdxKernel]
	case common.CmdMem:
		return g.engines[engineIdxMem]
	default:
		return g.engines[engineIdxCSR]
	}
}
