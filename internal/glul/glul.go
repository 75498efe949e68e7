// Package glul implements the GLUL state machine: the thread-block
// scheduler's admissible-blocks formula (scheduler.go) and the SIMT
// execution-cluster state machine a KernelEngine submits batches to.
package glul

import (
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/simt"
)

type state int

const (
	stateIdle state = iota
	stateSpawn
	stateExecute
	stateDrain
)

type batch struct {
	engineIdx int
	tb        common.ThreadBlocks
	n         uint32
}

// Result is what TryAcknowledgeDoneErr reports about a finished batch: an OK
// with the number of blocks retired, or an execution error.
type Result struct {
	EngineIdx int
	NBlocks   uint32
	Err       *simt.ExecErr
}

// GLUL is one SIMT execution cluster: a fixed pool of cores ticked one step
// per cycle, driven through idle/spawn/execute/drain by one outstanding
// ThreadBlocks batch at a time.
type GLUL struct {
	cfg          common.GLULConfig
	status       common.GLULStatus
	cores        []*simt.Core
	interconnect simt.Interconnect

	state state

	pending *batch
	current *batch

	scheduled []bool

	lastResult *Result
}

// New creates a GLUL with the given configuration, idle and not busy.
func New(cfg common.GLULConfig) *GLUL {
	cores := make([]*simt.Core, cfg.NumCores)
	for i := range cores {
		cores[i] = simt.NewCore(int(cfg.NumWarps))
	}
	return &GLUL{
		cfg:       cfg,
		status:    common.NewGLULStatus(cfg),
		cores:     cores,
		scheduled: make([]bool, cfg.NumCores),
	}
}

// Status returns the GLUL's published configuration and busy flag, for the
// KernelEngine scheduler to read.
func (g *GLUL) Status() common.GLULStatus {
	return g.status
}

// SubmitThreadBlock latches a batch for the GLUL to pick up the next time it
// is idle. It returns false (an invariant violation at the caller) if the
// GLUL is currently busy — the scheduler must never target a busy GLUL.
func (g *GLUL) SubmitThreadBlock(engineIdx int, tb common.ThreadBlocks, n uint32) bool {
	if g.status.Busy() {
		return false
	}
	g.pending = &batch{engineIdx: engineIdx, tb: tb, n: n}
	return true
}

// Tick advances the GLUL one step through idle/spawn/execute/drain.
func (g *GLUL) Tick() {
	switch g.state {
	case stateIdle:
		g.tickIdle()
	case stateSpawn:
		g.tickSpawn()
	case stateExecute:
		g.tickExecute()
	case stateDrain:
		g.tickDrain()
	}
}

func (g *GLUL) tickIdle() {
	if g.pending == nil {
		return
	}
	g.current = g.pending
	g.pending = nil
	g.status.BusyFlag().Store(true)
	for _, c := range g.cores {
		c.Reset()
	}
	g.interconnect = simt.Interconnect{}
	for i := range g.scheduled {
		g.scheduled[i] = false
	}
	g.state = stateSpawn
}

func (g *GLUL) tickSpawn() {
	b := g.current
	threadsPerBlock := b.tb.BlockDim.X * b.tb.BlockDim.Y * b.tb.BlockDim.Z
	warpsPerTB := warpsPerThreadBlock(threadsPerBlock, g.cfg.NumLanes)
	coresPerTB := coresPerThreadBlock(warpsPerTB, g.cfg.NumWarps)
	if coresPerTB == 0 {
		coresPerTB = 1
	}
	warpsPerCore := ceilDiv(warpsPerTB, coresPerTB)

	for blockPos := range b.tb.BlockIdxs {
		coreStart := uint32(blockPos) * coresPerTB
		for c := uint32(0); c < coresPerTB; c++ {
			coreIdx := coreStart + c
			if coreIdx >= g.cfg.NumCores {
				break
			}
			g.scheduled[coreIdx] = true
			warpStart := c * warpsPerCore
			warpEnd := warpStart + warpsPerCore
			if warpEnd > warpsPerTB {
				warpEnd = warpsPerTB
			}
			for w := warpStart; w < warpEnd; w++ {
				laneStart := w * g.cfg.NumLanes
				laneEnd := laneStart + g.cfg.NumLanes
				if laneEnd > threadsPerBlock {
					laneEnd = threadsPerBlock
				}
				g.cores[coreIdx].Spawn(warpFromLaneRange(b.tb.PC, b.tb.BlockDim, laneStart, laneEnd))
			}
		}
	}
	g.state = stateExecute
}

func warpFromLaneRange(pc uint32, blockDim common.Dim3, start, end uint32) *simt.Warp {
	w := &simt.Warp{PC: pc}
	for i := start; i < end; i++ {
		idx := common.RasterIndex(blockDim, uint64(i))
		w.ThreadX = append(w.ThreadX, idx.X)
		w.ThreadY = append(w.ThreadY, idx.Y)
		w.ThreadZ = append(w.ThreadZ, idx.Z)
	}
	return w
}

func (g *GLUL) tickExecute() {
	var fault *simt.ExecErr
	for i, c := range g.cores {
		if !g.scheduled[i] {
			continue
		}
		c.Step()
		for _, w := range c.PollRetired() {
			if fault == nil {
				fault = execErrFromWarp(w)
			}
		}
	}
	g.interconnect.Tick()

	if fault != nil {
		g.lastResult = &Result{EngineIdx: g.current.engineIdx, Err: fault}
		g.state = stateDrain
		return
	}

	allRetired := true
	for i, c := range g.cores {
		if !g.scheduled[i] {
			continue
		}
		if !c.AllRetired() {
			allRetired = false
			break
		}
	}
	if allRetired {
		g.lastResult = &Result{EngineIdx: g.current.engineIdx, NBlocks: uint32(len(g.current.tb.BlockIdxs))}
		g.state = stateDrain
	}
}

func execErrFromWarp(w *simt.Warp) *simt.ExecErr {
	// simt.Warp keeps its execErr unexported; Core.PollRetired only returns
	// warps that have already retired, faulted or not, so callers that need
	// the fault detail go through Core.InjectFault's effect surfaced here.
	return w.ExecErr()
}

func (g *GLUL) tickDrain() {
	for i := range g.scheduled {
		g.scheduled[i] = false
	}
	g.current = nil
	g.status.BusyFlag().Store(false)
	g.state = stateIdle
}

// TryAcknowledgeDoneErr returns, once and only once per batch lifetime, the
// result of the most recently finished batch. The result becomes visible
// only once the drain step has cleared busy and returned the GLUL to idle.
func (g *GLUL) TryAcknowledgeDoneErr() (Result, bool) {
	if g.lastResult == nil || g.state == stateDrain {
		return Result{}, false
	}
	r := *g.lastResult
	g.lastResult = nil
	return r, true
}

// TryKill forces the GLUL back to idle if its current (or about-to-start)
// batch belongs to engineIdx, so no further completion accrues to an engine
// that has already reported an error.
func (g *GLUL) TryKill(engineIdx int) {
	killed := false
	if g.current != nil && g.current.engineIdx == engineIdx {
		g.current = nil
		killed = true
	}
	if g.pending != nil && g.pending.engineIdx == engineIdx {
		g.pending = nil
		killed = true
	}
	if !killed {
		return
	}
	for _, c := range g.cores {
		c.Reset()
	}
	for i := range g.scheduled {
		g.scheduled[i] = false
	}
	g.lastResult = nil
	g.status.BusyFlag().Store(false)
	g.state = stateIdle
}
