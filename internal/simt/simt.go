// Package simt is a minimal stand-in for the third-party SIMT execution
// engine a GLUL drives: a pool of cores, each holding warp slots, ticked
// one step per cycle and polled for per-warp retire/error events. The real
// execution engine is out of scope; this package exposes exactly the
// contract a GLUL needs to drive it and nothing more.
package simt

import "github.com/glugsim/gluon/internal/logging"

// Warp is one in-flight SIMT thread group spawned at a program counter.
type Warp struct {
	PC       uint32
	ThreadX  []uint32
	ThreadY  []uint32
	ThreadZ  []uint32
	retired  bool
	execErr  *ExecErr
	stepsLeft int
}

// ExecErr is the (pc, warp_id) pair a faulting warp reports.
type ExecErr struct {
	PC     uint32
	WarpID uint32
}

// Core owns a fixed number of warp slots and steps its resident warps one
// instruction each tick. The instruction stream itself is not modeled:
// spawned warps retire after a small fixed number of steps unless an
// injected fault overrides that.
type Core struct {
	numWarps int
	warps    []*Warp
}

// NewCore creates a core with the given warp-slot capacity.
func NewCore(numWarps int) *Core {
	return &Core{numWarps: numWarps}
}

// Spawn assigns a warp to a free slot. It panics if the core has no free
// slot, which is a scheduler invariant violation (the scheduler must never
// oversubscribe a core's warp capacity).
func (c *Core) Spawn(w *Warp) {
	if len(c.warps) >= c.numWarps {
		panic("simt: core oversubscribed beyond num_warps")
	}
	w.stepsLeft = defaultStepsToRetire
	c.warps = append(c.warps, w)
	logging.Named("muon").Debugf("simt: spawned warp pc=%#x (%d/%d slots resident)", w.PC, len(c.warps), c.numWarps)
}

// defaultStepsToRetire bounds how many ticks a warp with no injected fault
// takes to retire; the instruction stream itself is not modeled.
const defaultStepsToRetire = 1

// Step advances every non-retired resident warp one instruction. A warp
// that retires this step stays resident until PollRetired drains it.
func (c *Core) Step() {
	for _, w := range c.warps {
		if w.retired {
			continue
		}
		w.stepsLeft--
		if w.stepsLeft <= 0 {
			w.retired = true
		}
	}
}

// AllRetired reports whether the core holds no live, non-retired warps.
func (c *Core) AllRetired() bool {
	for _, w := range c.warps {
		if !w.retired {
			return false
		}
	}
	return true
}

// InjectFault marks warpID as faulting at pc on its next step, for test
// harnesses exercising the execution-error path.
func (c *Core) InjectFault(warpID int, pc uint32) {
	for i, w := range c.warps {
		if i == warpID {
			w.execErr = &ExecErr{PC: pc, WarpID: uint32(warpID)}
			w.stepsLeft = 1
			logging.Named("muon").Warn("simt: fault injected", "warp", warpID, "pc", pc)
		}
	}
}

// PollRetired drains and returns the set of warps that retired (with or
// without a fault) since the last poll.
func (c *Core) PollRetired() []*Warp {
	var out []*Warp
	remaining := c.warps[:0]
	for _, w := range c.warps {
		if w.retired {
			if w.execErr != nil {
				logging.Named("muon").Warn("simt: warp retired with fault", "pc", w.execErr.PC, "warp", w.execErr.WarpID)
			}
			out = append(out, w)
			continue
		}
		remaining = append(remaining, w)
	}
	c.warps = remaining
	return out
}

// Reset clears all resident warps, used when a GLUL is force-killed.
func (c *Core) Reset() {
	c.warps = nil
}

// ExecErr returns the fault a retired warp carries, or nil if it retired
// cleanly.
func (w *Warp) ExecErr() *ExecErr {
	return w.execErr
}
