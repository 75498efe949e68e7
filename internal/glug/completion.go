// Package glug composes the frontend, decode/dispatch, completion ring, the
// three engines, and the GLULs into the orchestrator's fixed-phase tick.
package glug

import (
	"fmt"

	"github.com/glugsim/gluon/internal/common"
)

type completionSlot struct {
	event common.Event
	set   bool
	done  bool
}

// CompletionRing holds ordered slots of completion events with set-once
// semantics and in-order head-pop. Allocation returns a physical ring
// position that stays valid until that slot is popped: other slots popping
// ahead of it never relocates it, since only the head pointer advances.
type CompletionRing struct {
	slots []completionSlot
	head  int
	count int
}

// NewCompletionRing creates a ring with the given fixed capacity.
func NewCompletionRing(cap int) *CompletionRing {
	return &CompletionRing{slots: make([]completionSlot, cap)}
}

// Empty reports whether the ring holds no unpopped slots. Fence release is
// gated on this.
func (r *CompletionRing) Empty() bool {
	return r.count == 0
}

// Allocate reserves the tail slot and returns its index, or false if the
// ring is full.
func (r *CompletionRing) Allocate() (int, bool) {
	if r.count == len(r.slots) {
		return 0, false
	}
	idx := (r.head + r.count) % len(r.slots)
	r.slots[idx] = completionSlot{}
	r.count++
	return idx, true
}

// Set records event in the slot at idx and marks it done. Setting an
// already-set slot is an invariant violation and panics: the orchestrator
// must never call Set twice for one allocation.
func (r *CompletionRing) Set(idx int, event common.Event) {
	s := &r.slots[idx]
	if s.set {
		panic(fmt.Sprintf("glug: completion slot %d set twice", idx))
	}
	s.event = event
	s.set = true
	s.done = true
}

// PopCompletion pops the head slot iff its done flag is set; otherwise it
// returns false without mutating the ring.
func (r *CompletionRing) PopCompletion() (common.Event, bool) {
	if r.count == 0 {
		return common.Event{}, false
	}
	head := &r.slots[r.head]
	if !head.done {
		return common.Event{}, false
	}
	event := head.event
	r.head = (r.head + 1) % len(r.slots)
	r.count--
	return event, true
}
