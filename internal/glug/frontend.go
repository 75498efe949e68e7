package glug

import "github.com/glugsim/gluon/internal/common"

// Frontend is a single-latched "pending command" register plus the bounded
// FIFO the orchestrator drains into decode/dispatch. SubmitCommand overwrites
// the latch if one is already occupied; the host must check Busy before
// submitting.
type Frontend struct {
	fifo    *common.BoundedQueue[common.Command]
	pending *common.Command
}

// NewFrontend creates a Frontend whose FIFO has the given capacity.
func NewFrontend(capacity int) *Frontend {
	return &Frontend{fifo: common.NewBoundedQueue[common.Command](capacity)}
}

// SubmitCommand latches cmd, overwriting any command already latched.
func (f *Frontend) SubmitCommand(cmd common.Command) {
	c := cmd
	f.pending = &c
}

// Busy reports whether the latch is occupied — backpressure to the host.
func (f *Frontend) Busy() bool {
	return f.pending != nil
}

// TryIngest attempts to push the latched command into the FIFO, clearing
// the latch on success.
func (f *Frontend) TryIngest() bool {
	if f.pending == nil {
		return false
	}
	if f.fifo.Push(*f.pending) {
		f.pending = nil
		return true
	}
	return false
}

// PeekHead returns the FIFO head without removing it.
func (f *Frontend) PeekHead() (*common.Command, bool) {
	return f.fifo.Peek()
}

// PopHead removes and returns the FIFO head.
func (f *Frontend) PopHead() (common.Command, bool) {
	return f.fifo.Pop()
}
