package glug

import "github.com/glugsim/gluon/internal/common"

// DecodeEntry pairs a decoded engine command with the completion ring index
// reserved for it at frontend-release time.
type DecodeEntry struct {
	Cmd           common.EngineCommand
	CompletionIdx int
}

// DecodeDispatch holds the three per-type bounded FIFOs (KERNEL, MEM, CSR)
// between frontend release and engine pickup.
type DecodeDispatch struct {
	kq *common.BoundedQueue[DecodeEntry]
	mq *common.BoundedQueue[DecodeEntry]
	cq *common.BoundedQueue[DecodeEntry]
}

// NewDecodeDispatch creates the three queues at the given capacities.
func NewDecodeDispatch(kqSize, mqSize, cqSize int) *DecodeDispatch {
	return &DecodeDispatch{
		kq: common.NewBoundedQueue[DecodeEntry](kqSize),
		mq: common.NewBoundedQueue[DecodeEntry](mqSize),
		cq: common.NewBoundedQueue[DecodeEntry](cqSize),
	}
}

func (d *DecodeDispatch) queueFor(t common.CmdType) *common.BoundedQueue[DecodeEntry] {
	switch t {
	case common.CmdKernel:
		return d.kq
	case common.CmdMem:
		return d.mq
	case common.CmdCSR:
		return d.cq
	default:
		return nil
	}
}

// CanEnqueue reports whether the per-type queue for t has room. FENCE is
// never enqueued here; callers must not ask for it.
func (d *DecodeDispatch) CanEnqueue(t common.CmdType) bool {
	q := d.queueFor(t)
	return q != nil && !q.Full()
}

// Enqueue pushes entry onto the per-type queue matching t.
func (d *DecodeDispatch) Enqueue(t common.CmdType, entry DecodeEntry) bool {
	q := d.queueFor(t)
	if q == nil {
		return false
	}
	return q.Push(entry)
}

// Pop removes and returns the head entry of the per-type queue matching t.
func (d *DecodeDispatch) Pop(t common.CmdType) (DecodeEntry, bool) {
	q := d.queueFor(t)
	if q == nil {
		return DecodeEntry{}, false
	}
	return q.Pop()
}
