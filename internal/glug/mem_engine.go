package glug

import (
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/simt"
)

type memState int

const (
	memStateIdle memState = iota
	memStateCopyInFlight
	memStateCopyReport
	memStateSetInFlight
	memStateSetReport
)

// MemEngine drives one in-flight MEM command. COPY posts a DMAReq whose
// direction comes from the command's flags bit 0; SET posts a MemReq write
// of len bytes all holding value&0xFF. Either way exactly one completion is
// reported once the posted request finishes.
type MemEngine struct {
	state memState

	cmdID         uint8
	completionIdx int

	dmaPending  *common.DMAReq
	dmaInFlight bool

	memPending  *common.MemReq
	memInFlight bool

	lastOp  common.MemOp
	lastLen uint32
}

// NewMemEngine creates an idle MemEngine.
func NewMemEngine() *MemEngine {
	return &MemEngine{}
}

func (e *MemEngine) CmdType() common.CmdType { return common.CmdMem }

func (e *MemEngine) Busy() bool { return e.state != memStateIdle }

func (e *MemEngine) SetCmd(cmd common.EngineCommand, completionIdx int) {
	mc := common.ParseMemCommand(cmd.Payload)
	e.cmdID = cmd.ID
	e.completionIdx = completionIdx
	e.dmaPending = nil
	e.dmaInFlight = false
	e.memPending = nil
	e.memInFlight = false
	e.lastOp = mc.Op
	e.lastLen = mc.Len

	if mc.Op == common.MemOpSet {
		e.memPending = &common.MemReq{
			Addr:      mc.Dst,
			Write:     true,
			Bytes:     mc.Len,
			Fill:      true,
			FillValue: byte(mc.Value & 0xFF),
		}
		e.state = memStateSetInFlight
		return
	}

	dir := mc.Direction()
	src, dst := mc.Src, mc.Dst
	e.dmaPending = &common.DMAReq{Dir: dir, SrcAddr: src, TargetAddr: dst, Sz: mc.Len}
	e.state = memStateCopyInFlight
}

func (e *MemEngine) Tick() error { return nil }

func (e *MemEngine) GetDMAReq() (common.DMAReq, bool) {
	if e.dmaPending == nil {
		return common.DMAReq{}, false
	}
	req := *e.dmaPending
	e.dmaPending = nil
	e.dmaInFlight = true
	return req, true
}

func (e *MemEngine) DoneDMAReq() {
	e.dmaInFlight = false
	if e.state == memStateCopyInFlight {
		e.state = memStateCopyReport
	}
}

func (e *MemEngine) GetMemReq() (common.MemReq, bool) {
	if e.memPending == nil {
		return common.MemReq{}, false
	}
	req := *e.memPending
	e.memPending = nil
	e.memInFlight = true
	return req, true
}

func (e *MemEngine) SetMemResp(resp common.MemResp) {
	e.memInFlight = false
	if e.state == memStateSetInFlight {
		e.state = memStateSetReport
	}
}

func (e *MemEngine) SetGLULs(statuses []common.GLULStatus) {}
func (e *MemEngine) GetGLULReq() (GLULReq, bool)           { return GLULReq{}, false }
func (e *MemEngine) ClearGLULReq()                         {}
func (e *MemEngine) NotifyGLULDone(n uint32) {
	panic("glug: MemEngine.NotifyGLULDone invoked — MemEngine never submits to a GLUL")
}
func (e *MemEngine) NotifyGLULErr(err simt.ExecErr) {
	panic("glug: MemEngine.NotifyGLULErr invoked — MemEngine never submits to a GLUL")
}

// LastOp and LastBytes report the kind and size of the most recently
// reported command, valid to read right after GetCompletion since both are
// only overwritten by the next SetCmd.
func (e *MemEngine) LastOp() common.MemOp { return e.lastOp }
func (e *MemEngine) LastBytes() uint32    { return e.lastLen }

func (e *MemEngine) GetCompletion() (common.Event, int, bool) {
	if e.state != memStateCopyReport && e.state != memStateSetReport {
		return common.Event{}, 0, false
	}
	ev := common.EventFromOK(e.cmdID)
	idx := e.completionIdx
	e.state = memStateIdle
	return ev, idx, true
}
