package glug

import (
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/simt"
)

// CSREngine is a stub: always idle, CmdType CSR, no DMA/MEM/GLUL traffic.
// Reserved for future use; any attempt to drive DMA/MEM/GLUL through it is a
// programming error and aborts the process.
type CSREngine struct{}

// NewCSREngine creates an always-idle CSREngine.
func NewCSREngine() *CSREngine {
	return &CSREngine{}
}

func (e *CSREngine) SetCmd(cmd common.EngineCommand, completionIdx int) {
	panic("glug: CSREngine.SetCmd invoked — CSR commands are not yet implemented")
}

func (e *CSREngine) Busy() bool             { return false }
func (e *CSREngine) CmdType() common.CmdType { return common.CmdCSR }
func (e *CSREngine) Tick() error             { return nil }

func (e *CSREngine) GetDMAReq() (common.DMAReq, bool) { return common.DMAReq{}, false }
func (e *CSREngine) DoneDMAReq() {
	panic("glug: CSREngine.DoneDMAReq invoked — CSREngine never posts a DMA request")
}

func (e *CSREngine) GetMemReq() (common.MemReq, bool) { return common.MemReq{}, false }
func (e *CSREngine) SetMemResp(resp common.MemResp) {
	panic("glug: CSREngine.SetMemResp invoked — CSREngine never posts a MEM request")
}

func (e *CSREngine) SetGLULs(statuses []common.GLULStatus) {}
func (e *CSREngine) GetGLULReq() (GLULReq, bool)           { return GLULReq{}, false }
func (e *CSREngine) ClearGLULReq() {
	panic("glug: CSREngine.ClearGLULReq invoked — CSREngine never submits to a GLUL")
}
func (e *CSREngine) NotifyGLULDone(n uint32) {
	panic("glug: CSREngine.NotifyGLULDone invoked — CSREngine never submits to a GLUL")
}
func (e *CSREngine) NotifyGLULErr(err simt.ExecErr) {
	panic("glug: CSREngine.NotifyGLULErr invoked — CSREngine never submits to a GLUL")
}

func (e *CSREngine) GetCompletion() (common.Event, int, bool) { return common.Event{}, 0, false }
