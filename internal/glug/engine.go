package glug

import (
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/simt"
)

// GLULReq is a pending ThreadBlocks submission an engine wants delivered to
// one GLUL.
type GLULReq struct {
	GLULIdx int
	TB      common.ThreadBlocks
	N       uint32
}

// Engine is the uniform contract every per-command-type state machine
// implements. All methods are single-threaded and called by the
// orchestrator in the fixed phase order of one tick.
type Engine interface {
	SetCmd(cmd common.EngineCommand, completionIdx int)
	Busy() bool
	CmdType() common.CmdType
	Tick() error

	GetDMAReq() (common.DMAReq, bool)
	DoneDMAReq()

	GetMemReq() (common.MemReq, bool)
	SetMemResp(resp common.MemResp)

	SetGLULs(statuses []common.GLULStatus)
	GetGLULReq() (GLULReq, bool)
	ClearGLULReq()
	NotifyGLULDone(n uint32)
	NotifyGLULErr(err simt.ExecErr)

	GetCompletion() (common.Event, int, bool)
}
