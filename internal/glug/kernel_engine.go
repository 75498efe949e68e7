package glug

import (
	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/glul"
	"github.com/glugsim/gluon/internal/simt"
	"github.com/glugsim/gluon/internal/wire"
)

type kernelState int

const (
	kernelS0Idle kernelState = iota
	kernelS1H2D
	kernelS2ReadPayload
	kernelS3Scheduling
	kernelS4Success
	kernelS5Report
)

// KernelEngine drives one in-flight KERNEL command through S0..S5: latch the
// command, DMA the kernel image in, read its KernelPayload header, hand out
// thread blocks to idle GLULs in raster order until the grid is exhausted,
// then report a single completion.
type KernelEngine struct {
	state kernelState

	cmdID         uint8
	completionIdx int

	hostAddr uint32
	sz       uint32
	gpuAddr  uint32

	dmaPending  *common.DMAReq
	dmaInFlight bool

	memPending  *common.MemReq
	memInFlight bool

	payload  wire.KernelPayload
	grid     common.Dim3
	block    common.Dim3
	totalTB  uint64
	tbCtr    uint64
	tbDone   uint64

	glulStatuses    []common.GLULStatus
	pendingGLULReq  *GLULReq

	kernelErr *simt.ExecErr
}

// NewKernelEngine creates an idle KernelEngine.
func NewKernelEngine() *KernelEngine {
	return &KernelEngine{}
}

func (e *KernelEngine) CmdType() common.CmdType { return common.CmdKernel }

func (e *KernelEngine) Busy() bool { return e.state != kernelS0Idle }

func (e *KernelEngine) SetCmd(cmd common.EngineCommand, completionIdx int) {
	kc := common.ParseKernelCommand(cmd.Payload)
	e.cmdID = cmd.ID
	e.completionIdx = completionIdx
	e.hostAddr = kc.HostAddr
	e.sz = kc.Sz
	e.gpuAddr = kc.GPUAddr
	e.tbCtr = 0
	e.tbDone = 0
	e.totalTB = 0
	e.kernelErr = nil
	e.dmaPending = nil
	e.dmaInFlight = false
	e.memPending = nil
	e.memInFlight = false
	e.pendingGLULReq = nil
	e.state = kernelS1H2D
}

func (e *KernelEngine) Tick() error {
	switch e.state {
	case kernelS1H2D:
		e.tickH2D()
	case kernelS2ReadPayload:
		e.tickReadPayload()
	case kernelS3Scheduling:
		e.tickScheduling()
	case kernelS4Success:
		e.kernelErr = nil
		e.state = kernelS5Report
	}
	return nil
}

func (e *KernelEngine) tickH2D() {
	if e.dmaPending == nil && !e.dmaInFlight {
		e.dmaPending = &common.DMAReq{
			Dir:        common.H2D,
			SrcAddr:    e.hostAddr,
			TargetAddr: e.gpuAddr,
			Sz:         e.sz,
		}
	}
}

func (e *KernelEngine) tickReadPayload() {
	if e.memPending == nil && !e.memInFlight {
		e.memPending = &common.MemReq{
			Addr:  e.gpuAddr,
			Write: false,
			Bytes: wire.KernelPayloadHeaderSize,
		}
	}
}

func (e *KernelEngine) tickScheduling() {
	if e.pendingGLULReq != nil {
		return
	}
	if e.tbCtr >= e.totalTB {
		return
	}
	available := e.totalTB - e.tbCtr
	shape := glul.KernelShape{
		RegsPerThread:   uint32(e.payload.RegsPerThread),
		ShmemPerBlock:   e.payload.ShmemPerBlock,
		ThreadsPerBlock: e.block.X * e.block.Y * e.block.Z,
	}

	bestIdx := -1
	bestAdmissible := 0
	for i, st := range e.glulStatuses {
		if st.Busy() {
			continue
		}
		admissible := glul.AdmissibleBlocks(st.Config, shape)
		if admissible <= 0 {
			continue
		}
		if bestIdx == -1 || admissible < bestAdmissible {
			bestIdx = i
			bestAdmissible = admissible
		}
	}
	if bestIdx == -1 {
		return
	}

	n := uint64(bestAdmissible)
	if n > available {
		n = available
	}
	blocks := common.RasterRange(e.grid, e.tbCtr, uint32(n))
	e.tbCtr += n

	e.pendingGLULReq = &GLULReq{
		GLULIdx: bestIdx,
		N:       uint32(n),
		TB: common.ThreadBlocks{
			PC:        e.payload.KernelPC,
			BlockDim:  e.block,
			BlockIdxs: blocks,
			Regs:      uint32(e.payload.RegsPerThread),
			Shmem:     e.payload.ShmemPerBlock,
			BP:        e.payload.StackBaseAddr,
		},
	}
}

func (e *KernelEngine) GetDMAReq() (common.DMAReq, bool) {
	if e.dmaPending == nil {
		return common.DMAReq{}, false
	}
	req := *e.dmaPending
	e.dmaPending = nil
	e.dmaInFlight = true
	return req, true
}

func (e *KernelEngine) DoneDMAReq() {
	e.dmaInFlight = false
	if e.state == kernelS1H2D {
		e.state = kernelS2ReadPayload
	}
}

func (e *KernelEngine) GetMemReq() (common.MemReq, bool) {
	if e.memPending == nil {
		return common.MemReq{}, false
	}
	req := *e.memPending
	e.memPending = nil
	e.memInFlight = true
	return req, true
}

func (e *KernelEngine) SetMemResp(resp common.MemResp) {
	e.memInFlight = false
	if e.state != kernelS2ReadPayload {
		return
	}
	p, err := wire.UnmarshalKernelPayload(resp.Data)
	if err != nil {
		e.kernelErr = nil
		e.state = kernelS5Report
		return
	}
	e.payload = p
	e.grid = common.Dim3{X: p.Grid[0], Y: p.Grid[1], Z: p.Grid[2]}
	e.block = common.Dim3{X: p.Block[0], Y: p.Block[1], Z: p.Block[2]}
	e.totalTB = common.GridVolume(e.grid)
	e.state = kernelS3Scheduling
	if e.totalTB == 0 {
		e.state = kernelS4Success
	}
}

func (e *KernelEngine) SetGLULs(statuses []common.GLULStatus) {
	e.glulStatuses = statuses
}

func (e *KernelEngine) GetGLULReq() (GLULReq, bool) {
	if e.pendingGLULReq == nil {
		return GLULReq{}, false
	}
	return *e.pendingGLULReq, true
}

func (e *KernelEngine) ClearGLULReq() {
	e.pendingGLULReq = nil
}

func (e *KernelEngine) NotifyGLULDone(n uint32) {
	e.tbDone += uint64(n)
	if e.state == kernelS3Scheduling && e.tbDone >= e.totalTB {
		e.state = kernelS4Success
	}
}

func (e *KernelEngine) NotifyGLULErr(err simt.ExecErr) {
	ee := err
	e.kernelErr = &ee
	e.pendingGLULReq = nil
	e.state = kernelS5Report
}

// LastGridBlocks returns the thread-block count of the grid most recently
// reported complete. Valid to read right after GetCompletion, since it is
// only reset by the next SetCmd.
func (e *KernelEngine) LastGridBlocks() uint32 { return uint32(e.totalTB) }

func (e *KernelEngine) GetCompletion() (common.Event, int, bool) {
	if e.state != kernelS5Report {
		return common.Event{}, 0, false
	}
	var ev common.Event
	if e.kernelErr != nil {
		ev = common.EventFromExecErr(e.cmdID, common.ExecErr(*e.kernelErr))
	} else {
		ev = common.EventFromOK(e.cmdID)
	}
	idx := e.completionIdx
	e.state = kernelS0Idle
	e.kernelErr = nil
	return ev, idx, true
}
