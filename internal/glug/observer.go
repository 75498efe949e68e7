package glug

import "github.com/glugsim/gluon/internal/common"

// Observer receives per-operation metrics as GLUG's phases complete a
// command. Implementations must not block the tick path. The method set
// mirrors gluon.Observer exactly so a *gluon.Metrics-backed observer built
// at the top level assigns straight into Config.Observer.
type Observer interface {
	ObserveKernelLaunch(blocks uint32, latencyCycles uint64, success bool)
	ObserveDMA(dir common.DMADir, bytes uint64, latencyCycles uint64)
	ObserveMemOp(op common.MemOp, bytes uint64, latencyCycles uint64)
	ObserveCSR(latencyCycles uint64)
	ObserveTimeout()
	ObserveQueueDepth(depth uint32)
}

// noOpObserver discards every observation; it is GLUG's default so Config
// never needs a nil check on the hot path.
type noOpObserver struct{}

func (noOpObserver) ObserveKernelLaunch(uint32, uint64, bool)  {}
func (noOpObserver) ObserveDMA(common.DMADir, uint64, uint64)  {}
func (noOpObserver) ObserveMemOp(common.MemOp, uint64, uint64) {}
func (noOpObserver) ObserveCSR(uint64)                         {}
func (noOpObserver) ObserveTimeout()                           {}
func (noOpObserver) ObserveQueueDepth(uint32)                  {}

var _ Observer = noOpObserver{}
