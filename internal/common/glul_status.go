package common

import "sync/atomic"

// GLULConfig is a GLUL's runtime configuration, carried across the
// scheduler/GLUL boundary independent of how it was loaded.
type GLULConfig struct {
	ID          uint32
	NumCores    uint32
	NumWarps    uint32
	NumLanes    uint32
	RegsPerCore uint32
	Shmem       uint32
}

// GLULStatus is the configuration plus shared busy flag the KernelEngine
// scheduler reads. The GLUL is the flag's sole writer; publishing it this
// way is a relation, not an ownership transfer.
type GLULStatus struct {
	Config GLULConfig
	busy   *atomic.Bool
}

// NewGLULStatus creates a status backed by a fresh busy flag for cfg.
func NewGLULStatus(cfg GLULConfig) GLULStatus {
	return GLULStatus{Config: cfg, busy: &atomic.Bool{}}
}

// Busy reports the GLUL's current busy flag.
func (s GLULStatus) Busy() bool {
	return s.busy.Load()
}

// BusyFlag returns the shared flag so a GLUL can bind its writer side to it.
func (s GLULStatus) BusyFlag() *atomic.Bool {
	return s.busy
}
