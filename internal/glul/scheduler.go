package glul

import "github.com/glugsim/gluon/internal/common"

// KernelShape is the subset of a decoded kernel's shape the scheduler
// formula needs: the per-thread register footprint, the shared memory a
// block requires, and the number of threads in one block.
type KernelShape struct {
	RegsPerThread   uint32
	ShmemPerBlock   uint32
	ThreadsPerBlock uint32
}

// AdmissibleBlocks returns the number of thread blocks of shape that cfg can
// admit in one submission. A return value <= 0 excludes the GLUL from the
// current cycle's scheduling round.
func AdmissibleBlocks(cfg common.GLULConfig, shape KernelShape) int {
	warpsPerTB := warpsPerThreadBlock(shape.ThreadsPerBlock, cfg.NumLanes)
	coresPerTB := ceilDiv(warpsPerTB, cfg.NumWarps)
	if coresPerTB == 0 {
		return 0
	}

	coresLimit := int(cfg.NumCores) / int(coresPerTB)

	var regLimit int
	if shape.RegsPerThread == 0 {
		regLimit = int(^uint(0) >> 1) // unconstrained when the kernel needs no registers
	} else {
		regLimit = int(uint64(cfg.RegsPerCore) * uint64(cfg.NumCores) / (uint64(shape.RegsPerThread) * uint64(cfg.NumLanes)))
	}

	var shmemLimit int
	if shape.ShmemPerBlock == 0 {
		shmemLimit = int(^uint(0) >> 1)
	} else {
		shmemLimit = int(cfg.Shmem) / int(shape.ShmemPerBlock)
	}

	admissible := coresLimit
	if regLimit < admissible {
		admissible = regLimit
	}
	if shmemLimit < admissible {
		admissible = shmemLimit
	}
	return admissible
}

// warpsPerThreadBlock computes max(1, ceil(threadsPerBlock/numLanes)).
func warpsPerThreadBlock(threadsPerBlock, numLanes uint32) uint32 {
	w := ceilDiv(threadsPerBlock, numLanes)
	if w < 1 {
		return 1
	}
	return w
}

// coresPerThreadBlock computes ceil(warpsPerTB/numWarps), shared with the
// GLUL's spawn phase to lay out cores the same way the scheduler counted
// them.
func coresPerThreadBlock(warpsPerTB, numWarps uint32) uint32 {
	return ceilDiv(warpsPerTB, numWarps)
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
