package gluon

import "github.com/glugsim/gluon/internal/constants"

// Re-exported defaults, for callers that only need the public API.
const (
	DefaultCommandQueueSize  = constants.DefaultCommandQueueSize
	DefaultKernelQueueSize   = constants.DefaultKernelQueueSize
	DefaultMemQueueSize      = constants.DefaultMemQueueSize
	DefaultCSRQueueSize      = constants.DefaultCSRQueueSize
	DefaultEventQueueSize    = constants.DefaultEventQueueSize
	DefaultNumCores          = constants.DefaultNumCores
	DefaultNumWarps          = constants.DefaultNumWarps
	DefaultNumLanes          = constants.DefaultNumLanes
	DefaultRegsPerCore       = constants.DefaultRegsPerCore
	DefaultShmem             = constants.DefaultShmem
	DefaultDRAMSize          = constants.DefaultDRAMSize
	KernelPayloadHeaderSize  = constants.KernelPayloadHeaderSize
	CommandSize              = constants.CommandSize
	EventSize                = constants.EventSize
	EngineCommandPayloadSize = constants.EngineCommandPayloadSize
)
