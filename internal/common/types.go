package common

import "encoding/binary"

// CmdType is the command type tag in Command byte 0.
type CmdType uint8

const (
	CmdKernel CmdType = 0
	CmdMem    CmdType = 1
	CmdCSR    CmdType = 2
	CmdFence  CmdType = 3
)

func (t CmdType) String() string {
	switch t {
	case CmdKernel:
		return "KERNEL"
	case CmdMem:
		return "MEM"
	case CmdCSR:
		return "CSR"
	case CmdFence:
		return "FENCE"
	default:
		return "UNKNOWN"
	}
}

// CommandSize is the fixed wire size of a Command.
const CommandSize = 16

// Command is the raw 16-byte host-issued command: byte 0 is the type tag,
// byte 1 is the opaque command id, bytes 2..16 are the engine payload.
type Command [CommandSize]byte

// Type returns the command's type tag (byte 0).
func (c Command) Type() CmdType {
	return CmdType(c[0])
}

// ID returns the opaque 8-bit command id (byte 1), echoed in the completion.
func (c Command) ID() uint8 {
	return c[1]
}

// Payload returns the 14-byte engine-specific payload (bytes 2..16).
func (c Command) Payload() [14]byte {
	var p [14]byte
	copy(p[:], c[2:16])
	return p
}

// NewCommand builds a Command from a type, id, and payload. payload is
// truncated or zero-padded to 14 bytes.
func NewCommand(t CmdType, id uint8, payload []byte) Command {
	var c Command
	c[0] = byte(t)
	c[1] = id
	n := copy(c[2:16], payload)
	_ = n
	return c
}

// EngineCommand is the decoded engine-specific payload plus the command id,
// constructed by decode/dispatch and handed to an engine's SetCmd.
type EngineCommand struct {
	ID      uint8
	Payload [14]byte
}

// KernelCommand is the parsed KERNEL payload. HostAddr has already been
// translated into an in-process pointer value by the host-facing layer
// before the Command reaches decode/dispatch.
type KernelCommand struct {
	HostAddr uint32
	Sz       uint32
	GPUAddr  uint32
}

// ParseKernelCommand decodes a KernelCommand from an EngineCommand payload.
func ParseKernelCommand(p [14]byte) KernelCommand {
	return KernelCommand{
		HostAddr: binary.LittleEndian.Uint32(p[0:4]),
		Sz:       binary.LittleEndian.Uint32(p[4:8]),
		GPUAddr:  binary.LittleEndian.Uint32(p[8:12]),
	}
}

// MemOp is the MemCommand operation selector.
type MemOp uint8

const (
	MemOpCopy MemOp = 0
	MemOpSet  MemOp = 1
)

// MemCommand is the parsed MEM payload. For COPY, Src/Dst/Len/Flags are
// populated and Value is unused; for SET, Dst/Value/Len/Flags are populated
// and Src is unused.
type MemCommand struct {
	Op    MemOp
	Src   uint32
	Dst   uint32
	Len   uint32
	Value uint32
	Flags uint8
}

// Direction reports the DMA direction encoded in flags bit 0 of a COPY
// command: 1 means H2D, 0 means D2H.
func (m MemCommand) Direction() DMADir {
	if m.Flags&0x1 != 0 {
		return H2D
	}
	return D2H
}

// ParseMemCommand decodes a MemCommand from an EngineCommand payload.
func ParseMemCommand(p [14]byte) MemCommand {
	op := MemOp(p[0])
	body := p[1:]
	switch op {
	case MemOpSet:
		return MemCommand{
			Op:    MemOpSet,
			Dst:   binary.LittleEndian.Uint32(body[0:4]),
			Value: binary.LittleEndian.Uint32(body[4:8]),
			Len:   binary.LittleEndian.Uint32(body[8:12]),
			Flags: body[12],
		}
	default:
		return MemCommand{
			Op:    MemOpCopy,
			Src:   binary.LittleEndian.Uint32(body[0:4]),
			Dst:   binary.LittleEndian.Uint32(body[4:8]),
			Len:   binary.LittleEndian.Uint32(body[8:12]),
			Flags: body[12],
		}
	}
}

// ErrKind distinguishes the fatal error categories of spec.md §7 that are
// not execution errors (those are carried per-command as an Event, not as a
// SimErr).
type ErrKind int

const (
	// ErrTimeout is raised by the top-level clock when the cycle budget is
	// exhausted.
	ErrTimeout ErrKind = iota
	// ErrProtocol marks a malformed host command or shared-memory handoff:
	// fatal at the boundary, the connection is dropped.
	ErrProtocol
	// ErrInvariant marks an impossible internal state: a programmer error
	// that aborts the process.
	ErrInvariant
)

func (k ErrKind) String() string {
	switch k {
	case ErrTimeout:
		return "TIMEOUT"
	case ErrProtocol:
		return "PROTOCOL"
	case ErrInvariant:
		return "INVARIANT"
	default:
		return "UNKNOWN"
	}
}

// SimErr is the error type returned by the core's tick path. Only Timeout
// unwinds the tick loop under normal operation; Protocol and Invariant
// errors are either handled at the transport boundary or indicate a bug.
type SimErr struct {
	Kind ErrKind
	Msg  string
}

func (e *SimErr) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// NewSimErr builds a SimErr of the given kind.
func NewSimErr(kind ErrKind, msg string) *SimErr {
	return &SimErr{Kind: kind, Msg: msg}
}
