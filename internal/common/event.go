package common

import "encoding/binary"

// EventSize is the fixed wire size of a completion Event.
const EventSize = 16

// CompletionKind is the Event kind tag in byte 1.
type CompletionKind uint8

const (
	CompletionOK        CompletionKind = 0
	CompletionExecution CompletionKind = 1
)

// Event is the 16-byte completion record popped from the completion ring:
// byte 0 is the echoed command id, byte 1 is the completion kind. On
// CompletionExecution, bytes 2..6 carry the faulting pc and bytes 6..10 the
// warp id, both little-endian.
type Event [EventSize]byte

// CmdID returns the echoed command id (byte 0).
func (e Event) CmdID() uint8 {
	return e[0]
}

// Kind returns the completion kind (byte 1).
func (e Event) Kind() CompletionKind {
	return CompletionKind(e[1])
}

// FaultingPC returns the faulting pc for a CompletionExecution event.
func (e Event) FaultingPC() uint32 {
	return binary.LittleEndian.Uint32(e[2:6])
}

// WarpID returns the faulting warp id for a CompletionExecution event.
func (e Event) WarpID() uint32 {
	return binary.LittleEndian.Uint32(e[6:10])
}

// EventFromOK builds a successful completion Event for cmdID.
func EventFromOK(cmdID uint8) Event {
	var e Event
	e[0] = cmdID
	e[1] = byte(CompletionOK)
	return e
}

// ExecErr is the (pc, warp_id) pair the SIMT execution stand-in reports on
// an execution fault.
type ExecErr struct {
	PC     uint32
	WarpID uint32
}

// EventFromExecErr builds an EXECUTION-kind completion Event for cmdID.
func EventFromExecErr(cmdID uint8, ee ExecErr) Event {
	var e Event
	e[0] = cmdID
	e[1] = byte(CompletionExecution)
	binary.LittleEndian.PutUint32(e[2:6], ee.PC)
	binary.LittleEndian.PutUint32(e[6:10], ee.WarpID)
	return e
}
