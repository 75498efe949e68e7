package gluon

import (
	"errors"
	"fmt"

	"github.com/glugsim/gluon/internal/common"
)

// Error is a structured simulator error with enough context to tell a
// top-level timeout from a per-command execution fault or a boundary
// protocol violation.
type Error struct {
	Op     string    // operation that failed, e.g. "tick", "submit_command"
	Code   ErrorCode // high-level error category
	PC     uint32    // faulting program counter, set only for ErrCodeExecution
	WarpID uint32    // faulting warp id, set only for ErrCodeExecution
	Msg    string    // human-readable message
	Inner  error     // wrapped error, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Code == ErrCodeExecution {
		return fmt.Sprintf("gluon: %s (op=%s pc=%#x warp=%d)", msg, e.Op, e.PC, e.WarpID)
	}
	if e.Op != "" {
		return fmt.Sprintf("gluon: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("gluon: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is lets errors.Is match two *Error values purely by Code, the way
// callers actually care to compare simulator errors.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is the high-level category of an Error, mirroring the four
// kinds a host-facing caller must tell apart: a top-level timeout, a
// per-command execution fault, a boundary protocol violation, or an
// internal invariant violation.
type ErrorCode string

const (
	ErrCodeTimeout   ErrorCode = "cycle budget exhausted"
	ErrCodeExecution ErrorCode = "execution fault"
	ErrCodeProtocol  ErrorCode = "protocol violation"
	ErrCodeInvariant ErrorCode = "invariant violation"
)

// NewError builds a structured Error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewExecutionError builds an ErrCodeExecution Error carrying the faulting
// PC and warp id an Event reports. Execution errors never unwind Tick —
// they are delivered to the host as a completion Event, not returned here;
// this constructor exists for code paths (logging, metrics) that want the
// same structured shape for an ExecErr.
func NewExecutionError(op string, ee common.ExecErr) *Error {
	return &Error{
		Op:     op,
		Code:   ErrCodeExecution,
		PC:     ee.PC,
		WarpID: ee.WarpID,
		Msg:    "warp execution fault",
	}
}

// WrapError adapts a *common.SimErr (the core's tick-path error type) into
// an *Error, or passes any other error through unchanged as the Inner of a
// generic-op wrapper.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if existing, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: existing.Code, PC: existing.PC, WarpID: existing.WarpID, Msg: existing.Msg, Inner: existing.Inner}
	}
	if simErr, ok := inner.(*common.SimErr); ok {
		return &Error{Op: op, Code: simErrCode(simErr.Kind), Msg: simErr.Msg, Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeProtocol, Msg: inner.Error(), Inner: inner}
}

func simErrCode(kind common.ErrKind) ErrorCode {
	switch kind {
	case common.ErrTimeout:
		return ErrCodeTimeout
	case common.ErrInvariant:
		return ErrCodeInvariant
	default:
		return ErrCodeProtocol
	}
}

// IsCode reports whether err is (or wraps) an *Error of the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
