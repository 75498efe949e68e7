// Package transport implements the host wire protocol: a Unix-domain
// stream socket carrying the shared-memory handoff, then 16-byte Commands
// client->server and 16-byte Events server->client.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/hostmem"
	"github.com/glugsim/gluon/internal/logging"
)

// Core is the subset of GLUG a transport connection drives. Satisfied by
// *glug.GLUG.
type Core interface {
	SubmitCommand(cmd common.Command) bool
	PopCompletion() (common.Event, bool)
	Tick() error
}

// HostMemory is the mapped shared-memory region a Core's DMA arbitration
// reads from and writes into. Satisfied by *hostmem.Region; declared here
// (rather than imported) so a Core implementation can accept it without
// this package depending on the Core's package.
type HostMemory interface {
	Bytes(offset, length uint32) ([]byte, error)
}

// Result reports how a connection ended.
type Result struct {
	// Timeout is true if the core's cycle budget was exhausted. The caller
	// reports this to stderr and exits cleanly rather than treating it as
	// fatal.
	Timeout bool
}

// handshake reads the first-traffic base address and ancillary memfd, and
// maps the shared region.
func handshake(conn *net.UnixConn) (*hostmem.Region, error) {
	data, fd, err := hostmem.RecvFD(conn)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("transport: handoff payload is %d bytes, want 8", len(data))
	}
	base := binary.LittleEndian.Uint64(data[:8])
	logging.Named("gluon").Debugf("transport: handoff base=%#x fd=%d", base, fd)

	region, err := hostmem.Map(fd)
	if err != nil {
		return nil, fmt.Errorf("transport: map shared region: %w", err)
	}
	return region, nil
}

// rewriteHostAddr translates the host-mapped-region (offset, length) pair
// carried by a raw command into a live in-process address, in place. Every
// command whose payload names a host-memory location crosses this boundary
// already translated, matching the core's "the host_addr/host_ptr field is
// pre-translated" contract: a KERNEL command's host_addr (bytes 2..6, with
// its length at bytes 6..10), and a MEM COPY's host-side endpoint — Src for
// H2D, Dst for D2H, selected by the flags byte — with its length always at
// bytes 11..15. MEM SET never references host memory, and FENCE/CSR carry no
// address, so both pass through unchanged.
func rewriteHostAddr(raw *common.Command, region *hostmem.Region) error {
	switch raw.Type() {
	case common.CmdKernel:
		offset := binary.LittleEndian.Uint32(raw[2:6])
		length := binary.LittleEndian.Uint32(raw[6:10])
		ptr, err := region.Translate(offset, length)
		if err != nil {
			return fmt.Errorf("transport: translate kernel host range: %w", err)
		}
		binary.LittleEndian.PutUint32(raw[2:6], ptr)
		return nil

	case common.CmdMem:
		if common.MemOp(raw[2]) != common.MemOpCopy {
			return nil
		}
		length := binary.LittleEndian.Uint32(raw[11:15])
		flags := raw[15]
		field := raw[7:11] // D2H: Dst is the host endpoint
		if flags&0x1 != 0 {
			field = raw[3:7] // H2D: Src is the host endpoint
		}
		offset := binary.LittleEndian.Uint32(field)
		ptr, err := region.Translate(offset, length)
		if err != nil {
			return fmt.Errorf("transport: translate mem copy host range: %w", err)
		}
		binary.LittleEndian.PutUint32(field, ptr)
		return nil

	default:
		return nil
	}
}

func readCommand(r io.Reader, region *hostmem.Region) (common.Command, error) {
	var cmd common.Command
	if _, err := io.ReadFull(r, cmd[:]); err != nil {
		return cmd, err
	}
	if err := rewriteHostAddr(&cmd, region); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func writeEvent(w io.Writer, ev common.Event) error {
	_, err := w.Write(ev[:])
	return err
}

// readResult is sent from the reader goroutine to the serve loop.
type readResult struct {
	cmd common.Command
	err error
}

// Serve performs the handshake, then builds the Core via newCore (handed
// the mapped shared region for DMA) and drives the connection until EOF, a
// timeout, or a fatal error. It owns the connection's read side via a
// background goroutine so a blocked read never stalls the core's tick loop
// while completions are still outstanding.
func Serve(conn *net.UnixConn, newCore func(HostMemory) Core) (Result, error) {
	region, err := handshake(conn)
	if err != nil {
		return Result{}, err
	}
	defer region.Unmap()

	core := newCore(region)

	reads := make(chan readResult, 1)
	go func() {
		defer close(reads)
		for {
			cmd, err := readCommand(conn, region)
			reads <- readResult{cmd: cmd, err: err}
			if err != nil {
				return
			}
		}
	}()

	var (
		pending     *common.Command
		readsClosed bool
		submitted   uint64
		completed   uint64
	)

	for {
		if pending == nil && !readsClosed {
			select {
			case res, ok := <-reads:
				if !ok {
					readsClosed = true
				} else if res.err != nil {
					if res.err == io.EOF {
						readsClosed = true
					} else {
						return Result{}, fmt.Errorf("transport: read command: %w", res.err)
					}
				} else {
					cmd := res.cmd
					pending = &cmd
				}
			default:
			}
		}

		if pending != nil {
			if core.SubmitCommand(*pending) {
				submitted++
				pending = nil
			}
		}

		if err := core.Tick(); err != nil {
			if simErr, ok := err.(*common.SimErr); ok && simErr.Kind == common.ErrTimeout {
				return Result{Timeout: true}, nil
			}
			return Result{}, err
		}

		for {
			ev, ok := core.PopCompletion()
			if !ok {
				break
			}
			if err := writeEvent(conn, ev); err != nil {
				return Result{}, fmt.Errorf("transport: write completion: %w", err)
			}
			completed++
		}

		if readsClosed && pending == nil && completed >= submitted {
			return Result{}, nil
		}
	}
}

// Listen opens socketPath, removing a stale socket file left behind by a
// prior run, and returns the listener.
func Listen(socketPath string) (*net.UnixListener, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("transport: remove stale socket %s: %w", socketPath, err)
	}
	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve socket path: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", socketPath, err)
	}
	return ln, nil
}
