package hostmem

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// RecvFD reads one SCM_RIGHTS control message carrying a single file
// descriptor from conn, alongside the accompanying data payload (the
// little-endian u64 shared-memory base address on first connect). It
// returns a protocol error if no ancillary fd is present.
func RecvFD(conn *net.UnixConn) (data []byte, fd int, err error) {
	oob := make([]byte, unix.CmsgSpace(4))
	buf := make([]byte, 8)

	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, -1, fmt.Errorf("hostmem: read handoff message: %w", err)
	}

	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, -1, fmt.Errorf("hostmem: parse control message: %w", err)
	}
	if len(msgs) == 0 {
		return nil, -1, fmt.Errorf("hostmem: missing ancillary file descriptor")
	}

	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil {
		return nil, -1, fmt.Errorf("hostmem: parse rights: %w", err)
	}
	if len(fds) != 1 {
		return nil, -1, fmt.Errorf("hostmem: expected exactly one ancillary fd, got %d", len(fds))
	}

	return buf[:n], fds[0], nil
}
