package transport

import (
	"encoding/binary"
	"net"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/glug"
)

type fakeCore struct {
	submitted  []common.Command
	ticks      int
	tickErr    error
	events     []common.Event
	acceptOnce bool
}

func (c *fakeCore) SubmitCommand(cmd common.Command) bool {
	if c.acceptOnce && len(c.submitted) > 0 {
		return false
	}
	c.submitted = append(c.submitted, cmd)
	c.events = append(c.events, common.EventFromOK(cmd.ID()))
	return true
}

func (c *fakeCore) PopCompletion() (common.Event, bool) {
	if len(c.events) == 0 {
		return common.Event{}, false
	}
	ev := c.events[0]
	c.events = c.events[1:]
	return ev, true
}

func (c *fakeCore) Tick() error {
	c.ticks++
	return c.tickErr
}

func newMemfd(t *testing.T, size int) int {
	t.Helper()
	fd, err := unix.MemfdCreate("transport-test", 0)
	if err != nil {
		t.Fatalf("MemfdCreate: %v", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		t.Fatalf("Ftruncate: %v", err)
	}
	return fd
}

func sendHandoff(t *testing.T, conn *net.UnixConn, base uint64, fd int) {
	t.Helper()
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], base)
	oob := unix.UnixRights(fd)
	if _, _, err := conn.WriteMsgUnix(data[:], oob, nil); err != nil {
		t.Fatalf("WriteMsgUnix: %v", err)
	}
}

func dialPair(t *testing.T) (server, client *net.UnixConn) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gluon.sock")

	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		c, err := ln.AcceptUnix()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()

	cli, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("DialUnix: %v", err)
	}

	select {
	case srv := <-accepted:
		if srv == nil {
			t.Fatal("accept failed")
		}
		return srv, cli
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	return nil, nil
}

func TestServeHandshakeAndCommandRoundTrip(t *testing.T) {
	srv, cli := dialPair(t)
	defer cli.Close()

	fd := newMemfd(t, 4096)
	sendHandoff(t, cli, 0x1000_0000, fd)

	var cmd common.Command
	cmd[0] = byte(common.CmdMem)
	cmd[1] = 5
	go func() {
		cli.Write(cmd[:])
		cli.CloseWrite()
	}()

	core := &fakeCore{}
	res, err := Serve(srv, func(HostMemory) Core { return core })
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if res.Timeout {
		t.Fatal("did not expect a timeout")
	}
	if len(core.submitted) != 1 || core.submitted[0].ID() != 5 {
		t.Fatalf("submitted = %+v", core.submitted)
	}

	var evBuf [common.EventSize]byte
	if _, err := readFull(cli, evBuf[:]); err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev common.Event
	copy(ev[:], evBuf[:])
	if ev.CmdID() != 5 || ev.Kind() != common.CompletionOK {
		t.Fatalf("event = %+v", ev)
	}
}

func TestServeRewritesKernelHostAddress(t *testing.T) {
	srv, cli := dialPair(t)
	defer cli.Close()

	fd := newMemfd(t, 4096)
	sendHandoff(t, cli, 0, fd)

	var cmd common.Command
	cmd[0] = byte(common.CmdKernel)
	cmd[1] = 1
	binary.LittleEndian.PutUint32(cmd[2:6], 0x10)
	binary.LittleEndian.PutUint32(cmd[6:10], 0x100)
	go func() {
		cli.Write(cmd[:])
		cli.CloseWrite()
	}()

	core := &fakeCore{}
	if _, err := Serve(srv, func(HostMemory) Core { return core }); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(core.submitted) != 1 {
		t.Fatalf("submitted = %+v", core.submitted)
	}
	rewritten := binary.LittleEndian.Uint32(core.submitted[0][2:6])
	if rewritten == 0x10 {
		t.Fatal("expected host address to be translated, got the raw offset back")
	}
}

func TestServeReportsTimeout(t *testing.T) {
	srv, cli := dialPair(t)
	defer cli.Close()

	fd := newMemfd(t, 4096)
	sendHandoff(t, cli, 0, fd)

	core := &fakeCore{tickErr: common.NewSimErr(common.ErrTimeout, "budget exhausted")}
	res, err := Serve(srv, func(HostMemory) Core { return core })
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !res.Timeout {
		t.Fatal("expected a reported timeout")
	}
}

func TestServeRejectsOutOfRangeKernelAddress(t *testing.T) {
	srv, cli := dialPair(t)
	defer cli.Close()

	fd := newMemfd(t, 64)
	sendHandoff(t, cli, 0, fd)

	var cmd common.Command
	cmd[0] = byte(common.CmdKernel)
	binary.LittleEndian.PutUint32(cmd[2:6], 1000)
	binary.LittleEndian.PutUint32(cmd[6:10], 64)
	go func() {
		cli.Write(cmd[:])
		cli.Close()
	}()

	core := &fakeCore{}
	if _, err := Serve(srv, func(HostMemory) Core { return core }); err == nil {
		t.Fatal("expected an error for an out-of-range kernel host address")
	}
}

func memSetCmd(id uint8, dst, value, length uint32) common.Command {
	var cmd common.Command
	cmd[0] = byte(common.CmdMem)
	cmd[1] = id
	cmd[2] = byte(common.MemOpSet)
	binary.LittleEndian.PutUint32(cmd[3:7], dst)
	binary.LittleEndian.PutUint32(cmd[7:11], value)
	binary.LittleEndian.PutUint32(cmd[11:15], length)
	return cmd
}

func memCopyCmd(id uint8, src, dst, length uint32, h2d bool) common.Command {
	var cmd common.Command
	cmd[0] = byte(common.CmdMem)
	cmd[1] = id
	cmd[2] = byte(common.MemOpCopy)
	binary.LittleEndian.PutUint32(cmd[3:7], src)
	binary.LittleEndian.PutUint32(cmd[7:11], dst)
	binary.LittleEndian.PutUint32(cmd[11:15], length)
	if h2d {
		cmd[15] = 0x1
	}
	return cmd
}

// TestServeDMARoundTripThroughRealHostMemory drives a real *hostmem.Region
// and a real *glug.GLUG end to end: a MEM SET fills DRAM, then a MEM COPY
// D2H drains it into the shared region at a host-relative offset. This is
// the full path rewriteHostAddr and phaseDMAArbitration are meant to agree
// on — Translate's absolute pointer flowing into Region.Bytes unchanged —
// exercised with the real memfd mapping instead of a test double.
func TestServeDMARoundTripThroughRealHostMemory(t *testing.T) {
	srv, cli := dialPair(t)
	defer cli.Close()

	fd := newMemfd(t, 4096)
	sendHandoff(t, cli, 0, fd)

	const (
		dramAddr   = 0x1000
		hostOffset = 0x20
		length     = 64
		fillByte   = 0xAB
	)

	set := memSetCmd(1, dramAddr, fillByte, length)
	drain := memCopyCmd(2, dramAddr, hostOffset, length, false)

	go func() {
		cli.Write(set[:])
		cli.Write(drain[:])
		cli.CloseWrite()
	}()

	res, err := Serve(srv, func(host HostMemory) Core {
		return glug.New(glug.Config{
			FrontendQueueSize: 4,
			KernelQueueSize:   2,
			MemQueueSize:      2,
			CSRQueueSize:      2,
			CompletionRingCap: 4,
			DRAMSize:          8192,
			Host:              host,
		})
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if res.Timeout {
		t.Fatal("did not expect a timeout")
	}

	for _, wantID := range []uint8{1, 2} {
		var evBuf [common.EventSize]byte
		if _, err := readFull(cli, evBuf[:]); err != nil {
			t.Fatalf("read event: %v", err)
		}
		var ev common.Event
		copy(ev[:], evBuf[:])
		if ev.CmdID() != wantID || ev.Kind() != common.CompletionOK {
			t.Fatalf("event = %+v, want OK for cmd %d", ev, wantID)
		}
	}

	got := make([]byte, length)
	if _, err := unix.Pread(fd, got, hostOffset); err != nil {
		t.Fatalf("Pread: %v", err)
	}
	for i, b := range got {
		if b != fillByte {
			t.Fatalf("host region byte %d = %#x, want %#x — DMA wrote to the wrong address", i, b, fillByte)
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
