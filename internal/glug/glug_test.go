package glug

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/wire"
)

type fakeHost struct {
	buf []byte
}

func newFakeHost(size int) *fakeHost {
	return &fakeHost{buf: make([]byte, size)}
}

func (h *fakeHost) Bytes(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(h.buf)) {
		return nil, common.NewSimErr(common.ErrProtocol, "host range out of bounds")
	}
	return h.buf[offset:end], nil
}

func testConfig(host HostMemory) Config {
	return Config{
		FrontendQueueSize: 4,
		KernelQueueSize:   2,
		MemQueueSize:      2,
		CSRQueueSize:      2,
		CompletionRingCap: 4,
		DRAMSize:          4096,
		GLULConfigs: []common.GLULConfig{
			{NumCores: 4, NumWarps: 4, NumLanes: 32, RegsPerCore: 1 << 16, Shmem: 1 << 16},
		},
		Host: host,
	}
}

func runUntil(t *testing.T, g *GLUG, maxTicks int, want int) []common.Event {
	t.Helper()
	var events []common.Event
	for i := 0; i < maxTicks && len(events) < want; i++ {
		if err := g.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		for {
			ev, ok := g.PopCompletion()
			if !ok {
				break
			}
			events = append(events, ev)
		}
	}
	return events
}

func TestGLUGMemSetRoundTrip(t *testing.T) {
	g := New(testConfig(nil))
	p := setPayload(0, 0x11, 8)
	cmd := common.NewCommand(common.CmdMem, 42, p[:])
	if !g.SubmitCommand(cmd) {
		t.Fatal("SubmitCommand should succeed on an empty frontend")
	}

	events := runUntil(t, g, 20, 1)
	if len(events) != 1 || events[0].CmdID() != 42 || events[0].Kind() != common.CompletionOK {
		t.Fatalf("events = %+v", events)
	}
}

func TestGLUGFrontendBackpressure(t *testing.T) {
	g := New(testConfig(nil))
	cmd := common.NewCommand(common.CmdMem, 1, nil)
	if !g.SubmitCommand(cmd) {
		t.Fatal("first SubmitCommand should succeed")
	}
	if g.SubmitCommand(cmd) {
		t.Fatal("second SubmitCommand before a Tick should fail, frontend latch is occupied")
	}
}

func TestGLUGCompletionOrderAndFenceGating(t *testing.T) {
	g := New(testConfig(nil))

	memPayload := setPayload(0, 0x5, 4)

	if !g.SubmitCommand(common.NewCommand(common.CmdMem, 1, memPayload[:])) {
		t.Fatal("submit mem command")
	}
	if err := g.Tick(); err != nil {
		t.Fatal(err)
	}
	if !g.SubmitCommand(common.NewCommand(common.CmdFence, 2, nil)) {
		t.Fatal("submit fence command")
	}

	var events []common.Event
	for i := 0; i < 30 && len(events) < 2; i++ {
		if err := g.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		ev, ok := g.PopCompletion()
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	require.Len(t, events, 2, "expected exactly the mem command and the fence to retire")
	require.Equal(t, uint8(1), events[0].CmdID(), "mem command must retire before the fence")
	require.Equal(t, uint8(2), events[1].CmdID(), "fence must be the second completion")
	require.Equal(t, common.CompletionOK, events[1].Kind())
}

// TestGLUGCompletionOrderIsFIFORegardlessOfEngine submits a mix of MEM and
// KERNEL commands and checks that completions retire in submission order —
// the invariant phaseFrontendDrain's single-latch, in-order Allocate
// enforces regardless of which engine services which command.
func TestGLUGCompletionOrderIsFIFORegardlessOfEngine(t *testing.T) {
	host := newFakeHost(1 << 16)
	g := New(testConfig(host))

	payload := wire.MarshalKernelPayload(wire.KernelPayload{
		KernelPC: 0x40,
		Grid:     [3]uint32{2, 1, 1},
		Block:    [3]uint32{4, 1, 1},
	})
	copy(host.buf[0:], payload)
	first := kernelCmdPayload(0, uint32(len(payload)), 0x800)
	require.True(t, g.SubmitCommand(common.NewCommand(common.CmdKernel, 10, first[:])))
	require.NoError(t, g.Tick())

	second := setPayload(0x100, 0x2, 4)
	require.True(t, g.SubmitCommand(common.NewCommand(common.CmdMem, 11, second[:])))

	events := runUntil(t, g, 30, 2)
	require.Len(t, events, 2)
	require.Equal(t, uint8(10), events[0].CmdID())
	require.Equal(t, uint8(11), events[1].CmdID())
}

func TestGLUGKernelLaunchDispatchesAllBlocks(t *testing.T) {
	host := newFakeHost(1 << 16)
	cfg := testConfig(host)
	g := New(cfg)

	payload := wire.MarshalKernelPayload(wire.KernelPayload{
		KernelPC: 0x40,
		Grid:     [3]uint32{2, 1, 1},
		Block:    [3]uint32{4, 1, 1},
	})
	copy(host.buf[0:], payload)

	kp := kernelCmdPayload(0, uint32(len(payload)), 0x100)
	cmd := common.NewCommand(common.CmdKernel, 7, kp[:])

	if !g.SubmitCommand(cmd) {
		t.Fatal("submit kernel command")
	}

	events := runUntil(t, g, 60, 1)
	if len(events) != 1 {
		t.Fatalf("got %d completions, want 1: %+v", len(events), events)
	}
	if events[0].CmdID() != 7 || events[0].Kind() != common.CompletionOK {
		t.Fatalf("completion = %+v", events[0])
	}
}
