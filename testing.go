package gluon

import "sync"

// mockHostBase is the fake address MockHostMemory's offset 0 resolves to.
// Translate/Bytes reject any argument that isn't built from this base, the
// same way a real *hostmem.Region rejects a region-relative offset passed
// to Bytes — MockHostMemory stands in for the real absolute-pointer
// convention, not the bug it replaced.
const mockHostBase = 0x5000_0000

// MockHostMemory is an in-process stand-in for the mapped shared-memory
// region a real connection gets from the handshake (internal/hostmem),
// useful for exercising DMA/MEM paths in tests without a memfd and an
// actual mmap. It tracks call counts the way a test double for a real
// I/O dependency should.
type MockHostMemory struct {
	mu   sync.RWMutex
	data []byte

	bytesCalls int
	outOfRange int
}

// NewMockHostMemory allocates a zeroed region of the given size.
func NewMockHostMemory(size int) *MockHostMemory {
	return &MockHostMemory{data: make([]byte, size)}
}

// Translate mirrors hostmem.Region.Translate: it range-checks (offset,
// length) and returns the fake absolute pointer Bytes expects back.
func (m *MockHostMemory) Translate(offset, length uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return 0, NewError("Translate", ErrCodeProtocol, "host range out of bounds")
	}
	return mockHostBase + offset, nil
}

// Bytes implements HostMemory. ptr must be a value Translate returned —
// exactly hostmem.Region's contract — not a raw region-relative offset.
func (m *MockHostMemory) Bytes(ptr, length uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bytesCalls++

	if ptr < mockHostBase {
		m.outOfRange++
		return nil, NewError("Bytes", ErrCodeProtocol, "address precedes region base")
	}
	offset := ptr - mockHostBase
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		m.outOfRange++
		return nil, NewError("Bytes", ErrCodeProtocol, "host range out of bounds")
	}
	return m.data[offset : uint64(offset)+uint64(length)], nil
}

// Fill seeds the region's contents starting at a region-relative offset,
// for test setup.
func (m *MockHostMemory) Fill(offset uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[offset:], data)
}

// Snapshot copies out length bytes starting at a region-relative offset,
// for test assertions.
func (m *MockHostMemory) Snapshot(offset, length uint32) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out
}

// CallCounts returns how many times Bytes was called, and how many of
// those calls were rejected as out of range.
func (m *MockHostMemory) CallCounts() (bytesCalls, outOfRange int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytesCalls, m.outOfRange
}

var _ HostMemory = (*MockHostMemory)(nil)
