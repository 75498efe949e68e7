// Package hostmem maps the memfd-backed shared memory region handed over by
// the host transport and translates (offset, length) pairs into live
// in-process addresses for DMA servicing.
package hostmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/glugsim/gluon/internal/logging"
)

// preferredBases are fixed addresses tried in order before falling back to
// a kernel-chosen mapping, mirroring the host-side base the out-of-band
// protocol communicates so host and device addresses agree without needing
// runtime translation on the hot path beyond the region's own base.
var preferredBases = []uintptr{0x1000_0000, 0x2000_0000, 0x3000_0000, 0x4000_0000}

// Region is a mapped shared-memory region backed by a host-provided memfd.
type Region struct {
	fd   int
	data []byte
	base uintptr
}

// Map maps fd (a memfd, already received over SCM_RIGHTS) read/write/shared.
// It first tries a fixed, non-clobbering placement at each of preferredBases,
// then (on x86_64) a low-32-bit mapping, and finally any kernel-chosen
// address. The region size is taken from the fd's file size; a zero-length
// fd is rejected.
func Map(fd int) (*Region, error) {
	size, err := fileSize(fd)
	if err != nil {
		return nil, fmt.Errorf("hostmem: stat fd: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("hostmem: shared memory fd has zero length")
	}

	data, err := mapRegion(fd, size)
	if err != nil {
		return nil, err
	}
	return &Region{fd: fd, data: data, base: uintptr(unsafe.Pointer(&data[0]))}, nil
}

func fileSize(fd int) (int, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return 0, err
	}
	return int(stat.Size), nil
}

func mapRegion(fd int, size int) ([]byte, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE

	for _, base := range preferredBases {
		data, err := mmapFixed(fd, size, prot, base)
		if err == nil {
			return data, nil
		}
		logging.Named("gluon").Debugf("hostmem: fixed mapping at %#x failed: %v", base, err)
	}

	if data, err := mmap32Bit(fd, size, prot); err == nil {
		return data, nil
	}

	data, err := unix.Mmap(fd, 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("hostmem: mmap: %w", err)
	}
	return data, nil
}

// Size returns the region's byte length.
func (r *Region) Size() uint32 {
	return uint32(len(r.data))
}

// Translate range-checks (offset, length) against the region and returns
// the corresponding in-process address as a u32, as the wire protocol
// requires: host-mapped addresses are reinterpreted as raw pointers for
// DMA, so the mapping must live in the low 32-bit address space.
func (r *Region) Translate(offset, length uint32) (uint32, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(r.data)) {
		return 0, fmt.Errorf("hostmem: range [%d, %d) exceeds region of size %d", offset, end, len(r.data))
	}
	ptr := r.base + uintptr(offset)
	if uint64(ptr) > 0xFFFFFFFF {
		return 0, fmt.Errorf("hostmem: mapped pointer %#x exceeds 32-bit range", ptr)
	}
	return uint32(ptr), nil
}

// Bytes resolves ptr — an absolute in-process address in the same
// convention Translate produces, not a region-relative offset — back to a
// slice of the mapped region. Every address that reaches DMA arbitration
// has already gone through Translate at the transport boundary, so this is
// the inverse of that call, not an independent indexing scheme.
func (r *Region) Bytes(ptr, length uint32) ([]byte, error) {
	if uintptr(ptr) < r.base {
		return nil, fmt.Errorf("hostmem: address %#x precedes region base %#x", ptr, r.base)
	}
	offset := uint64(ptr) - uint64(r.base)
	end := offset + uint64(length)
	if end > uint64(len(r.data)) {
		return nil, fmt.Errorf("hostmem: range [%d, %d) exceeds region of size %d", offset, end, len(r.data))
	}
	return r.data[offset:end], nil
}

// Unmap releases the mapping.
func (r *Region) Unmap() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
