//go:build linux && amd64

package hostmem

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapBits32 is MAP_32BIT: confine the kernel-chosen address to the low 32
// bits, so it can be reinterpreted as a u32 pointer by the core without a
// fixed-address reservation.
const mapBits32 = 0x40

func mmap32Bit(fd, size, prot int) ([]byte, error) {
	r1, _, errno := syscall.Syscall6(
		unix.SYS_MMAP,
		0,
		uintptr(size),
		uintptr(prot),
		uintptr(unix.MAP_SHARED|mapBits32),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("mmap(MAP_32BIT): %w", errno)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r1)), size), nil
}
