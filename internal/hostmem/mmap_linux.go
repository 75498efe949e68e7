//go:build linux

package hostmem

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapFixedNoReplace is MAP_FIXED_NOREPLACE (Linux 4.17+): place the mapping
// at exactly the requested address, failing instead of clobbering an
// existing mapping there.
const mapFixedNoReplace = 0x100000

func mmapFixed(fd, size, prot int, addr uintptr) ([]byte, error) {
	r1, _, errno := syscall.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(size),
		uintptr(prot),
		uintptr(unix.MAP_SHARED|mapFixedNoReplace),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("mmap(fixed %#x): %w", addr, errno)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r1)), size), nil
}
