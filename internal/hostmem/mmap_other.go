//go:build !linux

package hostmem

import "fmt"

// mmapFixed and mmap32Bit are Linux-specific fixed-placement strategies;
// elsewhere Map falls straight through to an any-address mapping.
func mmapFixed(fd, size, prot int, addr uintptr) ([]byte, error) {
	return nil, fmt.Errorf("hostmem: fixed-address mmap unsupported on this platform")
}

func mmap32Bit(fd, size, prot int) ([]byte, error) {
	return nil, fmt.Errorf("hostmem: MAP_32BIT unsupported on this platform")
}
