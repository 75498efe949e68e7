//go:build linux && !amd64

package hostmem

import "fmt"

// mmap32Bit (MAP_32BIT) is an x86_64-only flag; on other Linux
// architectures Map falls through to the fixed-base attempts and finally an
// any-address mapping.
func mmap32Bit(fd, size, prot int) ([]byte, error) {
	return nil, fmt.Errorf("hostmem: MAP_32BIT unsupported on this architecture")
}
