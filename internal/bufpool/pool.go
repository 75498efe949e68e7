// Package bufpool provides pooled byte slices for DMA transfer staging, so
// repeated H2D/D2H copies on the tick path don't allocate a fresh buffer
// every cycle.
package bufpool

import "sync"

// Size-bucketed pools, powers of 2 from 64 KiB to 4 MiB. The orchestrator
// stages every MEM read and every D2H DMA through Get/Put whatever its
// size; H2D copies go straight from the host region into DRAM and never
// use these pools.
const (
	size64k  = 64 * 1024
	size256k = 256 * 1024
	size1m   = 1024 * 1024
	size4m   = 4 * 1024 * 1024
)

var global = struct {
	pool64k  sync.Pool
	pool256k sync.Pool
	pool1m   sync.Pool
	pool4m   sync.Pool
}{
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
	pool4m:   sync.Pool{New: func() any { b := make([]byte, size4m); return &b }},
}

// Get returns a pooled buffer of at least size bytes. Call Put when done.
func Get(size uint32) []byte {
	switch {
	case size <= size64k:
		return (*global.pool64k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*global.pool256k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*global.pool1m.Get().(*[]byte))[:size]
	case size <= size4m:
		return (*global.pool4m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer obtained from Get back to its pool. Buffers not
// obtained from Get (non-standard capacity) are simply dropped.
func Put(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size64k:
		global.pool64k.Put(&buf)
	case size256k:
		global.pool256k.Put(&buf)
	case size1m:
		global.pool1m.Put(&buf)
	case size4m:
		global.pool4m.Put(&buf)
	}
}
