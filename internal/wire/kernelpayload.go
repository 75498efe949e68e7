// Package wire marshals the fixed-layout records read from or written to
// DRAM and host-shared memory, by hand with encoding/binary rather than
// reflection, so the hot path never pays for struct-tag lookups.
package wire

import "encoding/binary"

// KernelPayloadHeaderSize is the fixed byte size of the KernelPayload header
// preceding params and binary in DRAM.
const KernelPayloadHeaderSize = 58

// KernelPayload is the record a KernelEngine reads from DRAM at a kernel
// command's gpu_addr. The header is followed immediately by ParamsSz bytes
// of params and BinarySz bytes of binary, neither of which this struct
// carries or this package reads.
type KernelPayload struct {
	StartPC         uint32
	KernelPC        uint32
	ParamsSz        uint32
	BinarySz        uint32
	StackBaseAddr   uint32
	TLSBaseAddr     uint32
	Grid            [3]uint32
	Block           [3]uint32
	PrintfHostAddr  uint32
	RegsPerThread   uint8
	ShmemPerBlock   uint32
	Flags           uint8
}

// ErrShortKernelPayload is returned by UnmarshalKernelPayload when the input
// is smaller than KernelPayloadHeaderSize.
var ErrShortKernelPayload = errShort{}

type errShort struct{}

func (errShort) Error() string { return "wire: short KernelPayload header" }

// MarshalKernelPayload encodes the header into exactly KernelPayloadHeaderSize
// bytes, little-endian.
func MarshalKernelPayload(p KernelPayload) []byte {
	buf := make([]byte, KernelPayloadHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], p.StartPC)
	binary.LittleEndian.PutUint32(buf[4:8], p.KernelPC)
	binary.LittleEndian.PutUint32(buf[8:12], p.ParamsSz)
	binary.LittleEndian.PutUint32(buf[12:16], p.BinarySz)
	binary.LittleEndian.PutUint32(buf[16:20], p.StackBaseAddr)
	binary.LittleEndian.PutUint32(buf[20:24], p.TLSBaseAddr)
	binary.LittleEndian.PutUint32(buf[24:28], p.Grid[0])
	binary.LittleEndian.PutUint32(buf[28:32], p.Grid[1])
	binary.LittleEndian.PutUint32(buf[32:36], p.Grid[2])
	binary.LittleEndian.PutUint32(buf[36:40], p.Block[0])
	binary.LittleEndian.PutUint32(buf[40:44], p.Block[1])
	binary.LittleEndian.PutUint32(buf[44:48], p.Block[2])
	binary.LittleEndian.PutUint32(buf[48:52], p.PrintfHostAddr)
	buf[52] = p.RegsPerThread
	binary.LittleEndian.PutUint32(buf[53:57], p.ShmemPerBlock)
	buf[57] = p.Flags
	return buf
}

// UnmarshalKernelPayload decodes the fixed header from data, which must be
// at least KernelPayloadHeaderSize bytes (params/binary, if present, follow
// and are ignored here).
func UnmarshalKernelPayload(data []byte) (KernelPayload, error) {
	var p KernelPayload
	if len(data) < KernelPayloadHeaderSize {
		return p, ErrShortKernelPayload
	}
	p.StartPC = binary.LittleEndian.Uint32(data[0:4])
	p.KernelPC = binary.LittleEndian.Uint32(data[4:8])
	p.ParamsSz = binary.LittleEndian.Uint32(data[8:12])
	p.BinarySz = binary.LittleEndian.Uint32(data[12:16])
	p.StackBaseAddr = binary.LittleEndian.Uint32(data[16:20])
	p.TLSBaseAddr = binary.LittleEndian.Uint32(data[20:24])
	p.Grid[0] = binary.LittleEndian.Uint32(data[24:28])
	p.Grid[1] = binary.LittleEndian.Uint32(data[28:32])
	p.Grid[2] = binary.LittleEndian.Uint32(data[32:36])
	p.Block[0] = binary.LittleEndian.Uint32(data[36:40])
	p.Block[1] = binary.LittleEndian.Uint32(data[40:44])
	p.Block[2] = binary.LittleEndian.Uint32(data[44:48])
	p.PrintfHostAddr = binary.LittleEndian.Uint32(data[48:52])
	p.RegsPerThread = data[52]
	p.ShmemPerBlock = binary.LittleEndian.Uint32(data[53:57])
	p.Flags = data[57]
	return p, nil
}
