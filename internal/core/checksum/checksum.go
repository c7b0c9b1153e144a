// Package checksum implements the Internet checksum (RFC 1071).
//
// Words are summed into a 32-bit accumulator, carries are folded back into the
// low 16 bits until none remain, and the result is complemented.
package checksum

import "firestige.xyz/pktcodec/internal/core/wire"

// Size is the size of an encoded checksum in bytes.
const Size = 2

// Accumulator is a running one's-complement sum. The zero value is ready to use.
type Accumulator struct {
	sum uint32
}

// AddUint16 adds one 16-bit word.
func (a *Accumulator) AddUint16(v uint16) {
	a.sum += uint32(v)
}

// AddAddr4 adds both halves of an IPv4 address.
func (a *Accumulator) AddAddr4(addr [4]byte) {
	a.sum += uint32(addr[0])<<8 | uint32(addr[1])
	a.sum += uint32(addr[2])<<8 | uint32(addr[3])
}

// AddBytes adds b as big-endian 16-bit words. An odd trailing byte is padded
// with a zero on the right.
func (a *Accumulator) AddBytes(b []byte) {
	l := len(b)
	if l&1 != 0 {
		l--
		a.sum += uint32(b[l]) << 8
	}
	for i := 0; i < l; i += 2 {
		a.sum += uint32(b[i])<<8 | uint32(b[i+1])
		// keep headroom for multi-kilobyte payloads
		if a.sum&0x80000000 != 0 {
			a.sum = uint32(Fold(a.sum))
		}
	}
}

// Sum returns the raw, unfolded accumulator value.
func (a *Accumulator) Sum() uint32 {
	return a.sum
}

// Checksum returns the finalized checksum.
func (a *Accumulator) Checksum() uint16 {
	return Finalize(a.sum)
}

// Bytes returns the finalized checksum in network byte order.
func (a *Accumulator) Bytes() [Size]byte {
	return wire.Split16(a.Checksum())
}

// Fold adds the overflow above bit 16 back into the low 16 bits until no
// overflow remains.
func Fold(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return uint16(sum)
}

// Finalize folds sum and returns its one's complement.
func Finalize(sum uint32) uint16 {
	return ^Fold(sum)
}

// Checksum computes the checksum of b starting from initial.
func Checksum(b []byte, initial uint32) uint16 {
	a := Accumulator{sum: uint32(Fold(initial))}
	a.AddBytes(b)
	return a.Checksum()
}

// Update extends an already finalized checksum over additional bytes. data
// must start on an even offset of the checksummed region.
func Update(old uint16, data []byte) uint16 {
	a := Accumulator{sum: uint32(^old)}
	a.AddBytes(data)
	return a.Checksum()
}

// Verify reports whether b, with its checksum field filled in, sums to zero
// residue when combined with initial.
func Verify(b []byte, initial uint32) bool {
	return Checksum(b, initial) == 0
}
