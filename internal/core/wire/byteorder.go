// Package wire converts unsigned integers to and from network byte order.
package wire

import "encoding/binary"

// Split16 returns the big-endian bytes of v.
func Split16(v uint16) [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b
}

// Join16 reassembles a big-endian pair produced by Split16.
func Join16(b [2]byte) uint16 {
	return binary.BigEndian.Uint16(b[:])
}

// Uint16 reads a big-endian uint16 from the first two bytes of b.
func Uint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// PutUint16 writes v into the first two bytes of b.
func PutUint16(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

// Uint32 reads a big-endian uint32 from the first four bytes of b.
func Uint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// PutUint32 writes v into the first four bytes of b.
func PutUint32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}
