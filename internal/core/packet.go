// Package core defines core data structures with zero external dependencies.
package core

import "time"

// PacketData is one fully encoded header, ready to be prefixed to its payload.
type PacketData []byte

// RawPacket is a raw IP datagram read back from a capture file.
type RawPacket struct {
	Data       []byte    // Raw datagram, starting at the IP header
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Actual captured length
	OrigLen    uint32    // Original datagram length
}
