// Package header builds and parses fixed-format protocol headers.
//
// Every header type implements Header. Transport headers additionally
// implement TransportHeader: their checksum covers a pseudo header taken from
// the encapsulating IPv4 header, which must be bound before Make is called.
package header

import (
	"fmt"

	"firestige.xyz/pktcodec/internal/core"
)

// Header is the codec contract shared by all header types.
type Header interface {
	// Make serializes the header. It is one-shot for transport headers: the
	// bound pseudo header is consumed, and calling Make without one panics.
	Make() core.PacketData

	// Proto returns the protocol tag of the header type.
	Proto() core.Protocol

	// Length returns the serialized length of this header in bytes.
	Length() int

	// MinLength returns the protocol-wide minimum header length. It does not
	// depend on the receiver's field values.
	MinLength() int
}

// TransportHeader is a header whose checksum depends on the network layer.
type TransportHeader interface {
	Header

	// SetPseudoHeader binds the network-layer fields used by the checksum.
	// It panics if payloadLen plus the header length exceeds 65535.
	SetPseudoHeader(src, dst [4]byte, payloadLen uint16)

	// Bound reports whether a pseudo header is bound.
	Bound() bool

	// ChecksumOffset is the offset of the checksum field within the header.
	ChecksumOffset() int
}

// Parse parses raw with the codec selected by p.
func Parse(p core.Protocol, raw []byte) (Header, error) {
	switch p {
	case core.ProtocolTCP:
		h, err := ParseTCP(raw)
		if err != nil {
			return nil, err
		}
		return h, nil
	case core.ProtocolUDP:
		h, err := ParseUDP(raw)
		if err != nil {
			return nil, err
		}
		return h, nil
	case core.ProtocolIPv4:
		h, err := ParseIPv4(raw)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedProto, p)
	}
}

// MinLength returns the minimum header length for p, or 0 if p is unknown.
func MinLength(p core.Protocol) int {
	switch p {
	case core.ProtocolTCP:
		return TCPMinLength
	case core.ProtocolUDP:
		return UDPLength
	case core.ProtocolIPv4:
		return IPv4MinLength
	default:
		return 0
	}
}

func checkLength(p core.Protocol, raw []byte) error {
	if n := MinLength(p); len(raw) < n {
		return fmt.Errorf("%w: %v needs %d bytes, got %d", core.ErrInvalidLength, p, n, len(raw))
	}
	return nil
}
