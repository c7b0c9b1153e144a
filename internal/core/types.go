// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"strings"
)

// Protocol tags the codec that produced, or should parse, a buffer.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	ProtocolIPv4
	ProtocolTCP
	ProtocolUDP
)

// IANA protocol numbers carried in the IPv4 protocol field and the pseudo header.
const (
	ProtocolNumberIPv4 uint8 = 4
	ProtocolNumberTCP  uint8 = 6
	ProtocolNumberUDP  uint8 = 17
)

// Number returns the IANA protocol number, or 0 for unknown tags.
func (p Protocol) Number() uint8 {
	switch p {
	case ProtocolIPv4:
		return ProtocolNumberIPv4
	case ProtocolTCP:
		return ProtocolNumberTCP
	case ProtocolUDP:
		return ProtocolNumberUDP
	default:
		return 0
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolIPv4:
		return "ipv4"
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// ProtocolFromNumber maps an IANA protocol number back to its tag.
func ProtocolFromNumber(n uint8) Protocol {
	switch n {
	case ProtocolNumberIPv4:
		return ProtocolIPv4
	case ProtocolNumberTCP:
		return ProtocolTCP
	case ProtocolNumberUDP:
		return ProtocolUDP
	default:
		return ProtocolUnknown
	}
}

// ParseProtocol parses a protocol name such as "tcp" (case-insensitive).
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "ip":
		return ProtocolIPv4, nil
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	default:
		return ProtocolUnknown, fmt.Errorf("%w: %q", ErrUnsupportedProto, s)
	}
}
