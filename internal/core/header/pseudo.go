package header

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/checksum"
)

// maxSegmentLen is the capacity of the 16-bit length field.
const maxSegmentLen = 0xffff

// PseudoHeader holds the network-layer fields folded into a transport
// checksum. It is never transmitted.
type PseudoHeader struct {
	SrcAddr  [4]byte
	DstAddr  [4]byte
	Protocol uint8
	Length   uint16 // transport header + payload
}

// NewPseudoHeader validates the segment length and returns the pseudo header.
func NewPseudoHeader(src, dst [4]byte, protocol uint8, headerLen int, payloadLen uint16) (PseudoHeader, error) {
	total := headerLen + int(payloadLen)
	if total > maxSegmentLen {
		return PseudoHeader{}, fmt.Errorf("%w: header %d + payload %d bytes", core.ErrSegmentTooLarge, headerLen, payloadLen)
	}
	return PseudoHeader{
		SrcAddr:  src,
		DstAddr:  dst,
		Protocol: protocol,
		Length:   uint16(total),
	}, nil
}

// mustPseudoHeader is NewPseudoHeader for the SetPseudoHeader methods, where
// an oversize segment is a programming error.
func mustPseudoHeader(src, dst [4]byte, protocol uint8, headerLen int, payloadLen uint16) *PseudoHeader {
	ph, err := NewPseudoHeader(src, dst, protocol, headerLen, payloadLen)
	if err != nil {
		panic(err)
	}
	return &ph
}

// Accumulator returns a checksum accumulator primed with the pseudo header.
// The zero byte preceding the protocol number contributes nothing.
func (p PseudoHeader) Accumulator() checksum.Accumulator {
	var acc checksum.Accumulator
	acc.AddAddr4(p.SrcAddr)
	acc.AddAddr4(p.DstAddr)
	acc.AddUint16(uint16(p.Protocol))
	acc.AddUint16(p.Length)
	return acc
}

func (p PseudoHeader) String() string {
	return fmt.Sprintf("%s -> %s proto=%d len=%d",
		netip.AddrFrom4(p.SrcAddr), netip.AddrFrom4(p.DstAddr), p.Protocol, p.Length)
}

// BindFromIPv4 binds a pseudo header to t using the addresses of ip.
func BindFromIPv4(t TransportHeader, ip *IPv4Header, payloadLen uint16) {
	t.SetPseudoHeader(ip.srcAddr, ip.dstAddr, payloadLen)
}

func unboundPanic(p core.Protocol, srcPort, dstPort uint16) {
	panic(fmt.Errorf("%w: %v %d -> %d, call SetPseudoHeader before Make", core.ErrPseudoHeaderUnbound, p, srcPort, dstPort))
}
