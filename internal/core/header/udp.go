package header

import (
	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/wire"
)

const (
	udpSrcPort  = 0
	udpDstPort  = 2
	udpLength   = 4
	udpChecksum = 6
)

// UDPLength is the fixed size of a UDP header.
const UDPLength = 8

// UDPHeader is a UDP header. The length field is derived from the bound
// pseudo header when the header is made.
type UDPHeader struct {
	srcPort uint16
	dstPort uint16
	length  uint16 // as parsed; Make recomputes it
	pseudo  *PseudoHeader
}

// NewUDPHeader returns an unbound UDP header.
func NewUDPHeader(srcPort, dstPort uint16) *UDPHeader {
	return &UDPHeader{srcPort: srcPort, dstPort: dstPort}
}

func (h *UDPHeader) SrcPort() uint16 { return h.srcPort }
func (h *UDPHeader) SetSrcPort(port uint16) { h.srcPort = port }
func (h *UDPHeader) DstPort() uint16 { return h.dstPort }
func (h *UDPHeader) SetDstPort(port uint16) { h.dstPort = port }

// DatagramLength returns the length field read by ParseUDP, or the length
// implied by the bound pseudo header.
func (h *UDPHeader) DatagramLength() uint16 {
	if h.pseudo != nil {
		return h.pseudo.Length
	}
	return h.length
}

// SetPseudoHeader binds the checksum pseudo header (protocol 17).
func (h *UDPHeader) SetPseudoHeader(src, dst [4]byte, payloadLen uint16) {
	h.pseudo = mustPseudoHeader(src, dst, core.ProtocolNumberUDP, UDPLength, payloadLen)
}

func (h *UDPHeader) Bound() bool { return h.pseudo != nil }
func (h *UDPHeader) ChecksumOffset() int { return udpChecksum }
func (h *UDPHeader) Proto() core.Protocol { return core.ProtocolUDP }
func (h *UDPHeader) Length() int { return UDPLength }
func (h *UDPHeader) MinLength() int { return UDPLength }

// Make encodes the header. A computed checksum of zero is sent as 0xffff,
// since zero means "no checksum" in UDP.
func (h *UDPHeader) Make() core.PacketData {
	if h.pseudo == nil {
		unboundPanic(core.ProtocolUDP, h.srcPort, h.dstPort)
	}
	ph := *h.pseudo
	h.pseudo = nil
	h.length = ph.Length

	b := make(core.PacketData, UDPLength)
	wire.PutUint16(b[udpSrcPort:], h.srcPort)
	wire.PutUint16(b[udpDstPort:], h.dstPort)
	wire.PutUint16(b[udpLength:], ph.Length)

	acc := ph.Accumulator()
	acc.AddBytes(b)
	sum := acc.Checksum()
	if sum == 0 {
		sum = 0xffff
	}
	wire.PutUint16(b[udpChecksum:], sum)
	return b
}

// ParseUDP reads the UDP header fields from raw without verifying the checksum.
func ParseUDP(raw []byte) (*UDPHeader, error) {
	if err := checkLength(core.ProtocolUDP, raw); err != nil {
		return nil, err
	}
	return &UDPHeader{
		srcPort: wire.Uint16(raw[udpSrcPort:]),
		dstPort: wire.Uint16(raw[udpDstPort:]),
		length:  wire.Uint16(raw[udpLength:]),
	}, nil
}
