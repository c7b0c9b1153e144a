package header

import (
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/checksum"
	"firestige.xyz/pktcodec/internal/core/wire"
)

const (
	ipv4VersionIHL   = 0
	ipv4TOS          = 1
	ipv4TotalLength  = 2
	ipv4ID           = 4
	ipv4FlagsFragOff = 6
	ipv4TTL          = 8
	ipv4Protocol     = 9
	ipv4Checksum     = 10
	ipv4SrcAddr      = 12
	ipv4DstAddr      = 16
)

const (
	// IPv4MinLength is the size of an IPv4 header without options.
	IPv4MinLength = ipv4.HeaderLen

	// DefaultTTL is the TTL of a new IPv4Header.
	DefaultTTL = 64
)

// IPv4Header is an IPv4 header without options. Its checksum covers only the
// header itself, so no pseudo header is needed.
type IPv4Header struct {
	tos         uint8
	totalLength uint16
	id          uint16
	flags       ipv4.HeaderFlags
	ttl         uint8
	protocol    uint8
	srcAddr     [4]byte
	dstAddr     [4]byte
	ihl         int // header length in bytes as parsed
}

// NewIPv4Header returns a header carrying no payload yet.
func NewIPv4Header(src, dst [4]byte) *IPv4Header {
	return &IPv4Header{
		totalLength: IPv4MinLength,
		ttl:         DefaultTTL,
		srcAddr:     src,
		dstAddr:     dst,
		ihl:         IPv4MinLength,
	}
}

func (h *IPv4Header) TOS() uint8 { return h.tos }
func (h *IPv4Header) SetTOS(tos uint8) { h.tos = tos }
func (h *IPv4Header) TotalLength() uint16 { return h.totalLength }
func (h *IPv4Header) SetTotalLength(n uint16) { h.totalLength = n }
func (h *IPv4Header) ID() uint16 { return h.id }
func (h *IPv4Header) SetID(id uint16) { h.id = id }
func (h *IPv4Header) Flags() ipv4.HeaderFlags { return h.flags }
func (h *IPv4Header) TTL() uint8 { return h.ttl }
func (h *IPv4Header) SetTTL(ttl uint8) { h.ttl = ttl }
func (h *IPv4Header) Protocol() uint8 { return h.protocol }
func (h *IPv4Header) SetProtocol(p uint8) { h.protocol = p }
func (h *IPv4Header) Src() netip.Addr { return netip.AddrFrom4(h.srcAddr) }
func (h *IPv4Header) Dst() netip.Addr { return netip.AddrFrom4(h.dstAddr) }

// SetFlags sets the DF and MF bits. Fragment offsets are not supported.
func (h *IPv4Header) SetFlags(f ipv4.HeaderFlags) { h.flags = f & (ipv4.DontFragment | ipv4.MoreFragments) }

// HeaderLength returns the IHL in bytes. It differs from Length only for
// parsed headers that carried options.
func (h *IPv4Header) HeaderLength() int { return h.ihl }

func (h *IPv4Header) Proto() core.Protocol { return core.ProtocolIPv4 }
func (h *IPv4Header) Length() int { return IPv4MinLength }
func (h *IPv4Header) MinLength() int { return IPv4MinLength }

// Make encodes the header with IHL 5 and a fresh header checksum. Options of
// a parsed header are not re-encoded.
func (h *IPv4Header) Make() core.PacketData {
	b := make(core.PacketData, IPv4MinLength)
	b[ipv4VersionIHL] = ipv4.Version<<4 | IPv4MinLength/4
	b[ipv4TOS] = h.tos
	wire.PutUint16(b[ipv4TotalLength:], h.totalLength)
	wire.PutUint16(b[ipv4ID:], h.id)
	wire.PutUint16(b[ipv4FlagsFragOff:], uint16(h.flags)<<13)
	b[ipv4TTL] = h.ttl
	b[ipv4Protocol] = h.protocol
	copy(b[ipv4SrcAddr:], h.srcAddr[:])
	copy(b[ipv4DstAddr:], h.dstAddr[:])
	wire.PutUint16(b[ipv4Checksum:], checksum.Checksum(b, 0))
	return b
}

// ParseIPv4 reads the fixed IPv4 fields from raw. The header checksum is not
// verified and options are skipped.
func ParseIPv4(raw []byte) (*IPv4Header, error) {
	if err := checkLength(core.ProtocolIPv4, raw); err != nil {
		return nil, err
	}
	if v := raw[ipv4VersionIHL] >> 4; v != ipv4.Version {
		return nil, fmt.Errorf("%w: ip version %d", core.ErrUnsupportedProto, v)
	}
	ihl := int(raw[ipv4VersionIHL]&0x0f) * 4
	if ihl < IPv4MinLength {
		return nil, fmt.Errorf("%w: ihl %d bytes", core.ErrInvalidLength, ihl)
	}

	h := &IPv4Header{
		tos:         raw[ipv4TOS],
		totalLength: wire.Uint16(raw[ipv4TotalLength:]),
		id:          wire.Uint16(raw[ipv4ID:]),
		flags:       ipv4.HeaderFlags(wire.Uint16(raw[ipv4FlagsFragOff:]) >> 13),
		ttl:         raw[ipv4TTL],
		protocol:    raw[ipv4Protocol],
		ihl:         ihl,
	}
	copy(h.srcAddr[:], raw[ipv4SrcAddr:ipv4SrcAddr+4])
	copy(h.dstAddr[:], raw[ipv4DstAddr:ipv4DstAddr+4])
	return h, nil
}
