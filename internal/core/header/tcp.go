package header

import (
	"fmt"
	"strings"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/wire"
)

// Field offsets within the TCP header.
const (
	tcpSrcPort    = 0
	tcpDstPort    = 2
	tcpSeqNum     = 4
	tcpAckNum     = 8
	tcpDataOffset = 12
	tcpFlags      = 13
	tcpWindow     = 14
	tcpChecksum   = 16
	tcpUrgentPtr  = 18
)

const (
	// TCPMinLength is the size of a TCP header without options.
	TCPMinLength = 20

	// DefaultWindow is the window size of a new TCPHeader.
	DefaultWindow = 0xffff
)

// TCPFlag is one control bit of the TCP flag byte.
type TCPFlag uint8

const (
	TCPFlagFin TCPFlag = 1 << iota
	TCPFlagSyn
	TCPFlagRst
	TCPFlagPsh
	TCPFlagAck
	TCPFlagUrg
)

var tcpFlagNames = []struct {
	flag TCPFlag
	name string
}{
	{TCPFlagUrg, "URG"},
	{TCPFlagAck, "ACK"},
	{TCPFlagPsh, "PSH"},
	{TCPFlagRst, "RST"},
	{TCPFlagSyn, "SYN"},
	{TCPFlagFin, "FIN"},
}

func (f TCPFlag) String() string {
	var names []string
	for _, n := range tcpFlagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// ParseTCPFlag parses a single flag name such as "syn" (case-insensitive).
func ParseTCPFlag(name string) (TCPFlag, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, n := range tcpFlagNames {
		if n.name == name {
			return n.flag, true
		}
	}
	return 0, false
}

// ParseTCPFlags parses a comma or pipe separated flag list such as "syn,ack".
// An empty string yields no flags.
func ParseTCPFlags(s string) (TCPFlag, error) {
	var flags TCPFlag
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		if strings.TrimSpace(name) == "" || strings.EqualFold(strings.TrimSpace(name), "none") {
			continue
		}
		f, ok := ParseTCPFlag(name)
		if !ok {
			return 0, fmt.Errorf("unknown tcp flag %q", strings.TrimSpace(name))
		}
		flags |= f
	}
	return flags, nil
}

// TCPHeader is a TCP header without options.
//
// Sequence number, acknowledgment number, data offset and urgent pointer are
// not supported and are always encoded as zero.
type TCPHeader struct {
	srcPort uint16
	dstPort uint16
	flags   uint8
	window  uint16
	pseudo  *PseudoHeader
}

// NewTCPHeader returns a header with no flags set and the maximum window.
func NewTCPHeader(srcPort, dstPort uint16) *TCPHeader {
	return &TCPHeader{
		srcPort: srcPort,
		dstPort: dstPort,
		window:  DefaultWindow,
	}
}

func (h *TCPHeader) SrcPort() uint16 { return h.srcPort }
func (h *TCPHeader) SetSrcPort(port uint16) { h.srcPort = port }
func (h *TCPHeader) DstPort() uint16 { return h.dstPort }
func (h *TCPHeader) SetDstPort(port uint16) { h.dstPort = port }
func (h *TCPHeader) Window() uint16 { return h.window }
func (h *TCPHeader) SetWindow(w uint16) { h.window = w }
func (h *TCPHeader) Flags() uint8 { return h.flags }

// SetFlags replaces the whole flag byte.
func (h *TCPHeader) SetFlags(flags uint8) { h.flags = flags }

// SetFlag ORs f into the flag byte. Flags already set are kept.
func (h *TCPHeader) SetFlag(f TCPFlag) { h.flags |= uint8(f) }

// HasFlag reports whether f is set.
func (h *TCPHeader) HasFlag(f TCPFlag) bool { return h.flags&uint8(f) == uint8(f) }

// SetPseudoHeader binds the checksum pseudo header (protocol 6).
func (h *TCPHeader) SetPseudoHeader(src, dst [4]byte, payloadLen uint16) {
	h.pseudo = mustPseudoHeader(src, dst, core.ProtocolNumberTCP, TCPMinLength, payloadLen)
}

func (h *TCPHeader) Bound() bool { return h.pseudo != nil }
func (h *TCPHeader) ChecksumOffset() int { return tcpChecksum }
func (h *TCPHeader) Proto() core.Protocol { return core.ProtocolTCP }
func (h *TCPHeader) Length() int { return TCPMinLength }
func (h *TCPHeader) MinLength() int { return TCPMinLength }

// Make encodes the header and fills in the checksum computed over the pseudo
// header and the 20 header bytes. The pseudo header is consumed.
func (h *TCPHeader) Make() core.PacketData {
	if h.pseudo == nil {
		unboundPanic(core.ProtocolTCP, h.srcPort, h.dstPort)
	}
	ph := *h.pseudo
	h.pseudo = nil

	b := make(core.PacketData, TCPMinLength)
	wire.PutUint16(b[tcpSrcPort:], h.srcPort)
	wire.PutUint16(b[tcpDstPort:], h.dstPort)
	// seq, ack, data offset, checksum and urgent pointer stay zero
	b[tcpFlags] = h.flags
	wire.PutUint16(b[tcpWindow:], h.window)

	acc := ph.Accumulator()
	acc.AddBytes(b)
	sum := acc.Bytes()
	copy(b[tcpChecksum:], sum[:])
	return b
}

// ParseTCP reads the fixed TCP fields from raw. It does not verify the
// checksum and never reads past the first 20 bytes.
func ParseTCP(raw []byte) (*TCPHeader, error) {
	if err := checkLength(core.ProtocolTCP, raw); err != nil {
		return nil, err
	}
	return &TCPHeader{
		srcPort: wire.Uint16(raw[tcpSrcPort:]),
		dstPort: wire.Uint16(raw[tcpDstPort:]),
		flags:   raw[tcpFlags],
		window:  wire.Uint16(raw[tcpWindow:]),
	}, nil
}
