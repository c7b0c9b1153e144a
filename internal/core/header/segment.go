package header

import (
	"fmt"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/checksum"
	"firestige.xyz/pktcodec/internal/core/wire"
)

// Encapsulate assembles a complete IPv4 datagram: ip, then t, then payload.
//
// The IPv4 protocol and total length fields are set from t and payload, the
// pseudo header is bound from ip, and the transport checksum is extended over
// payload. An oversize datagram is reported as ErrSegmentTooLarge instead of
// panicking, since payload usually comes from the caller's input.
func Encapsulate(ip *IPv4Header, t TransportHeader, payload []byte) (core.PacketData, error) {
	total := ip.Length() + t.Length() + len(payload)
	if total > maxSegmentLen {
		return nil, fmt.Errorf("%w: datagram of %d bytes", core.ErrSegmentTooLarge, total)
	}

	ip.SetProtocol(t.Proto().Number())
	ip.SetTotalLength(uint16(total))
	BindFromIPv4(t, ip, uint16(len(payload)))

	seg := t.Make()
	if len(payload) > 0 {
		off := t.ChecksumOffset()
		sum := checksum.Update(wire.Uint16(seg[off:]), payload)
		if sum == 0 && t.Proto() == core.ProtocolUDP {
			sum = 0xffff
		}
		wire.PutUint16(seg[off:], sum)
	}

	out := make(core.PacketData, 0, total)
	out = append(out, ip.Make()...)
	out = append(out, seg...)
	out = append(out, payload...)
	return out, nil
}
