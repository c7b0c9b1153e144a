package decoder

import (
	"fmt"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
)

// decodeTransport decodes transport layer header (TCP/UDP).
// Returns the header and remaining payload.
func decodeTransport(data []byte, proto core.Protocol) (header.Header, []byte, error) {
	switch proto {
	case core.ProtocolTCP:
		return decodeTCP(data)
	case core.ProtocolUDP:
		return decodeUDP(data)
	default:
		// Unsupported transport protocol (e.g., SCTP, ICMP)
		return nil, data, nil
	}
}

// decodeUDP decodes UDP header.
func decodeUDP(data []byte) (header.Header, []byte, error) {
	udp, err := header.ParseUDP(data)
	if err != nil {
		return nil, nil, err
	}
	return udp, data[header.UDPLength:], nil
}

// decodeTCP decodes TCP header.
func decodeTCP(data []byte) (header.Header, []byte, error) {
	tcp, err := header.ParseTCP(data)
	if err != nil {
		return nil, nil, err
	}

	// Data Offset (upper 4 bits of byte 12), in 32-bit words. Headers built by
	// this module leave it zero, which is treated as the minimum size.
	headerLen := int(data[12]>>4) * 4
	if headerLen < header.TCPMinLength {
		headerLen = header.TCPMinLength
	}
	if len(data) < headerLen {
		return nil, nil, fmt.Errorf("%w: tcp data offset %d bytes, segment %d bytes", core.ErrInvalidLength, headerLen, len(data))
	}

	// Payload starts after TCP header (including options)
	return tcp, data[headerLen:], nil
}
