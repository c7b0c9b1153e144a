package decoder

import (
	"fmt"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/checksum"
	"firestige.xyz/pktcodec/internal/core/header"
	"firestige.xyz/pktcodec/internal/core/wire"
)

// decodeIP decodes the IPv4 header.
// Returns the header and the bytes following it, trimmed to the total length.
func decodeIP(data []byte, verify bool) (*header.IPv4Header, []byte, error) {
	ip, err := header.ParseIPv4(data)
	if err != nil {
		return nil, nil, err
	}

	headerLen := ip.HeaderLength()
	if len(data) < headerLen {
		return nil, nil, fmt.Errorf("%w: ihl %d bytes, datagram %d bytes", core.ErrInvalidLength, headerLen, len(data))
	}

	if verify && !checksum.Verify(data[:headerLen], 0) {
		return nil, nil, fmt.Errorf("%w: ipv4 header", core.ErrChecksumMismatch)
	}

	// Drop link-layer padding past the IP total length
	end := len(data)
	if total := int(ip.TotalLength()); total >= headerLen && total < end {
		end = total
	}
	return ip, data[headerLen:end], nil
}

// isTrailingFragment reports whether the datagram is a fragment other than
// the first one. Only the first fragment carries the transport header.
func isTrailingFragment(ipData []byte) bool {
	if len(ipData) < header.IPv4MinLength {
		return false
	}
	// Flags and Fragment Offset (2 bytes at offset 6)
	fragmentOffset := wire.Uint16(ipData[6:8]) & 0x1FFF
	return fragmentOffset != 0
}
