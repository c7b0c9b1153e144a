// Package decoder implements L3-L4 decoding of raw IPv4 datagrams.
package decoder

import (
	"errors"
	"time"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
	"firestige.xyz/pktcodec/internal/metrics"
)

// DecodedPacket is the result of decoding one datagram.
type DecodedPacket struct {
	Timestamp  time.Time
	IP         *header.IPv4Header
	Transport  header.Header // nil for unsupported protocols and non-first fragments
	Payload    []byte        // zero-copy slice of the raw datagram
	CaptureLen uint32
	OrigLen    uint32
	Fragment   bool
}

// Decoder decodes raw datagrams into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (DecodedPacket, error)
}

// Config controls optional decoder checks.
type Config struct {
	// VerifyIPChecksum rejects datagrams whose IPv4 header checksum does not
	// sum to zero. Transport checksums are never verified.
	VerifyIPChecksum bool
}

// StandardDecoder decodes IPv4 datagrams carrying TCP or UDP.
type StandardDecoder struct {
	config Config
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder(config Config) *StandardDecoder {
	return &StandardDecoder{config: config}
}

// Decode decodes the IPv4 header, then the transport header when the
// protocol is supported and the datagram is not a trailing fragment.
func (d *StandardDecoder) Decode(raw core.RawPacket) (DecodedPacket, error) {
	pkt := DecodedPacket{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	ip, payload, err := decodeIP(raw.Data, d.config.VerifyIPChecksum)
	if err != nil {
		metrics.DecodeErrorsTotal.WithLabelValues("ip", errorReason(err)).Inc()
		return pkt, err
	}
	pkt.IP = ip
	pkt.Payload = payload

	proto := core.ProtocolFromNumber(ip.Protocol())
	if isTrailingFragment(raw.Data) {
		pkt.Fragment = true
		metrics.PacketsDecodedTotal.WithLabelValues("fragment").Inc()
		return pkt, nil
	}

	transport, payload, err := decodeTransport(payload, proto)
	if err != nil {
		metrics.DecodeErrorsTotal.WithLabelValues("transport", errorReason(err)).Inc()
		return pkt, err
	}
	pkt.Transport = transport
	pkt.Payload = payload

	metrics.PacketsDecodedTotal.WithLabelValues(proto.String()).Inc()
	metrics.PayloadBytes.WithLabelValues(proto.String()).Observe(float64(len(payload)))
	return pkt, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, core.ErrUnsupportedProto):
		return "unsupported_protocol"
	case errors.Is(err, core.ErrChecksumMismatch):
		return "checksum"
	default:
		return "other"
	}
}
