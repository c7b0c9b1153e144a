// Package pcapio reads and writes pcap files carrying IPv4 datagrams.
package pcapio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/log"
)

// Reader yields raw IPv4 datagrams from a pcap stream.
// Ethernet captures are supported; link headers and 802.1Q tags are stripped.
type Reader struct {
	r        *pcapgo.Reader
	closer   io.Closer
	linkType layers.LinkType
	skipped  int
}

// Open opens the pcap file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads the pcap file header from src.
func NewReader(src io.Reader) (*Reader, error) {
	r, err := pcapgo.NewReader(src)
	if err != nil {
		return nil, err
	}
	lt := r.LinkType()
	switch lt {
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeEthernet:
	default:
		return nil, fmt.Errorf("%w: link type %s", core.ErrUnsupportedProto, lt)
	}
	return &Reader{r: r, linkType: lt}, nil
}

// Next returns the next IPv4 datagram. Frames that do not carry IPv4 are
// skipped. It returns io.EOF at the end of the stream.
func (r *Reader) Next() (core.RawPacket, error) {
	for {
		data, ci, err := r.r.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.RawPacket{}, io.EOF
			}
			return core.RawPacket{}, fmt.Errorf("failed to read packet: %w", err)
		}

		datagram, ok := r.network(data)
		if !ok {
			r.skipped++
			log.GetLogger().WithField("link_type", r.linkType.String()).
				Debugf("skipping non-IPv4 frame of %d bytes", len(data))
			continue
		}

		trimmed := uint32(len(data) - len(datagram))
		orig := uint32(ci.Length)
		if orig >= trimmed {
			orig -= trimmed
		}
		return core.RawPacket{
			Data:       datagram,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(len(datagram)),
			OrigLen:    orig,
		}, nil
	}
}

// network strips the link-layer header, if any.
func (r *Reader) network(data []byte) ([]byte, bool) {
	if r.linkType != layers.LinkTypeEthernet {
		return data, len(data) > 0 && data[0]>>4 == 4
	}

	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, false
	}
	etherType, payload := eth.EthernetType, eth.Payload
	for etherType == layers.EthernetTypeDot1Q {
		var tag layers.Dot1Q
		if err := tag.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return nil, false
		}
		etherType, payload = tag.Type, tag.Payload
	}
	if etherType != layers.EthernetTypeIPv4 {
		return nil, false
	}
	return payload, true
}

// LinkType returns the link type from the file header.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Skipped returns the number of non-IPv4 frames skipped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close closes the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
