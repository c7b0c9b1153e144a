package pcapio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// SnapLen is the snapshot length written to the file header.
const SnapLen = 65535

// Writer writes IPv4 datagrams as raw-IP pcap records.
type Writer struct {
	w      *pcapgo.Writer
	closer io.Closer
}

// Create creates or truncates the file at path and writes the pcap header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file %s: %w", path, err)
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes the pcap file header to dst.
func NewWriter(dst io.Writer) (*Writer, error) {
	w := pcapgo.NewWriter(dst)
	if err := w.WriteFileHeader(SnapLen, layers.LinkTypeRaw); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Write appends one datagram record.
func (w *Writer) Write(ts time.Time, datagram []byte) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(datagram),
		Length:        len(datagram),
	}
	if err := w.w.WritePacket(ci, datagram); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// Close closes the underlying file when the writer was created by Create.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}
