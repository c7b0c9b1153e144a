package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("Protocol", func(t *testing.T) {
		var p Protocol
		if p != ProtocolUnknown {
			t.Errorf("expected ProtocolUnknown, got %v", p)
		}
		if p.Number() != 0 {
			t.Errorf("expected Number()=0, got %d", p.Number())
		}
	})

	t.Run("RawPacket", func(t *testing.T) {
		var raw RawPacket
		if raw.Data != nil {
			t.Errorf("expected Data=nil, got %v", raw.Data)
		}
		if !raw.Timestamp.IsZero() {
			t.Errorf("expected zero Timestamp, got %v", raw.Timestamp)
		}
	})
}

func TestProtocolNumbers(t *testing.T) {
	tests := []struct {
		proto  Protocol
		number uint8
		name   string
	}{
		{ProtocolIPv4, 4, "ipv4"},
		{ProtocolTCP, 6, "tcp"},
		{ProtocolUDP, 17, "udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.proto.Number(); got != tt.number {
				t.Errorf("expected number %d, got %d", tt.number, got)
			}
			if got := tt.proto.String(); got != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, got)
			}
			if got := ProtocolFromNumber(tt.number); got != tt.proto {
				t.Errorf("ProtocolFromNumber(%d) = %v, expected %v", tt.number, got, tt.proto)
			}
			parsed, err := ParseProtocol(tt.name)
			if err != nil {
				t.Fatalf("ParseProtocol(%q) failed: %v", tt.name, err)
			}
			if parsed != tt.proto {
				t.Errorf("ParseProtocol(%q) = %v, expected %v", tt.name, parsed, tt.proto)
			}
		})
	}

	if got := ProtocolFromNumber(132); got != ProtocolUnknown {
		t.Errorf("expected unknown for SCTP, got %v", got)
	}
}

func TestParseProtocolCaseInsensitive(t *testing.T) {
	p, err := ParseProtocol(" TCP ")
	if err != nil {
		t.Fatalf("ParseProtocol failed: %v", err)
	}
	if p != ProtocolTCP {
		t.Errorf("expected tcp, got %v", p)
	}
}

func TestParseProtocolUnsupported(t *testing.T) {
	_, err := ParseProtocol("sctp")
	if !errors.Is(err, ErrUnsupportedProto) {
		t.Errorf("expected ErrUnsupportedProto, got %v", err)
	}
}

// Test sentinel errors
func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrInvalidLength, "pktcodec: buffer shorter than minimum header length"},
			{ErrUnsupportedProto, "pktcodec: unsupported protocol"},
			{ErrChecksumMismatch, "pktcodec: checksum mismatch"},
			{ErrBadFragment, "pktcodec: inconsistent fragment"},
			{ErrPseudoHeaderUnbound, "pktcodec: pseudo header not bound"},
			{ErrSegmentTooLarge, "pktcodec: segment length exceeds 65535"},
			{ErrConfigInvalid, "pktcodec: invalid configuration"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})

	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("%w: tcp needs 20 bytes, got 3", ErrInvalidLength)
		if !errors.Is(wrapped, ErrInvalidLength) {
			t.Error("errors.Is failed for wrapped error")
		}
	})
}

func TestRawPacket(t *testing.T) {
	now := time.Now()
	raw := RawPacket{
		Data:       []byte{0x45, 0x00, 0x00},
		Timestamp:  now,
		CaptureLen: 3,
		OrigLen:    40,
	}

	if len(raw.Data) != 3 {
		t.Errorf("expected Data length 3, got %d", len(raw.Data))
	}
	if raw.Timestamp != now {
		t.Errorf("timestamp mismatch")
	}
	if raw.OrigLen != 40 {
		t.Errorf("expected OrigLen=40, got %d", raw.OrigLen)
	}
}
