// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by the codec packages. Callers match them with errors.Is.
var (
	// Parse errors (recoverable, caller data)
	ErrInvalidLength    = errors.New("pktcodec: buffer shorter than minimum header length")
	ErrUnsupportedProto = errors.New("pktcodec: unsupported protocol")
	ErrChecksumMismatch = errors.New("pktcodec: checksum mismatch")
	ErrBadFragment      = errors.New("pktcodec: inconsistent fragment")

	// Contract violations (raised as panics by the header codecs)
	ErrPseudoHeaderUnbound = errors.New("pktcodec: pseudo header not bound")
	ErrSegmentTooLarge     = errors.New("pktcodec: segment length exceeds 65535")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktcodec: invalid configuration")
)
