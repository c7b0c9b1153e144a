package decoder

import (
	"container/list"
	"fmt"
	"time"

	"golang.org/x/net/ipv4"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
	"firestige.xyz/pktcodec/internal/core/wire"
	"firestige.xyz/pktcodec/internal/metrics"
)

const (
	ipv4MaxSize       = 65535
	ipv4MaxFragOffset = 8183 // in 8-byte units
)

// ReassemblyConfig contains configuration for IP reassembly.
type ReassemblyConfig struct {
	MaxFragments int           // Maximum fragments per datagram (default 100)
	Timeout      time.Duration // Capture-time age after which a partial datagram is dropped (default 60s)
}

// fragmentKey identifies one fragmented datagram (RFC 791).
type fragmentKey struct {
	srcIP    [4]byte
	dstIP    [4]byte
	protocol uint8
	id       uint16
}

type fragment struct {
	offset  uint16
	payload []byte
}

func (f *fragment) end() uint16 { return f.offset + uint16(len(f.payload)) }

// fragmentList keeps fragments sorted by offset. On overlap the data that
// arrived first wins.
type fragmentList struct {
	list     list.List // of *fragment
	first    *header.IPv4Header
	highest  uint16
	current  uint16
	final    bool
	count    int
	lastSeen time.Time
}

// Reassembler rebuilds fragmented IPv4 datagrams read from a capture.
// It is not safe for concurrent use.
type Reassembler struct {
	flows  map[fragmentKey]*fragmentList
	config ReassemblyConfig
}

// NewReassembler creates a new IP fragment reassembler.
func NewReassembler(cfg ReassemblyConfig) *Reassembler {
	if cfg.MaxFragments <= 0 {
		cfg.MaxFragments = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Reassembler{
		flows:  make(map[fragmentKey]*fragmentList),
		config: cfg,
	}
}

// Process returns raw unchanged when it is not a fragment, the rebuilt
// datagram when raw completes one, and ok=false while fragments are missing.
// The rebuilt datagram carries the first fragment's header without options,
// with MF cleared and a fresh checksum.
func (r *Reassembler) Process(raw core.RawPacket) (core.RawPacket, bool, error) {
	r.expire(raw.Timestamp)

	ip, payload, err := decodeIP(raw.Data, false)
	if err != nil {
		return core.RawPacket{}, false, err
	}
	fragOffset := wire.Uint16(raw.Data[6:8]) & 0x1fff
	more := ip.Flags()&ipv4.MoreFragments != 0
	if !more && fragOffset == 0 {
		return raw, true, nil
	}

	if len(payload) == 0 {
		return core.RawPacket{}, false, fmt.Errorf("%w: empty fragment", core.ErrInvalidLength)
	}
	if fragOffset > ipv4MaxFragOffset || int(fragOffset)*8+len(payload) > ipv4MaxSize {
		return core.RawPacket{}, false, fmt.Errorf("%w: fragment offset %d with %d bytes exceeds datagram size",
			core.ErrSegmentTooLarge, int(fragOffset)*8, len(payload))
	}

	key := fragmentKey{protocol: ip.Protocol(), id: ip.ID()}
	key.srcIP = ip.Src().As4()
	key.dstIP = ip.Dst().As4()

	fl, ok := r.flows[key]
	if !ok {
		fl = &fragmentList{}
		r.flows[key] = fl
		metrics.ReassemblyPendingDatagrams.Inc()
	}
	if fl.count >= r.config.MaxFragments {
		r.evict(key)
		return core.RawPacket{}, false, fmt.Errorf("fragment count exceeded limit %d", r.config.MaxFragments)
	}
	fl.count++
	fl.lastSeen = raw.Timestamp

	byteOffset := fragOffset * 8
	frag := &fragment{offset: byteOffset, payload: append([]byte(nil), payload...)}
	if err := fl.check(frag, more); err != nil {
		r.evict(key)
		return core.RawPacket{}, false, err
	}
	if byteOffset == 0 && fl.first == nil {
		fl.first = ip
	}
	if !more {
		fl.final = true
		fl.highest = frag.end()
	} else if !fl.final && frag.end() > fl.highest {
		fl.highest = frag.end()
	}
	fl.insert(frag)

	if !fl.final || fl.first == nil || fl.current < fl.highest {
		return core.RawPacket{}, false, nil
	}

	r.evict(key)
	data, err := fl.build()
	if err != nil {
		return core.RawPacket{}, false, err
	}
	metrics.ReassembledTotal.Inc()
	return core.RawPacket{
		Data:       data,
		Timestamp:  raw.Timestamp,
		CaptureLen: uint32(len(data)),
		OrigLen:    uint32(len(data)),
	}, true, nil
}

// Pending returns the number of incomplete datagrams.
func (r *Reassembler) Pending() int {
	return len(r.flows)
}

// check rejects a fragment that contradicts the datagram end. Once the final
// fragment is held, highest is the datagram length; before that it is the
// furthest byte seen.
func (fl *fragmentList) check(frag *fragment, more bool) error {
	switch {
	case !more && fl.final:
		return fmt.Errorf("%w: second final fragment ending at %d", core.ErrBadFragment, frag.end())
	case !more && frag.end() < fl.highest:
		return fmt.Errorf("%w: final fragment ends at %d, data seen up to %d", core.ErrBadFragment, frag.end(), fl.highest)
	case more && fl.final && frag.end() > fl.highest:
		return fmt.Errorf("%w: fragment ends at %d past datagram end %d", core.ErrBadFragment, frag.end(), fl.highest)
	}
	return nil
}

// insert trims frag against its neighbours and links it in offset order.
func (fl *fragmentList) insert(frag *fragment) {
	var next *list.Element
	for e := fl.list.Front(); e != nil; e = e.Next() {
		if e.Value.(*fragment).offset >= frag.offset {
			next = e
			break
		}
	}

	start, end := frag.offset, frag.end()
	var prev *list.Element
	if next != nil {
		prev = next.Prev()
	} else {
		prev = fl.list.Back()
	}
	if prev != nil {
		if pe := prev.Value.(*fragment).end(); pe > start {
			start = pe
		}
	}
	if next != nil {
		if no := next.Value.(*fragment).offset; no < end {
			end = no
		}
	}
	if start >= end {
		return
	}

	trimmed := &fragment{
		offset:  start,
		payload: frag.payload[start-frag.offset : end-frag.offset],
	}
	if next != nil {
		fl.list.InsertBefore(trimmed, next)
	} else {
		fl.list.PushBack(trimmed)
	}
	fl.current += uint16(len(trimmed.payload))
}

func (fl *fragmentList) build() ([]byte, error) {
	total := header.IPv4MinLength + int(fl.highest)
	if total > ipv4MaxSize {
		return nil, fmt.Errorf("%w: reassembled datagram of %d bytes", core.ErrSegmentTooLarge, total)
	}

	ip := fl.first
	ip.SetFlags(ip.Flags() &^ ipv4.MoreFragments)
	ip.SetTotalLength(uint16(total))

	out := make([]byte, total)
	copy(out, ip.Make())
	for e := fl.list.Front(); e != nil; e = e.Next() {
		f := e.Value.(*fragment)
		if f.end() > fl.highest {
			return nil, fmt.Errorf("%w: fragment ends at %d past datagram end %d", core.ErrBadFragment, f.end(), fl.highest)
		}
		copy(out[header.IPv4MinLength+int(f.offset):], f.payload)
	}
	return out, nil
}

func (r *Reassembler) evict(key fragmentKey) {
	if _, ok := r.flows[key]; ok {
		delete(r.flows, key)
		metrics.ReassemblyPendingDatagrams.Dec()
	}
}

// expire drops partial datagrams not extended within the timeout, measured
// against capture timestamps.
func (r *Reassembler) expire(now time.Time) {
	if now.IsZero() {
		return
	}
	for key, fl := range r.flows {
		if now.Sub(fl.lastSeen) > r.config.Timeout {
			r.evict(key)
			metrics.ReassemblyExpiredTotal.Inc()
		}
	}
}
