// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HeadersBuiltTotal counts headers serialized by protocol
	HeadersBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktcodec_headers_built_total",
			Help: "Total number of headers serialized",
		},
		[]string{"protocol"},
	)

	// PacketsDecodedTotal counts datagrams decoded by transport protocol
	PacketsDecodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktcodec_packets_decoded_total",
			Help: "Total number of datagrams decoded",
		},
		[]string{"protocol"},
	)

	// DecodeErrorsTotal counts decode failures by layer and reason
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktcodec_decode_errors_total",
			Help: "Total number of decode errors",
		},
		[]string{"layer", "reason"},
	)

	// ReassemblyPendingDatagrams tracks incomplete fragmented datagrams
	ReassemblyPendingDatagrams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pktcodec_reassembly_pending_datagrams",
			Help: "Number of fragmented datagrams awaiting more fragments",
		},
	)

	// ReassembledTotal counts datagrams rebuilt from fragments
	ReassembledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktcodec_reassembled_total",
			Help: "Total number of datagrams rebuilt from fragments",
		},
	)

	// ReassemblyExpiredTotal counts partial datagrams dropped on timeout
	ReassemblyExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktcodec_reassembly_expired_total",
			Help: "Total number of partial datagrams dropped after the reassembly timeout",
		},
	)

	// PayloadBytes measures decoded payload sizes
	PayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pktcodec_payload_bytes",
			Help:    "Size of decoded transport payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16B to 32KiB
		},
		[]string{"protocol"},
	)
)
