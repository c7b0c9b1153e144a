package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/decoder"
	"firestige.xyz/pktcodec/internal/core/header"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/internal/pcapio"
)

var (
	verifyIPChecksum bool
	reassemble       bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode IPv4 datagrams from a pcap file",
	Long: `Decode reads every record of a pcap file (raw IP or Ethernet link type)
and prints one line per datagram: addresses, ports, flags and payload size.
Records that fail to decode are reported and counted, and decoding continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := pcapio.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		dec := decoder.NewStandardDecoder(decoder.Config{VerifyIPChecksum: verifyIPChecksum})
		var re *decoder.Reassembler
		if reassemble {
			re = decoder.NewReassembler(decoder.ReassemblyConfig{})
		}
		stats, err := runDecode(r, re, dec, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "decoded %d datagram(s), %d error(s), %d fragment(s) held for reassembly, %d frame(s) skipped\n",
			stats.decoded, stats.failed, stats.held, r.Skipped())
		if re != nil && re.Pending() > 0 {
			log.GetLogger().Warnf("%d fragmented datagram(s) left incomplete", re.Pending())
		}
		return nil
	},
}

func init() {
	decodeCmd.Flags().BoolVar(&verifyIPChecksum, "verify-ip-checksum", false,
		"reject datagrams whose IPv4 header checksum is wrong")
	decodeCmd.Flags().BoolVar(&reassemble, "reassemble", false,
		"rebuild fragmented datagrams before decoding")
}

// packetSource yields raw datagrams until io.EOF.
type packetSource interface {
	Next() (core.RawPacket, error)
}

type decodeStats struct {
	decoded int
	failed  int
	held    int // fragments consumed by reassembly
}

// runDecode decodes every datagram from src and writes one line each to out.
// With a non-nil reassembler, fragments are held back until complete.
func runDecode(src packetSource, re *decoder.Reassembler, dec decoder.Decoder, out io.Writer) (decodeStats, error) {
	var stats decodeStats
	for i := 1; ; i++ {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		if re != nil {
			var complete bool
			raw, complete, err = re.Process(raw)
			if err != nil {
				stats.failed++
				log.GetLogger().WithError(err).WithField("index", i).Warn("failed to reassemble datagram")
				fmt.Fprintf(out, "#%d error: %v\n", i, err)
				continue
			}
			if !complete {
				stats.held++
				continue
			}
		}

		pkt, err := dec.Decode(raw)
		if err != nil {
			stats.failed++
			log.GetLogger().WithError(err).WithField("index", i).Warn("failed to decode datagram")
			fmt.Fprintf(out, "#%d error: %v\n", i, err)
			continue
		}
		stats.decoded++
		fmt.Fprintf(out, "#%d %s\n", i, describe(pkt))
	}
}

func describe(pkt decoder.DecodedPacket) string {
	ip := pkt.IP
	switch t := pkt.Transport.(type) {
	case *header.TCPHeader:
		return fmt.Sprintf("%s %s:%d -> %s:%d [%s] win=%d payload=%d",
			t.Proto(), ip.Src(), t.SrcPort(), ip.Dst(), t.DstPort(),
			header.TCPFlag(t.Flags()), t.Window(), len(pkt.Payload))
	case *header.UDPHeader:
		return fmt.Sprintf("%s %s:%d -> %s:%d payload=%d",
			t.Proto(), ip.Src(), t.SrcPort(), ip.Dst(), t.DstPort(), len(pkt.Payload))
	}
	kind := core.ProtocolFromNumber(ip.Protocol()).String()
	if kind == core.ProtocolUnknown.String() {
		kind = fmt.Sprintf("proto=%d", ip.Protocol())
	}
	if pkt.Fragment {
		kind += " fragment"
	}
	return fmt.Sprintf("ipv4 %s -> %s %s payload=%d", ip.Src(), ip.Dst(), kind, len(pkt.Payload))
}
