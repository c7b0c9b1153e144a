package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/ipv4"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
)

var (
	parseProto  string
	parseOutput string
)

var parseCmd = &cobra.Command{
	Use:   "parse HEX",
	Short: "Parse header bytes into fields",
	Long: `Parse decodes the fixed-layout header at the start of HEX and prints its
fields. Bytes past the minimum header length are ignored and the embedded
checksum is not verified.

Examples:
  pktcodec parse --proto tcp 01bbc73800000000000000000002ffff22ed0000
  pktcodec parse --proto ipv4 --output yaml "45 00 00 28 ..."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := parseOutput
		if format == "" {
			format = cfg.Output.Format
		}
		return runParse(parseProto, args[0], format, cmd.OutOrStdout())
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseProto, "proto", "p", "tcp", "header protocol (tcp/udp/ipv4)")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "output format json/yaml (default from config)")
}

// headerView is the printable form of a parsed header.
type headerView struct {
	Protocol    string `json:"protocol" yaml:"protocol"`
	Length      int    `json:"length" yaml:"length"`
	SrcPort     uint16 `json:"src_port,omitempty" yaml:"src_port,omitempty"`
	DstPort     uint16 `json:"dst_port,omitempty" yaml:"dst_port,omitempty"`
	Flags       string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Window      *int   `json:"window,omitempty" yaml:"window,omitempty"`
	UDPLength   uint16 `json:"udp_length,omitempty" yaml:"udp_length,omitempty"`
	Src         string `json:"src,omitempty" yaml:"src,omitempty"`
	Dst         string `json:"dst,omitempty" yaml:"dst,omitempty"`
	TOS         *int   `json:"tos,omitempty" yaml:"tos,omitempty"`
	TotalLength uint16 `json:"total_length,omitempty" yaml:"total_length,omitempty"`
	ID          *int   `json:"id,omitempty" yaml:"id,omitempty"`
	IPFlags     string `json:"ip_flags,omitempty" yaml:"ip_flags,omitempty"`
	TTL         *int   `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	IPProtocol  *int   `json:"ip_protocol,omitempty" yaml:"ip_protocol,omitempty"`
}

func intPtr(v int) *int { return &v }

func newHeaderView(h header.Header) headerView {
	v := headerView{Protocol: h.Proto().String(), Length: h.Length()}
	switch h := h.(type) {
	case *header.TCPHeader:
		v.SrcPort, v.DstPort = h.SrcPort(), h.DstPort()
		v.Flags = header.TCPFlag(h.Flags()).String()
		v.Window = intPtr(int(h.Window()))
	case *header.UDPHeader:
		v.SrcPort, v.DstPort = h.SrcPort(), h.DstPort()
		v.UDPLength = h.DatagramLength()
	case *header.IPv4Header:
		v.Length = h.HeaderLength()
		v.Src, v.Dst = h.Src().String(), h.Dst().String()
		v.TOS = intPtr(int(h.TOS()))
		v.TotalLength = h.TotalLength()
		v.ID = intPtr(int(h.ID()))
		v.IPFlags = ipFlagsString(h.Flags())
		v.TTL = intPtr(int(h.TTL()))
		v.IPProtocol = intPtr(int(h.Protocol()))
	}
	return v
}

func ipFlagsString(f ipv4.HeaderFlags) string {
	var names []string
	if f&ipv4.DontFragment != 0 {
		names = append(names, "DF")
	}
	if f&ipv4.MoreFragments != 0 {
		names = append(names, "MF")
	}
	return strings.Join(names, "|")
}

// runParse parses hexInput as proto and writes the fields to out.
func runParse(proto, hexInput, format string, out io.Writer) error {
	p, err := core.ParseProtocol(proto)
	if err != nil {
		return err
	}
	raw, err := decodeHex(hexInput)
	if err != nil {
		return fmt.Errorf("invalid hex input: %w", err)
	}
	h, err := header.Parse(p, raw)
	if err != nil {
		return err
	}
	return writeView(newHeaderView(h), format, out)
}

func writeView(v interface{}, format string, out io.Writer) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s (must be json or yaml)", format)
	}
}
