package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/config"
	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/internal/metrics"
	"firestige.xyz/pktcodec/internal/pcapio"
)

// buildRequest describes one header or datagram to build.
// Empty addresses and a nil window fall back to the configured defaults.
type buildRequest struct {
	Protocol   core.Protocol
	SrcAddr    string
	DstAddr    string
	SrcPort    uint16
	DstPort    uint16
	PayloadLen uint16
	Payload    []byte
	Flags      header.TCPFlag
	Window     *uint16
	WithIP     bool
	PcapPath   string
}

type buildFlags struct {
	src        string
	dst        string
	srcPort    uint16
	dstPort    uint16
	payloadLen uint16
	payloadHex string
	flags      string
	window     uint16
	withIP     bool
	pcapPath   string
}

var buildOpts buildFlags

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a TCP or UDP header, optionally wrapped in an IPv4 datagram",
	Long: `Build serializes a transport header and prints it as hex.

The checksum covers the IPv4 pseudo-header and the header itself. With --ip
(implied by --payload and --pcap) the header is wrapped into a complete IPv4
datagram and the checksum is extended over the payload.

Examples:
  pktcodec build tcp --src 10.0.0.1 --dst 10.0.0.2 --src-port 443 --dst-port 51000 --flags syn
  pktcodec build udp --src-port 5353 --dst-port 53 --payload 68656c6c6f --pcap out.pcap
  pktcodec build template synack`,
}

var buildTCPCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Build a TCP header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildOpts.request(cmd, core.ProtocolTCP)
		if err != nil {
			return err
		}
		return runBuild(req, cfg, cmd.OutOrStdout())
	},
}

var buildUDPCmd = &cobra.Command{
	Use:   "udp",
	Short: "Build a UDP header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("flags") || cmd.Flags().Changed("window") {
			return fmt.Errorf("--flags and --window only apply to tcp")
		}
		req, err := buildOpts.request(cmd, core.ProtocolUDP)
		if err != nil {
			return err
		}
		return runBuild(req, cfg, cmd.OutOrStdout())
	},
}

var buildTemplateCmd = &cobra.Command{
	Use:   "template NAME",
	Short: "Build a header from a configured template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, ok := cfg.Template(args[0])
		if !ok {
			return fmt.Errorf("template %q not found", args[0])
		}
		req, err := templateRequest(tmpl)
		if err != nil {
			return err
		}
		if err := buildOpts.applyPayload(cmd, &req); err != nil {
			return err
		}
		return runBuild(req, cfg, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{buildTCPCmd, buildUDPCmd} {
		c.Flags().StringVar(&buildOpts.src, "src", "", "source IPv4 address (default from config)")
		c.Flags().StringVar(&buildOpts.dst, "dst", "", "destination IPv4 address (default from config)")
		c.Flags().Uint16Var(&buildOpts.srcPort, "src-port", 0, "source port")
		c.Flags().Uint16Var(&buildOpts.dstPort, "dst-port", 0, "destination port")
	}
	buildTCPCmd.Flags().StringVar(&buildOpts.flags, "flags", "", "TCP flags, e.g. syn,ack")
	buildTCPCmd.Flags().Uint16Var(&buildOpts.window, "window", header.DefaultWindow, "TCP window (default from config)")
	// declared on udp too so the explicit rejection message wins over cobra's unknown flag error
	buildUDPCmd.Flags().StringVar(&buildOpts.flags, "flags", "", "not valid for udp")
	buildUDPCmd.Flags().Uint16Var(&buildOpts.window, "window", 0, "not valid for udp")
	_ = buildUDPCmd.Flags().MarkHidden("flags")
	_ = buildUDPCmd.Flags().MarkHidden("window")

	for _, c := range []*cobra.Command{buildTCPCmd, buildUDPCmd, buildTemplateCmd} {
		c.Flags().Uint16Var(&buildOpts.payloadLen, "payload-len", 0, "payload length used in the pseudo-header")
		c.Flags().StringVar(&buildOpts.payloadHex, "payload", "", "payload bytes as hex (implies --ip)")
		c.Flags().BoolVar(&buildOpts.withIP, "ip", false, "prefix an IPv4 header and emit the full datagram")
		c.Flags().StringVar(&buildOpts.pcapPath, "pcap", "", "also write the datagram to a raw-IP pcap file (implies --ip)")
	}

	buildCmd.AddCommand(buildTCPCmd)
	buildCmd.AddCommand(buildUDPCmd)
	buildCmd.AddCommand(buildTemplateCmd)
}

func (f *buildFlags) request(cmd *cobra.Command, proto core.Protocol) (buildRequest, error) {
	req := buildRequest{
		Protocol: proto,
		SrcAddr:  f.src,
		DstAddr:  f.dst,
		SrcPort:  f.srcPort,
		DstPort:  f.dstPort,
	}
	if proto == core.ProtocolTCP {
		flags, err := header.ParseTCPFlags(f.flags)
		if err != nil {
			return req, err
		}
		req.Flags = flags
		if cmd.Flags().Changed("window") {
			w := f.window
			req.Window = &w
		}
	}
	return req, f.applyPayload(cmd, &req)
}

// applyPayload copies the payload related flags into req.
func (f *buildFlags) applyPayload(cmd *cobra.Command, req *buildRequest) error {
	if cmd.Flags().Changed("payload-len") {
		req.PayloadLen = f.payloadLen
	}
	if f.payloadHex != "" {
		payload, err := decodeHex(f.payloadHex)
		if err != nil {
			return fmt.Errorf("invalid --payload: %w", err)
		}
		if cmd.Flags().Changed("payload-len") && int(f.payloadLen) != len(payload) {
			return fmt.Errorf("--payload-len %d does not match --payload of %d bytes", f.payloadLen, len(payload))
		}
		if len(payload) > 0xffff {
			return fmt.Errorf("%w: payload of %d bytes", core.ErrSegmentTooLarge, len(payload))
		}
		req.Payload = payload
		req.PayloadLen = uint16(len(payload))
	}
	req.PcapPath = f.pcapPath
	req.WithIP = f.withIP || f.payloadHex != "" || f.pcapPath != ""
	return nil
}

func templateRequest(t config.TemplateConfig) (buildRequest, error) {
	proto, err := core.ParseProtocol(t.Protocol)
	if err != nil {
		return buildRequest{}, err
	}
	return buildRequest{
		Protocol:   proto,
		SrcAddr:    t.SrcAddr,
		DstAddr:    t.DstAddr,
		SrcPort:    t.SrcPort,
		DstPort:    t.DstPort,
		PayloadLen: t.PayloadLen,
		Flags:      t.Flags,
		Window:     t.Window,
	}, nil
}

// runBuild builds the request and prints it as hex to out.
func runBuild(req buildRequest, gc *config.GlobalConfig, out io.Writer) error {
	data, err := buildPacket(req, gc.Defaults)
	if err != nil {
		return err
	}

	if req.PcapPath != "" {
		w, err := pcapio.Create(req.PcapPath)
		if err != nil {
			return err
		}
		if err := w.Write(time.Now(), data); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}

	log.GetLogger().WithFields(logrus.Fields{
		"protocol": req.Protocol.String(),
		"bytes":    len(data),
		"with_ip":  req.WithIP,
	}).Debug("built header")

	_, err = fmt.Fprintln(out, hex.EncodeToString(data))
	return err
}

// buildPacket validates req against the header constraints before calling
// the codec, whose contract violations panic.
func buildPacket(req buildRequest, defaults config.DefaultsConfig) (core.PacketData, error) {
	src, err := resolveAddr(req.SrcAddr, defaults.SrcAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid source address: %w", err)
	}
	dst, err := resolveAddr(req.DstAddr, defaults.DstAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid destination address: %w", err)
	}

	var t header.TransportHeader
	switch req.Protocol {
	case core.ProtocolTCP:
		h := header.NewTCPHeader(req.SrcPort, req.DstPort)
		h.SetFlag(req.Flags)
		window := uint16(defaults.Window)
		if req.Window != nil {
			window = *req.Window
		}
		h.SetWindow(window)
		t = h
	case core.ProtocolUDP:
		t = header.NewUDPHeader(req.SrcPort, req.DstPort)
	default:
		return nil, fmt.Errorf("%w: cannot build %s", core.ErrUnsupportedProto, req.Protocol)
	}

	if _, err := header.NewPseudoHeader(src, dst, t.Proto().Number(), t.Length(), req.PayloadLen); err != nil {
		return nil, err
	}

	if !req.WithIP {
		t.SetPseudoHeader(src, dst, req.PayloadLen)
		data := t.Make()
		metrics.HeadersBuiltTotal.WithLabelValues(t.Proto().String()).Inc()
		return data, nil
	}

	payload := req.Payload
	if payload == nil {
		payload = make([]byte, req.PayloadLen)
	}
	ip := header.NewIPv4Header(src, dst)
	ip.SetTTL(uint8(defaults.TTL))
	data, err := header.Encapsulate(ip, t, payload)
	if err != nil {
		return nil, err
	}
	metrics.HeadersBuiltTotal.WithLabelValues(t.Proto().String()).Inc()
	metrics.HeadersBuiltTotal.WithLabelValues(core.ProtocolIPv4.String()).Inc()
	return data, nil
}

func resolveAddr(addr, fallback string) ([4]byte, error) {
	if addr == "" {
		addr = fallback
	}
	return config.ParseIPv4(addr)
}

// decodeHex accepts plain hex or hex separated by spaces or colons.
func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
