package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
)

// TemplateConfig is a named transport header preset for `build template`.
// Empty addresses fall back to DefaultsConfig.
type TemplateConfig struct {
	Name       string         `mapstructure:"name"`
	Protocol   string         `mapstructure:"protocol"` // tcp / udp
	SrcAddr    string         `mapstructure:"src_addr"`
	DstAddr    string         `mapstructure:"dst_addr"`
	SrcPort    uint16         `mapstructure:"src_port"`
	DstPort    uint16         `mapstructure:"dst_port"`
	Flags      header.TCPFlag `mapstructure:"flags"` // "syn,ack" or [syn, ack]
	Window     *uint16        `mapstructure:"window"`
	PayloadLen uint16         `mapstructure:"payload_len"`
}

func (t *TemplateConfig) validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	p, err := core.ParseProtocol(t.Protocol)
	if err != nil {
		return err
	}
	if p != core.ProtocolTCP && p != core.ProtocolUDP {
		return fmt.Errorf("%w: template protocol must be tcp or udp", core.ErrUnsupportedProto)
	}
	if p == core.ProtocolUDP && (t.Flags != 0 || t.Window != nil) {
		return fmt.Errorf("flags and window only apply to tcp")
	}
	for _, addr := range []string{t.SrcAddr, t.DstAddr} {
		if addr == "" {
			continue
		}
		if _, err := ParseIPv4(addr); err != nil {
			return err
		}
	}
	return nil
}

var tcpFlagType = reflect.TypeOf(header.TCPFlag(0))

// tcpFlagsHook turns a flag list or comma-separated string into a TCPFlag.
func tcpFlagsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != tcpFlagType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return header.ParseTCPFlags(v)
	case []interface{}:
		var flags header.TCPFlag
		for _, item := range v {
			f, err := header.ParseTCPFlags(fmt.Sprint(item))
			if err != nil {
				return nil, err
			}
			flags |= f
		}
		return flags, nil
	default:
		return data, nil
	}
}

// decodeTemplates decodes the raw `templates` list read by viper.
func decodeTemplates(raw interface{}) ([]TemplateConfig, error) {
	if raw == nil {
		return nil, nil
	}
	var templates []TemplateConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       tcpFlagsHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &templates,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return templates, nil
}
