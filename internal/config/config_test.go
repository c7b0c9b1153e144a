package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/header"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Log.Outputs.File.Enabled)
	assert.Equal(t, 100, cfg.Log.Outputs.File.Rotation.MaxSizeMB)
	assert.Equal(t, "127.0.0.1", cfg.Defaults.SrcAddr)
	assert.Equal(t, 64, cfg.Defaults.TTL)
	assert.Equal(t, 0xffff, cfg.Defaults.Window)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Metrics.Dump)
	assert.Empty(t, cfg.Templates)
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
pktcodec:
  log:
    level: "debug"
    format: "json"
    outputs:
      file:
        enabled: true
        path: "/tmp/pktcodec-test.log"
  defaults:
    src_addr: "10.0.0.1"
    dst_addr: "10.0.0.2"
    ttl: 32
    window: 1024
  output:
    format: "yaml"
  metrics:
    dump: true
  templates:
    - name: syn
      protocol: tcp
      src_port: 443
      dst_port: 51000
      flags: "syn"
    - name: synack
      protocol: tcp
      src_addr: "192.168.1.1"
      src_port: 80
      dst_port: 40000
      flags: [syn, ack]
      window: 0
    - name: dns
      protocol: udp
      src_port: 5353
      dst_port: 53
      payload_len: 32
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.Outputs.File.Enabled)
	assert.Equal(t, "/tmp/pktcodec-test.log", cfg.Log.Outputs.File.Path)
	assert.Equal(t, "10.0.0.1", cfg.Defaults.SrcAddr)
	assert.Equal(t, 32, cfg.Defaults.TTL)
	assert.Equal(t, 1024, cfg.Defaults.Window)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.True(t, cfg.Metrics.Dump)

	require.Len(t, cfg.Templates, 3)

	syn, ok := cfg.Template("syn")
	require.True(t, ok)
	assert.Equal(t, uint16(443), syn.SrcPort)
	assert.Equal(t, uint16(51000), syn.DstPort)
	assert.Equal(t, header.TCPFlagSyn, syn.Flags)
	assert.Nil(t, syn.Window)

	synack, ok := cfg.Template("synack")
	require.True(t, ok)
	assert.Equal(t, header.TCPFlagSyn|header.TCPFlagAck, synack.Flags)
	require.NotNil(t, synack.Window)
	assert.Equal(t, uint16(0), *synack.Window)
	assert.Equal(t, "192.168.1.1", synack.SrcAddr)

	dns, ok := cfg.Template("dns")
	require.True(t, ok)
	assert.Equal(t, "udp", dns.Protocol)
	assert.Equal(t, uint16(32), dns.PayloadLen)

	_, ok = cfg.Template("missing")
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PKTCODEC_LOG_LEVEL", "warn")
	t.Setenv("PKTCODEC_DEFAULTS_SRC_ADDR", "172.16.0.1")

	cfg, err := Load(writeConfig(t, `
pktcodec:
  log:
    level: "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "172.16.0.1", cfg.Defaults.SrcAddr)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "log level",
			content: "pktcodec:\n  log:\n    level: \"invalid\"\n",
			errMsg:  "log level invalid",
		},
		{
			name:    "log format",
			content: "pktcodec:\n  log:\n    format: \"xml\"\n",
			errMsg:  "log format xml",
		},
		{
			name:    "src addr",
			content: "pktcodec:\n  defaults:\n    src_addr: \"::1\"\n",
			errMsg:  "defaults.src_addr",
		},
		{
			name:    "ttl",
			content: "pktcodec:\n  defaults:\n    ttl: 0\n",
			errMsg:  "defaults.ttl 0",
		},
		{
			name:    "window",
			content: "pktcodec:\n  defaults:\n    window: 70000\n",
			errMsg:  "defaults.window 70000",
		},
		{
			name:    "output format",
			content: "pktcodec:\n  output:\n    format: \"xml\"\n",
			errMsg:  "output format xml",
		},
		{
			name:    "template protocol",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: icmp\n",
			errMsg:  "unsupported protocol",
		},
		{
			name:    "template ipv4",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: ipv4\n",
			errMsg:  "must be tcp or udp",
		},
		{
			name:    "template name",
			content: "pktcodec:\n  templates:\n    - protocol: tcp\n",
			errMsg:  "name is required",
		},
		{
			name:    "template duplicate",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: tcp\n    - name: a\n      protocol: udp\n",
			errMsg:  "duplicate template",
		},
		{
			name:    "udp flags",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: udp\n      flags: syn\n",
			errMsg:  "only apply to tcp",
		},
		{
			name:    "unknown flag",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: tcp\n      flags: [syn, ece]\n",
			errMsg:  "unknown tcp flag",
		},
		{
			name:    "unknown key",
			content: "pktcodec:\n  templates:\n    - name: a\n      protocol: tcp\n      seq: 1\n",
			errMsg:  "seq",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseIPv4(t *testing.T) {
	addr, err := ParseIPv4("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 1}, addr)

	_, err = ParseIPv4("fe80::1")
	assert.Error(t, err)

	_, err = ParseIPv4("not-an-ip")
	assert.Error(t, err)
}
