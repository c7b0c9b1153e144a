// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pktcodec/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pktcodec:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig        `mapstructure:"log"`
	Defaults  DefaultsConfig   `mapstructure:"defaults"`
	Output    OutputConfig     `mapstructure:"output"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Templates []TemplateConfig `mapstructure:"-"` // decoded by decodeTemplates
}

// ─── Header Defaults ───

// DefaultsConfig holds values used when a build flag is not given.
type DefaultsConfig struct {
	SrcAddr string `mapstructure:"src_addr"`
	DstAddr string `mapstructure:"dst_addr"`
	TTL     int    `mapstructure:"ttl"`
	Window  int    `mapstructure:"window"`
}

// ─── Output ───

// OutputConfig controls how parsed headers are printed.
type OutputConfig struct {
	Format string `mapstructure:"format"` // json / yaml
}

// ─── Metrics ───

// MetricsConfig controls the metrics dump printed after a command.
type MetricsConfig struct {
	Dump bool `mapstructure:"dump"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format"`  // text / json
	Pattern string           `mapstructure:"pattern"` // text format only
	Time    string           `mapstructure:"time"`
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // MB
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktcodec: ...`.
type configRoot struct {
	PktCodec GlobalConfig `mapstructure:"pktcodec"`
}

// Load loads configuration from file. An empty path yields the defaults.
// Env vars override file values: key "pktcodec.log.level" maps to PKTCODEC_LOG_LEVEL.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PktCodec

	templates, err := decodeTemplates(v.Get("pktcodec.templates"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	cfg.Templates = templates

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "pktcodec." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktcodec.log.level", "info")
	v.SetDefault("pktcodec.log.format", "text")
	v.SetDefault("pktcodec.log.pattern", "%time [%level] %caller: %msg %field\n")
	v.SetDefault("pktcodec.log.time", "2006-01-02 15:04:05")
	v.SetDefault("pktcodec.log.outputs.file.enabled", false)
	v.SetDefault("pktcodec.log.outputs.file.path", "/var/log/pktcodec/pktcodec.log")
	v.SetDefault("pktcodec.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktcodec.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktcodec.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktcodec.log.outputs.file.rotation.compress", true)

	// Header defaults
	v.SetDefault("pktcodec.defaults.src_addr", "127.0.0.1")
	v.SetDefault("pktcodec.defaults.dst_addr", "127.0.0.1")
	v.SetDefault("pktcodec.defaults.ttl", 64)
	v.SetDefault("pktcodec.defaults.window", 0xffff)

	// Output defaults
	v.SetDefault("pktcodec.output.format", "json")

	// Metrics defaults
	v.SetDefault("pktcodec.metrics.dump", false)
}

// ValidateAndApplyDefaults validates configuration.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Defaults validation ──
	if _, err := ParseIPv4(cfg.Defaults.SrcAddr); err != nil {
		return fmt.Errorf("%w: defaults.src_addr: %v", core.ErrConfigInvalid, err)
	}
	if _, err := ParseIPv4(cfg.Defaults.DstAddr); err != nil {
		return fmt.Errorf("%w: defaults.dst_addr: %v", core.ErrConfigInvalid, err)
	}
	if cfg.Defaults.TTL < 1 || cfg.Defaults.TTL > 255 {
		return fmt.Errorf("%w: defaults.ttl %d (must be 1-255)", core.ErrConfigInvalid, cfg.Defaults.TTL)
	}
	if cfg.Defaults.Window < 0 || cfg.Defaults.Window > 0xffff {
		return fmt.Errorf("%w: defaults.window %d (must be 0-65535)", core.ErrConfigInvalid, cfg.Defaults.Window)
	}

	// ── Output validation ──
	if cfg.Output.Format != "json" && cfg.Output.Format != "yaml" {
		return fmt.Errorf("%w: output format %s (must be json/yaml)", core.ErrConfigInvalid, cfg.Output.Format)
	}

	// ── Template validation ──
	seen := make(map[string]bool, len(cfg.Templates))
	for i := range cfg.Templates {
		if err := cfg.Templates[i].validate(); err != nil {
			return fmt.Errorf("%w: templates[%d]: %v", core.ErrConfigInvalid, i, err)
		}
		if seen[cfg.Templates[i].Name] {
			return fmt.Errorf("%w: duplicate template %q", core.ErrConfigInvalid, cfg.Templates[i].Name)
		}
		seen[cfg.Templates[i].Name] = true
	}

	return nil
}

// Template returns the template with the given name.
func (cfg *GlobalConfig) Template(name string) (TemplateConfig, bool) {
	for _, t := range cfg.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return TemplateConfig{}, false
}

// ParseIPv4 parses a dotted-quad IPv4 address.
func ParseIPv4(s string) ([4]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return [4]byte{}, err
	}
	if !addr.Is4() {
		return [4]byte{}, fmt.Errorf("%s is not an IPv4 address", s)
	}
	return addr.As4(), nil
}
