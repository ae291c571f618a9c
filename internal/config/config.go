package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"otpentry/internal/clipboard"
	"otpentry/internal/logging"
	"otpentry/internal/otp"
	"otpentry/internal/security"
)

// Version is the current configuration schema version.
const Version = 1

// Config is the complete otpentry configuration.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	Field     FieldConfig     `toml:"field" json:"field" yaml:"field"`
	Clipboard ClipboardConfig `toml:"clipboard" json:"clipboard" yaml:"clipboard"`
	Logging   LoggingConfig   `toml:"logging" json:"logging" yaml:"logging"`
	Journal   JournalConfig   `toml:"journal" json:"journal" yaml:"journal"`
}

// FieldConfig configures the OTP field and its reconciler.
type FieldConfig struct {
	// Length is the number of cells.
	Length int `toml:"length" json:"length" yaml:"length"`

	// BurstGapMs is the largest gap between empty deliveries that marks an
	// autofill burst.
	BurstGapMs int `toml:"burst_gap_ms" json:"burst_gap_ms" yaml:"burst_gap_ms"`

	// AbandonDelayMs is how long a partial burst may stall.
	AbandonDelayMs int `toml:"abandon_delay_ms" json:"abandon_delay_ms" yaml:"abandon_delay_ms"`
}

// ClipboardConfig configures clipboard suggestions.
type ClipboardConfig struct {
	PromptBeforePaste      bool `toml:"prompt_before_paste" json:"prompt_before_paste" yaml:"prompt_before_paste"`
	AutoPasteWithoutPrompt bool `toml:"auto_paste_without_prompt" json:"auto_paste_without_prompt" yaml:"auto_paste_without_prompt"`

	// Source is auto, exec, klipper or none.
	Source string `toml:"source" json:"source" yaml:"source"`

	// PollIntervalMs enables background polling when positive.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	ReadTimeoutMs int `toml:"read_timeout_ms" json:"read_timeout_ms" yaml:"read_timeout_ms"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int64  `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// JournalConfig configures the episode journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		Version: Version,
		Field: FieldConfig{
			Length:         6,
			BurstGapMs:     int(otp.DefaultBurstGap / time.Millisecond),
			AbandonDelayMs: int(otp.DefaultAbandonDelay / time.Millisecond),
		},
		Clipboard: ClipboardConfig{
			PromptBeforePaste: true,
			Source:            clipboard.SourceAuto,
			ReadTimeoutMs:     int(clipboard.DefaultReadTimeout / time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(dir, "logs", "otpentry.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(dir, "journal.db"),
		},
	}
}

// Load reads configuration from path. A missing file yields defaults. The
// format follows the extension (.toml, .json, .yaml/.yml); anything else is
// auto-detected. Environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// autoDetectAndParse tries TOML, then JSON, then YAML. Each attempt decodes into
// a fresh default config so a partial failure cannot leak into the result.
func autoDetectAndParse(data []byte, cfg *Config) error {
	if try := DefaultConfig(); tomlDecode(data, try) == nil {
		*cfg = *try
		return nil
	}
	if try := DefaultConfig(); json.Unmarshal(data, try) == nil {
		*cfg = *try
		return nil
	}
	if try := DefaultConfig(); yaml.Unmarshal(data, try) == nil {
		*cfg = *try
		return nil
	}
	return fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

func tomlDecode(data []byte, cfg *Config) error {
	_, err := toml.Decode(string(data), cfg)
	return err
}

// ApplyEnvOverrides applies OTPENTRY_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("OTPENTRY_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Field.Length = n
		}
	}
	if v := os.Getenv("OTPENTRY_AUTO_PASTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Clipboard.AutoPasteWithoutPrompt = b
		}
	}
	if v := os.Getenv("OTPENTRY_CLIPBOARD_SOURCE"); v != "" {
		c.Clipboard.Source = v
	}
	if v := os.Getenv("OTPENTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OTPENTRY_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("OTPENTRY_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// BurstGap returns the burst detection window.
func (c *Config) BurstGap() time.Duration {
	return time.Duration(c.Field.BurstGapMs) * time.Millisecond
}

// AbandonDelay returns the burst abandonment debounce.
func (c *Config) AbandonDelay() time.Duration {
	return time.Duration(c.Field.AbandonDelayMs) * time.Millisecond
}

// PollInterval returns the clipboard polling interval; zero disables polling.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Clipboard.PollIntervalMs) * time.Millisecond
}

// ReadTimeout returns the clipboard read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Clipboard.ReadTimeoutMs) * time.Millisecond
}

// ClipboardMode returns the configured paste mode.
func (c *Config) ClipboardMode() clipboard.Mode {
	return clipboard.Mode{
		PromptBeforePaste:      c.Clipboard.PromptBeforePaste,
		AutoPasteWithoutPrompt: c.Clipboard.AutoPasteWithoutPrompt,
	}
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Logging.Output,
		FilePath:   c.Logging.FilePath,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
		Component:  "otpentry",
	}, nil
}

// SaveConfig writes cfg to path as TOML, replacing any existing file
// atomically.
func SaveConfig(cfg *Config, path string) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := security.WriteFileAtomic(path, data, security.PermSecretFile); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadOrCreate loads path, writing a default file first if none exists. The
// boolean reports whether the file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		return cfg, true, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}
