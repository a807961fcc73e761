package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Audio      AudioConfig      `yaml:"audio"`
	Capture    CaptureConfig    `yaml:"capture"`
	Visualizer VisualizerConfig `yaml:"visualizer"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BackendConfig contains the RAG backend connection settings
type BackendConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// AudioConfig contains capture-side audio parameters
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	FrameSize  int `yaml:"frame_size"` // samples per hardware frame
}

// CaptureConfig contains microphone constraint settings and codec preference
type CaptureConfig struct {
	EchoCancellation bool     `yaml:"echo_cancellation"`
	NoiseSuppression bool     `yaml:"noise_suppression"`
	AutoGainControl  bool     `yaml:"auto_gain_control"`
	CodecPreference  []string `yaml:"codec_preference"`
}

// VisualizerConfig contains the live frequency display settings
type VisualizerConfig struct {
	Enabled    bool `yaml:"enabled"`
	Bands      int  `yaml:"bands"`
	RefreshHz  int  `yaml:"refresh_hz"`
	WindowSize int  `yaml:"window_size"` // samples per analysis window
}

// MonitorConfig contains the local monitoring HTTP server configuration
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. The BACKEND_URL environment
// variable, when set, overrides the configured backend URL.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if url := os.Getenv("BACKEND_URL"); url != "" {
		config.Backend.URL = url
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Visualizer.Validate(); err != nil {
		return fmt.Errorf("visualizer config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	if b.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	if !strings.HasPrefix(b.URL, "http://") && !strings.HasPrefix(b.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://, got '%s'", b.URL)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	validRates := map[int]bool{8000: true, 16000: true, 44100: true, 48000: true}
	if !validRates[a.SampleRate] {
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 44100, 48000], got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.FrameSize < 64 || a.FrameSize > 8192 {
		return fmt.Errorf("frame_size must be between 64 and 8192 samples, got %d", a.FrameSize)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if len(c.CodecPreference) == 0 {
		return fmt.Errorf("codec_preference cannot be empty")
	}

	for _, codec := range c.CodecPreference {
		if codec == "" {
			return fmt.Errorf("codec_preference entries cannot be empty")
		}
	}

	return nil
}

// Validate validates visualizer configuration
func (v *VisualizerConfig) Validate() error {
	if !v.Enabled {
		return nil
	}

	if v.Bands < 4 || v.Bands > 64 {
		return fmt.Errorf("bands must be between 4 and 64, got %d", v.Bands)
	}

	if v.RefreshHz < 1 || v.RefreshHz > 120 {
		return fmt.Errorf("refresh_hz must be between 1 and 120, got %d", v.RefreshHz)
	}

	if v.WindowSize < 256 || v.WindowSize > 8192 {
		return fmt.Errorf("window_size must be between 256 and 8192 samples, got %d", v.WindowSize)
	}

	return nil
}

// Validate validates monitor configuration
func (m *MonitorConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", m.Port)
		}

		if m.Address == "" {
			return fmt.Errorf("address cannot be empty when monitor is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetRefreshInterval returns the visualizer redraw period as a time.Duration
func (v *VisualizerConfig) GetRefreshInterval() time.Duration {
	if v.RefreshHz <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(v.RefreshHz)
}
