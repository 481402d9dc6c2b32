package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"

	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"

	appName = "correct-tray"
)

// Environment overrides, also read from a .env file.
const (
	EnvAPIURL     = "CORRECT_API_URL"
	EnvLogLevel   = "CORRECT_LOG_LEVEL"
	EnvArchiveDir = "CORRECT_ARCHIVE_DIR"
)

type Config struct {
	Hotkey       string          `json:"hotkey" yaml:"hotkey" toml:"hotkey"`
	HotkeyDarwin string          `json:"hotkey_darwin" yaml:"hotkey_darwin" toml:"hotkey_darwin"`
	Mode         string          `json:"mode" yaml:"mode" toml:"mode"` // "PushToTalk" or "Toggle"
	LogLevel     string          `json:"log_level" yaml:"log_level" toml:"log_level"`
	Audio        AudioConfig     `json:"audio" yaml:"audio" toml:"audio"`
	Recording    RecordingConfig `json:"recording" yaml:"recording" toml:"recording"`
	API          APIConfig       `json:"api" yaml:"api" toml:"api"`
	Archive      ArchiveConfig   `json:"archive" yaml:"archive" toml:"archive"`
	Inject       InjectConfig    `json:"inject" yaml:"inject" toml:"inject"`
	Notify       bool            `json:"notify" yaml:"notify" toml:"notify"`

	path string
}

type AudioConfig struct {
	Backend          string `json:"backend" yaml:"backend" toml:"backend"` // "portaudio" or "malgo"
	DeviceID         string `json:"device_id" yaml:"device_id" toml:"device_id"`
	SampleRates      []int  `json:"sample_rates" yaml:"sample_rates" toml:"sample_rates"`
	BufferMultiplier int    `json:"buffer_multiplier" yaml:"buffer_multiplier" toml:"buffer_multiplier"`
	VolumeLogEvery   int    `json:"volume_log_every" yaml:"volume_log_every" toml:"volume_log_every"`
}

type RecordingConfig struct {
	MaxDurationMs  int64 `json:"max_duration_ms" yaml:"max_duration_ms" toml:"max_duration_ms"`
	TickIntervalMs int64 `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
}

// MaxDuration is the recording ceiling.
func (r RecordingConfig) MaxDuration() time.Duration {
	return time.Duration(r.MaxDurationMs) * time.Millisecond
}

// TickInterval is the countdown granularity.
func (r RecordingConfig) TickInterval() time.Duration {
	return time.Duration(r.TickIntervalMs) * time.Millisecond
}

type APIConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	HTTP2          bool   `json:"http2" yaml:"http2" toml:"http2"`
}

// Timeout bounds one correction request.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type ArchiveConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Dir     string `json:"dir" yaml:"dir" toml:"dir"`
}

type InjectConfig struct {
	CopyToClipboard bool `json:"copy_to_clipboard" yaml:"copy_to_clipboard" toml:"copy_to_clipboard"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Hotkey:       "Alt+Space",
		HotkeyDarwin: "Alt+Space", // Option+Space
		Mode:         ModeToggle,
		LogLevel:     "info",
		Audio: AudioConfig{
			Backend:          BackendPortAudio,
			DeviceID:         "",
			SampleRates:      []int{44100, 22050, 11025, 16000},
			BufferMultiplier: 2,
			VolumeLogEvery:   10,
		},
		Recording: RecordingConfig{
			MaxDurationMs:  60000,
			TickIntervalMs: 1000,
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8080/api/v1/",
			TimeoutSeconds: 30,
			HTTP2:          false,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     MusicPath(),
		},
		Inject: InjectConfig{
			CopyToClipboard: true,
		},
		Notify: true,
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.path = path

	loadDotEnv(filepath.Dir(path))
	cfg.applyEnv()

	return cfg, cfg.Validate()
}

// LoadFile reads a JSON, YAML or TOML config on top of the defaults. The
// format is chosen by file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.path = path

	return cfg, nil
}

// LoadWithOverrides loads an explicit file (or the platform default when
// path is empty) and applies .env and environment overrides.
func LoadWithOverrides(path string) (*Config, error) {
	if path == "" {
		return Load()
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	loadDotEnv(filepath.Dir(path))
	cfg.applyEnv()

	return cfg, cfg.Validate()
}

// Save writes the config to disk as JSON
func (c *Config) Save() error {
	path := c.path
	if path == "" || filepath.Ext(path) != ".json" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the config for values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModePushToTalk, ModeToggle:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	switch c.Audio.Backend {
	case "", BackendPortAudio, BackendMalgo:
	default:
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Audio.Backend))
	}

	for _, rate := range c.Audio.SampleRates {
		if rate <= 0 {
			errs = append(errs, fmt.Errorf("invalid sample rate %d", rate))
		}
	}

	if c.Recording.MaxDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("max_duration_ms must be positive"))
	}
	if c.Recording.TickIntervalMs <= 0 || c.Recording.TickIntervalMs > c.Recording.MaxDurationMs {
		errs = append(errs, fmt.Errorf("tick_interval_ms must be in 1..max_duration_ms"))
	}

	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	}

	return errors.Join(errs...)
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvArchiveDir); v != "" {
		c.Archive.Dir = v
	}
}

// loadDotEnv loads .env from the working directory and dir. Existing
// environment variables win.
func loadDotEnv(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.json")
}

// MusicPath returns the platform-specific directory for saved recordings
func MusicPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin", "windows":
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, "Music")
	default:
		if xdg := os.Getenv("XDG_MUSIC_DIR"); xdg != "" {
			base = xdg
		} else {
			base = filepath.Join(os.Getenv("HOME"), "Music")
		}
	}

	return filepath.Join(base, appName)
}
