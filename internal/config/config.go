package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full murmur configuration: a YAML file, overridden by MURMUR_* env vars
type Config struct {
	DataDir       string `yaml:"data_dir" env:"MURMUR_DATA_DIR"`
	DatabasePath  string `yaml:"database_path" env:"MURMUR_DATABASE_PATH"`
	RecordingsDir string `yaml:"recordings_dir" env:"MURMUR_RECORDINGS_DIR"`

	Capture    CaptureConfig    `yaml:"capture" env-prefix:"MURMUR_CAPTURE_"`
	Enrichment EnrichmentConfig `yaml:"enrichment" env-prefix:"MURMUR_ENRICHMENT_"`
	Whisper    WhisperConfig    `yaml:"whisper" env-prefix:"MURMUR_WHISPER_"`
	OpenAI     OpenAIConfig     `yaml:"openai" env-prefix:"MURMUR_OPENAI_"`
	Log        LogConfig        `yaml:"log" env-prefix:"MURMUR_LOG_"`
	Server     ServerConfig     `yaml:"server" env-prefix:"MURMUR_SERVER_"`
}

type CaptureConfig struct {
	MinFreeBytes uint64 `yaml:"min_free_bytes" env:"MIN_FREE_BYTES" env-default:"10485760"`
	// Device is a PortAudio index from `murmur devices`; -1 is the system default
	Device       int    `yaml:"device" env:"DEVICE" env-default:"-1"`
	SampleRate   int    `yaml:"sample_rate" env:"SAMPLE_RATE" env-default:"44100"`
}

type EnrichmentConfig struct {
	Workers     int           `yaml:"workers" env:"WORKERS" env-default:"2"`
	QueueSize   int           `yaml:"queue_size" env:"QUEUE_SIZE" env-default:"32"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"2m"`
	Transcriber string        `yaml:"transcriber" env:"TRANSCRIBER" env-default:"whisper"`
	Summarizer  string        `yaml:"summarizer" env:"SUMMARIZER" env-default:"extractive"`
}

type WhisperConfig struct {
	Path  string `yaml:"path" env:"PATH" env-default:"whisper-cli"`
	Model string `yaml:"model" env:"MODEL"`
}

type OpenAIConfig struct {
	BaseURL            string `yaml:"base_url" env:"BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey             string `yaml:"api_key" env:"API_KEY"`
	Model              string `yaml:"model" env:"MODEL" env-default:"gpt-4o-mini"`
	TranscriptionModel string `yaml:"transcription_model" env:"TRANSCRIPTION_MODEL" env-default:"whisper-1"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL" env-default:"info"`
	JSON  bool   `yaml:"json" env:"JSON"`
	File  string `yaml:"file" env:"FILE"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR" env-default:"127.0.0.1:8765"`
}

const (
	TranscriberWhisper = "whisper"
	TranscriberOpenAI  = "openai"
	TranscriberNone    = "none"

	SummarizerExtractive = "extractive"
	SummarizerOpenAI     = "openai"
)

// DefaultDataDir returns ~/.murmur
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".murmur"), nil
}

// DefaultPath returns the config file location used when --config is not given
func DefaultPath() string {
	if dir := os.Getenv("MURMUR_DATA_DIR"); dir != "" {
		return filepath.Join(expandHome(dir), "config.yaml")
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads path if it exists, then applies env overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			path = ""
		default:
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths() error {
	if c.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	c.DataDir = expandHome(c.DataDir)

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "murmur.db")
	}
	if c.RecordingsDir == "" {
		c.RecordingsDir = filepath.Join(c.DataDir, "recordings")
	}
	c.DatabasePath = expandHome(c.DatabasePath)
	c.RecordingsDir = expandHome(c.RecordingsDir)
	c.Log.File = expandHome(c.Log.File)
	return nil
}

func (c *Config) validate() error {
	switch c.Enrichment.Transcriber {
	case TranscriberWhisper, TranscriberOpenAI, TranscriberNone:
	default:
		return fmt.Errorf("config: unknown enrichment.transcriber %q", c.Enrichment.Transcriber)
	}
	switch c.Enrichment.Summarizer {
	case SummarizerExtractive, SummarizerOpenAI:
	default:
		return fmt.Errorf("config: unknown enrichment.summarizer %q", c.Enrichment.Summarizer)
	}
	if c.Enrichment.Workers < 1 {
		return errors.New("config: enrichment.workers must be at least 1")
	}
	if c.Enrichment.QueueSize < 1 {
		return errors.New("config: enrichment.queue_size must be at least 1")
	}
	if c.Capture.Device < -1 {
		return errors.New("config: capture.device must be -1 (default) or a device index")
	}
	if c.Capture.SampleRate <= 0 {
		return errors.New("config: capture.sample_rate must be positive")
	}
	if c.usesOpenAI() && c.OpenAI.APIKey == "" {
		return errors.New("config: openai.api_key is required (set in config.yaml or MURMUR_OPENAI_API_KEY)")
	}
	return nil
}

func (c *Config) usesOpenAI() bool {
	return c.Enrichment.Transcriber == TranscriberOpenAI || c.Enrichment.Summarizer == SummarizerOpenAI
}

// LogPath is where TUI commands send logs
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "murmur.log")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
