// Package config loads service configuration from an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/radiocaption/internal/relay"
)

// DefaultStreamURL is the France Info low bitrate AAC stream
const DefaultStreamURL = "http://icecast.radiofrance.fr/franceinfo-lofi.aac"

// Config represents the complete service configuration
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Relay   relay.Config  `yaml:"relay"`
	STT     STTConfig     `yaml:"stt"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Capture CaptureConfig `yaml:"capture"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// StreamConfig describes the live source and how it is decoded
type StreamConfig struct {
	URL        string `yaml:"url"`
	Language   string `yaml:"language"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// STTConfig selects and configures the streaming recognizer
type STTConfig struct {
	Provider string       `yaml:"provider"`
	Region   string       `yaml:"region"`
	Endpoint string       `yaml:"endpoint"`
	Yandex   YandexConfig `yaml:"yandex"`
}

// YandexConfig holds SpeechKit credentials
type YandexConfig struct {
	IamToken string `yaml:"iam_token"`
	FolderID string `yaml:"folder_id"`
	Endpoint string `yaml:"endpoint"`
}

// StorageConfig selects where sessions and transcripts are kept
type StorageConfig struct {
	Driver string      `yaml:"driver"`
	Mongo  MongoConfig `yaml:"mongo"`
}

// MongoConfig contains MongoDB connection settings
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	Port           int           `yaml:"port"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

// CaptureConfig drives the offline capture tool
type CaptureConfig struct {
	Duration time.Duration `yaml:"duration"`
	Output   string        `yaml:"output"`
}

// BatchConfig drives batch transcription of a local file
type BatchConfig struct {
	Input        string        `yaml:"input"`
	Output       string        `yaml:"output"`
	Region       string        `yaml:"region"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Supported values
const (
	ProviderAWS    = "aws"
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
	ProviderMock   = "mock"

	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			URL:        DefaultStreamURL,
			Language:   "fr-FR",
			SampleRate: 16000,
			Channels:   1,
			FFmpegPath: "ffmpeg",
		},
		Relay: relay.DefaultConfig(),
		STT: STTConfig{
			Provider: ProviderAWS,
			Region:   "eu-west-1",
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "radiocaption",
			},
		},
		HTTP: HTTPConfig{
			Enabled:        true,
			Address:        "0.0.0.0",
			Port:           8080,
			StatusInterval: 5 * time.Second,
		},
		Capture: CaptureConfig{
			Duration: 10 * time.Second,
			Output:   "test_audio.wav",
		},
		Batch: BatchConfig{
			Input:        "test_audio.wav",
			Output:       "transcription_result.json",
			Region:       "eu-west-1",
			PollInterval: 5 * time.Second,
			Timeout:      time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. path and envFile may be empty; a missing
// envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		// Existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("STREAM_URL", &c.Stream.URL)
	str("LANGUAGE_CODE", &c.Stream.Language)
	str("FFMPEG_PATH", &c.Stream.FFmpegPath)
	str("STT_PROVIDER", &c.STT.Provider)
	str("STT_ENDPOINT", &c.STT.Endpoint)
	str("YANDEX_IAM_TOKEN", &c.STT.Yandex.IamToken)
	str("YANDEX_FOLDER_ID", &c.STT.Yandex.FolderID)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("MONGODB_URI", &c.Storage.Mongo.URI)
	str("MONGODB_DATABASE", &c.Storage.Mongo.Database)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("AWS_REGION"); ok && v != "" {
		c.STT.Region = v
		c.Batch.Region = v
	}

	if v, ok := lookup("SAMPLE_RATE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SAMPLE_RATE must be an integer, got %q", v)
		}
		c.Stream.SampleRate = n
	}
	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT must be an integer, got %q", v)
		}
		c.HTTP.Port = n
	}

	// Setting a Mongo URI without a driver implies Mongo storage
	if _, ok := lookup("STORAGE_DRIVER"); !ok {
		if v, ok := lookup("MONGODB_URI"); ok && v != "" {
			c.Storage.Driver = StorageMongo
		}
	}

	return nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}
	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay config: %w", err)
	}
	if err := c.STT.Validate(); err != nil {
		return fmt.Errorf("stt config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates stream configuration
func (s *StreamConfig) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if s.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if s.SampleRate < 8000 || s.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", s.SampleRate)
	}
	if s.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", s.Channels)
	}
	if s.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}
	return nil
}

// Validate validates recognizer configuration
func (s *STTConfig) Validate() error {
	switch s.Provider {
	case ProviderAWS:
		if s.Region == "" {
			return fmt.Errorf("region is required for the aws provider")
		}
	case ProviderYandex:
		if s.Yandex.IamToken == "" || s.Yandex.FolderID == "" {
			return fmt.Errorf("yandex iam_token and folder_id are required for the yandex provider")
		}
	case ProviderGoogle, ProviderMock:
	default:
		return fmt.Errorf("provider must be one of aws, google, yandex, mock, got %q", s.Provider)
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case StorageMemory:
	case StorageMongo:
		if s.Mongo.URI == "" {
			return fmt.Errorf("mongo uri cannot be empty")
		}
		if s.Mongo.Database == "" {
			return fmt.Errorf("mongo database cannot be empty")
		}
	default:
		return fmt.Errorf("driver must be memory or mongo, got %q", s.Driver)
	}
	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}
		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
		if h.StatusInterval <= 0 {
			return fmt.Errorf("status_interval must be positive, got %s", h.StatusInterval)
		}
	}
	return nil
}

// ListenAddress returns host:port for the HTTP server
func (h *HTTPConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}

// Validate validates batch configuration
func (b *BatchConfig) Validate() error {
	if b.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if b.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", b.PollInterval)
	}
	if b.Timeout < b.PollInterval {
		return fmt.Errorf("timeout (%s) must be at least poll_interval (%s)", b.Timeout, b.PollInterval)
	}
	if b.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("format must be json or console, got %q", l.Format)
	}
	return nil
}
