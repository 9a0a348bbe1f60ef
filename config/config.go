// Package config loads dciauth service and client settings from YAML or
// TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/dciauth/dcisig"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Defaults.
const (
	DefaultListen       = ":8080"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultExpiryWindow = "24h"
	DefaultKeyCacheSize = 1024
	DefaultRetryMax     = 3
)

// Signing selects the algorithm and credential scope used by clients.
type Signing struct {
	Algorithm   string `yaml:"algorithm" toml:"algorithm"`
	Region      string `yaml:"region" toml:"region"`
	Service     string `yaml:"service" toml:"service"`
	RequestType string `yaml:"request_type" toml:"request_type"`
}

// Client holds the settings of the signing HTTP client.
type Client struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	RetryMax  int    `yaml:"retry_max" toml:"retry_max"`
	Timeout   string `yaml:"timeout" toml:"timeout"`
}

// Config is the full file layout.
type Config struct {
	Listen       string  `yaml:"listen" toml:"listen"`
	LogLevel     string  `yaml:"log_level" toml:"log_level"`
	LogFormat    string  `yaml:"log_format" toml:"log_format"`
	KeysFile     string  `yaml:"keys_file" toml:"keys_file"`
	ExpiryWindow string  `yaml:"expiry_window" toml:"expiry_window"`
	KeyCacheSize int     `yaml:"key_cache_size" toml:"key_cache_size"`
	Signing      Signing `yaml:"signing" toml:"signing"`
	Client       Client  `yaml:"client" toml:"client"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		Listen:       DefaultListen,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		ExpiryWindow: DefaultExpiryWindow,
		KeyCacheSize: DefaultKeyCacheSize,
		Signing: Signing{
			Algorithm: string(dcisig.AlgorithmDCI2),
			Region:    dcisig.DefaultRegion,
			Service:   dcisig.DefaultService,
		},
		Client: Client{
			RetryMax: DefaultRetryMax,
		},
	}
}

// Load reads path over Default and validates the result. The format is
// chosen by extension: .yaml or .yml for YAML, .toml for TOML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config: %s: unknown keys %v", path, undecoded)
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported file extension %q", ErrInvalid, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen must not be empty", ErrInvalid)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}

	if w, err := time.ParseDuration(c.ExpiryWindow); err != nil || w <= 0 {
		return fmt.Errorf("%w: expiry_window %q", ErrInvalid, c.ExpiryWindow)
	}

	if c.KeyCacheSize < 0 {
		return fmt.Errorf("%w: key_cache_size must not be negative", ErrInvalid)
	}

	if alg := dcisig.Algorithm(c.Signing.Algorithm); c.Signing.Algorithm != "" && !alg.Valid() {
		return fmt.Errorf("%w: signing.algorithm %q", ErrInvalid, c.Signing.Algorithm)
	}

	if c.Client.AccessKey != "" {
		if _, _, err := dcisig.ParseAccessKey(c.Client.AccessKey); err != nil {
			return fmt.Errorf("%w: client.access_key: %v", ErrInvalid, err)
		}
	}

	if c.Client.RetryMax < 0 {
		return fmt.Errorf("%w: client.retry_max must not be negative", ErrInvalid)
	}

	if c.Client.Timeout != "" {
		if _, err := time.ParseDuration(c.Client.Timeout); err != nil {
			return fmt.Errorf("%w: client.timeout %q", ErrInvalid, c.Client.Timeout)
		}
	}

	return nil
}

// Window returns the parsed expiry window.
func (c Config) Window() time.Duration {
	w, err := time.ParseDuration(c.ExpiryWindow)
	if err != nil || w <= 0 {
		return dcisig.DefaultExpiryWindow
	}

	return w
}

// ClientTimeout returns the parsed client timeout, zero when unset.
func (c Config) ClientTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Client.Timeout)
	return d
}

// Credential builds the client credential. It is empty when no access key
// is configured.
func (c Config) Credential() (dcisig.Credential, error) {
	if c.Client.AccessKey == "" {
		return dcisig.Credential{}, nil
	}

	return dcisig.NewCredential(c.Client.AccessKey, []byte(c.Client.SecretKey))
}

// Logger builds a logrus logger from LogLevel and LogFormat.
func (c Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
