package mailmerge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the merge engine
type Config struct {
	// CacheMaxSize is the maximum number of prepared templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cache_max_size"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// StrictMode rejects paragraphs with unbalanced placeholder braces while rendering
	StrictMode bool `yaml:"strict_mode"`
	// Workers is the number of rows rendered concurrently. 1 renders sequentially.
	Workers int `yaml:"workers"`
	// HeadersFooters extends scanning and rendering to header and footer parts
	HeadersFooters bool `yaml:"headers_footers"`
	// LineBreaks turns newlines in values into line breaks
	LineBreaks bool `yaml:"line_breaks"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   16,
		CacheTTL:       10 * time.Minute,
		LogLevel:       "info",
		StrictMode:     false,
		Workers:        1,
		HeadersFooters: true,
		LineBreaks:     true,
	}
}

// ConfigFromEnvironment creates a configuration from MAILMERGE_* environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("MAILMERGE_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("MAILMERGE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("MAILMERGE_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("MAILMERGE_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	if val := os.Getenv("MAILMERGE_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Workers = n
		}
	}

	if val := os.Getenv("MAILMERGE_HEADERS_FOOTERS"); val != "" {
		config.HeadersFooters = parseBool(val)
	}

	if val := os.Getenv("MAILMERGE_LINE_BREAKS"); val != "" {
		config.LineBreaks = parseBool(val)
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Keys missing from the file keep the
// values of base (DefaultConfig when base is nil); unknown keys are rejected.
func LoadConfigFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if base != nil {
		*config = *base
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.Workers == 0 {
		config.Workers = defaults.Workers
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	if _, ok := parseLogLevel(c.LogLevel); !ok {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration.
// It is initialized from the environment on first use.
func GetGlobalConfig() *Config {
	configOnce.Do(func() {
		globalConfigMutex.Lock()
		if globalConfig == nil {
			globalConfig = ConfigFromEnvironment()
		}
		globalConfigMutex.Unlock()
	})

	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration and updates the global logger level
func SetGlobalConfig(config *Config) {
	configOnce.Do(func() {})

	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
