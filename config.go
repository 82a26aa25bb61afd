package mosaic

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultChunkSize       = 64 * 1024
	defaultPollInterval    = 5 * time.Millisecond
	defaultMaxPollInterval = 1 * time.Second
	defaultPollTimeout     = 5 * time.Minute
)

// Config defines the configuration for a connector.
type Config struct {
	// Backend selects the connector: BackendLocal or BackendRemote.
	Backend string `json:"backend" mapstructure:"backend"`
	// Endpoint is the URL of the remote database service.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	// Token is sent as a bearer token to the remote service. It is opaque here.
	Token string `json:"token" mapstructure:"token"`
	// DSN is the data source name of the embedded engine. Defaults to an
	// in-memory database.
	DSN string `json:"dsn" mapstructure:"dsn"`
	// ChunkSize is the read size used when streaming remote results.
	ChunkSize int `json:"chunk_size" mapstructure:"chunk_size"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	// CacheSize is the number of query results a Coordinator keeps. Zero
	// disables caching.
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	// CacheTTL bounds how long a cached result stays valid.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
	// Poll bounds the start/poll lifecycle of remote statements.
	Poll PollOptions `json:"poll" mapstructure:"poll"`
}

// PollOptions bounds how a pending remote statement is polled.
//
// The delay between polls starts at Interval and doubles up to MaxInterval.
// Polling stops with a TimeoutError after MaxAttempts polls (zero means no
// attempt bound) or once Timeout has elapsed since the statement was started.
type PollOptions struct {
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	MaxInterval time.Duration `json:"max_interval" mapstructure:"max_interval"`
	MaxAttempts int           `json:"max_attempts" mapstructure:"max_attempts"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultPollOptions returns the poll bounds used when none are configured.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		Interval:    defaultPollInterval,
		MaxInterval: defaultMaxPollInterval,
		Timeout:     defaultPollTimeout,
	}
}

func (o PollOptions) withDefaults() PollOptions {
	d := DefaultPollOptions()
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.MaxInterval < o.Interval {
		o.MaxInterval = max(d.MaxInterval, o.Interval)
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxAttempts < 0 {
		o.MaxAttempts = 0
	}
	return o
}

// Validate fills defaults and checks the backend specific requirements.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	c.Poll = c.Poll.withDefaults()

	switch c.Backend {
	case BackendLocal:
		if c.DSN == "" {
			c.DSN = ":memory:"
		}
	case BackendRemote:
		if c.Endpoint == "" {
			return errors.New("remote backend requires an endpoint")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	return nil
}

// LoadConfig reads the configuration from the optional file at path and from
// MOSAIC_* environment variables. Environment variables take precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backend", BackendLocal)
	v.SetDefault("endpoint", "")
	v.SetDefault("token", "")
	v.SetDefault("dsn", ":memory:")
	v.SetDefault("chunk_size", defaultChunkSize)
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_size", 0)
	v.SetDefault("cache_ttl", time.Minute)
	v.SetDefault("poll.interval", defaultPollInterval)
	v.SetDefault("poll.max_interval", defaultMaxPollInterval)
	v.SetDefault("poll.max_attempts", 0)
	v.SetDefault("poll.timeout", defaultPollTimeout)

	v.SetEnvPrefix("MOSAIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
