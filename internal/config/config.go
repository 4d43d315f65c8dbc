package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "FORMFILL"

	DefaultTimeout        = 30 * time.Second
	DefaultMaxUploadBytes = 10 * 1024 * 1024 // 10MB
	DefaultLogLevel       = "info"
	DefaultOutputDir      = "."
)

// Keys are the viper keys; FORMFILL_<KEY> overrides each one.
const (
	KeyAPIURL         = "api_url"
	KeyTimeout        = "timeout"
	KeyMaxUploadBytes = "max_upload_bytes"
	KeyLogLevel       = "log_level"
	KeyOutputDir      = "output_dir"
	KeyStateTable     = "state_table"
	KeyOwner          = "owner"
	KeyParamPrefix    = "param_prefix"
)

// flagNames maps viper keys to their command line flags.
var flagNames = map[string]string{
	KeyAPIURL:         "api-url",
	KeyTimeout:        "timeout",
	KeyMaxUploadBytes: "max-upload-bytes",
	KeyLogLevel:       "log-level",
	KeyOutputDir:      "output-dir",
	KeyStateTable:     "state-table",
	KeyOwner:          "owner",
	KeyParamPrefix:    "param-prefix",
}

// Config holds the CLI configuration.
type Config struct {
	APIURL         string
	Timeout        time.Duration
	MaxUploadBytes int64
	LogLevel       string
	OutputDir      string

	// StateTable enables session bookmarks in DynamoDB when set.
	StateTable string
	Owner      string

	// ParamPrefix is the SSM path holding service_url and api_token. When set
	// it is always read: the token is used and service_url fills in an
	// empty APIURL. A failed read fails the command.
	ParamPrefix string
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		MaxUploadBytes: DefaultMaxUploadBytes,
		LogLevel:       DefaultLogLevel,
		OutputDir:      DefaultOutputDir,
		Owner:          os.Getenv("USER"),
	}
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	cfg := DefaultConfig()
	fs.String(flagNames[KeyAPIURL], "", "Base URL of the form service (env FORMFILL_API_URL)")
	fs.Duration(flagNames[KeyTimeout], cfg.Timeout, "Per-request timeout")
	fs.Int64(flagNames[KeyMaxUploadBytes], cfg.MaxUploadBytes, "Largest PDF accepted for upload, in bytes")
	fs.String(flagNames[KeyLogLevel], cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String(flagNames[KeyOutputDir], cfg.OutputDir, "Directory completed forms are saved to")
	fs.String(flagNames[KeyStateTable], "", "DynamoDB table for session bookmarks")
	fs.String(flagNames[KeyOwner], cfg.Owner, "Owner recorded on session bookmarks")
	fs.String(flagNames[KeyParamPrefix], "", "SSM parameter prefix holding service_url and api_token")
}

// Load resolves configuration from defaults, FORMFILL_* environment
// variables and flags, in increasing precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyAPIURL, cfg.APIURL)
	v.SetDefault(KeyTimeout, cfg.Timeout)
	v.SetDefault(KeyMaxUploadBytes, cfg.MaxUploadBytes)
	v.SetDefault(KeyLogLevel, cfg.LogLevel)
	v.SetDefault(KeyOutputDir, cfg.OutputDir)
	v.SetDefault(KeyStateTable, cfg.StateTable)
	v.SetDefault(KeyOwner, cfg.Owner)
	v.SetDefault(KeyParamPrefix, cfg.ParamPrefix)

	if fs != nil {
		for key, name := range flagNames {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg.APIURL = strings.TrimSpace(v.GetString(KeyAPIURL))
	cfg.Timeout = v.GetDuration(KeyTimeout)
	cfg.MaxUploadBytes = v.GetInt64(KeyMaxUploadBytes)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel)))
	cfg.OutputDir = v.GetString(KeyOutputDir)
	cfg.StateTable = strings.TrimSpace(v.GetString(KeyStateTable))
	cfg.Owner = strings.TrimSpace(v.GetString(KeyOwner))
	cfg.ParamPrefix = strings.TrimSpace(v.GetString(KeyParamPrefix))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIURL == "" && c.ParamPrefix == "" {
		return errors.New("api_url is required (or param_prefix to read it from SSM)")
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api_url %q must be an absolute http(s) URL", c.APIURL)
		}
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}
	if c.StateTable != "" && c.Owner == "" {
		return errors.New("owner is required when state_table is set")
	}
	return nil
}

// ParseLevel maps a log level name onto slog.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", level)
	}
}
