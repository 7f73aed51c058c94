// Package config provides configuration loading and validation from environment
// variables and the masking rules file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Defaults applied by Load.
const (
	DefaultLogLevel           = "info"
	DefaultListenAddr         = ":8080"
	DefaultAdminListenAddr    = "localhost:8081"
	DefaultMetricsListenAddr  = "localhost:9090"
	DefaultDatabasePath       = "/data/masker.db"
	DefaultMaskChar           = "*"
	DefaultMaxLoggedBodyBytes = 1 << 20
	DefaultRedisChannel       = "payload_masker_rules"
	DefaultRedisRulesKey      = "payload_masker_rules"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string // debug, info, warn, error
	ListenAddr        string // Public proxy listener (e.g., ":8080")
	AdminListenAddr   string // Admin API listener
	MetricsListenAddr string // Metrics listener
	DatabasePath      string // SQLite database path
	UpstreamURL       string // Required: backend the proxy forwards to
	RulesFile         string // Optional YAML rules file

	MaskingEnabled      bool // false logs bodies as received
	MaskRequestEnabled  bool // log request records
	MaskResponseEnabled bool // log response records
	MaskForwardedBodies bool // also rewrite forwarded JSON bodies
	DefaultMaskChar     string
	MaxLoggedBodyBytes  int

	AdminToken string // empty disables the admin API

	RedisAddr     string // empty disables the remote rules watcher
	RedisChannel  string
	RedisRulesKey string
}

// Load parses configuration from environment variables.
// All configuration options except UPSTREAM_URL have defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          getenv("LOG_LEVEL", DefaultLogLevel),
		ListenAddr:        getenv("LISTEN_ADDR", DefaultListenAddr),
		AdminListenAddr:   getenv("ADMIN_LISTEN_ADDR", DefaultAdminListenAddr),
		MetricsListenAddr: getenv("METRICS_LISTEN_ADDR", DefaultMetricsListenAddr),
		DatabasePath:      getenv("DATABASE_PATH", DefaultDatabasePath),
		UpstreamURL:       os.Getenv("UPSTREAM_URL"),
		RulesFile:         os.Getenv("RULES_FILE"),
		DefaultMaskChar:   getenv("DEFAULT_MASK_CHAR", DefaultMaskChar),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisChannel:      getenv("REDIS_CHANNEL", DefaultRedisChannel),
		RedisRulesKey:     getenv("REDIS_RULES_KEY", DefaultRedisRulesKey),
	}

	var errs []error
	boolVar := func(name string, def bool, dst *bool) {
		v, err := getbool(name, def)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = v
	}
	boolVar("MASKING_ENABLED", true, &cfg.MaskingEnabled)
	boolVar("MASK_REQUEST_ENABLED", true, &cfg.MaskRequestEnabled)
	boolVar("MASK_RESPONSE_ENABLED", true, &cfg.MaskResponseEnabled)
	boolVar("MASK_FORWARDED_BODIES", false, &cfg.MaskForwardedBodies)

	maxBody, err := getint("MAX_LOGGED_BODY_BYTES", DefaultMaxLoggedBodyBytes)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxLoggedBodyBytes = maxBody

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if c.UpstreamURL == "" {
		return NewValidationError("env", "UPSTREAM_URL", "", ErrMissingRequiredField)
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("env", "UPSTREAM_URL", "",
			fmt.Errorf("%w: must be an absolute http(s) URL, got %q", ErrInvalidValue, c.UpstreamURL))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return NewValidationError("env", "LOG_LEVEL", "", err)
	}
	if utf8.RuneCountInString(c.DefaultMaskChar) != 1 {
		return NewValidationError("env", "DEFAULT_MASK_CHAR", "",
			fmt.Errorf("%w: must be a single character, got %q", ErrInvalidValue, c.DefaultMaskChar))
	}
	if c.MaxLoggedBodyBytes < 0 {
		return NewValidationError("env", "MAX_LOGGED_BODY_BYTES", "",
			fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	return nil
}

// MaskChar returns DefaultMaskChar as a rune. Call after Validate.
func (c *Config) MaskChar() rune {
	r, _ := utf8.DecodeRuneInString(c.DefaultMaskChar)
	return r
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q (want debug, info, warn, error)", ErrInvalidValue, level)
	}
}

func getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getbool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, NewValidationError("env", name, "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v))
	}
	return b, nil
}

func getint(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, NewValidationError("env", name, "", fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v))
	}
	return n, nil
}
