// Package config provides configuration management for assetpipe using
// Viper for flexible loading from files, environment variables and
// command-line flags.
//
// The configuration supports YAML files, environment variable overrides
// with the ASSETPIPE_ prefix and validation. It covers where sources are
// searched and bundles written, how builds are isolated and how the
// command-line tools log.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Isolation modes for the build step.
const (
	IsolationGoroutine = "goroutine"
	IsolationProcess   = "process"
)

// Defaults applied by Load when a key is not set.
const (
	DefaultCacheDir  = "public/minified"
	DefaultManifest  = "assets.yml"
	DefaultIsolation = IsolationProcess
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultSearchRoots are the source directories used when none are configured.
var DefaultSearchRoots = []string{"public"}

type Config struct {
	Assets AssetsConfig `yaml:"assets" mapstructure:"assets"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type AssetsConfig struct {
	CacheDir     string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	Minify       bool          `yaml:"minify" mapstructure:"minify"`
	SearchRoots  []string      `yaml:"search_roots" mapstructure:"search_roots"`
	Isolation    string        `yaml:"isolation" mapstructure:"isolation"`
	BuildTimeout time.Duration `yaml:"build_timeout" mapstructure:"build_timeout"`
	Manifest     string        `yaml:"manifest" mapstructure:"manifest"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads the configuration from the global viper instance, applies
// defaults and validates the result.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle search_roots set via viper (workaround for viper slice handling)
	if v.IsSet("assets.search_roots") && len(config.Assets.SearchRoots) == 0 {
		config.Assets.SearchRoots = v.GetStringSlice("assets.search_roots")
	}

	// Minification is on unless explicitly disabled
	if v.IsSet("assets.minify") {
		config.Assets.Minify = v.GetBool("assets.minify")
	} else {
		config.Assets.Minify = true
	}

	if config.Assets.CacheDir == "" {
		config.Assets.CacheDir = DefaultCacheDir
	}
	if len(config.Assets.SearchRoots) == 0 {
		config.Assets.SearchRoots = append([]string(nil), DefaultSearchRoots...)
	}
	if config.Assets.Isolation == "" {
		config.Assets.Isolation = DefaultIsolation
	}
	config.Assets.Isolation = strings.ToLower(strings.TrimSpace(config.Assets.Isolation))
	if config.Assets.Manifest == "" {
		config.Assets.Manifest = DefaultManifest
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateAssetsConfig(&config.Assets); err != nil {
		return fmt.Errorf("assets config: %w", err)
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	return nil
}

// validateAssetsConfig validates asset pipeline configuration values
func validateAssetsConfig(config *AssetsConfig) error {
	if err := validatePath(config.CacheDir); err != nil {
		return fmt.Errorf("invalid cache_dir '%s': %w", config.CacheDir, err)
	}

	for _, root := range config.SearchRoots {
		if err := validatePath(root); err != nil {
			return fmt.Errorf("invalid search root '%s': %w", root, err)
		}
	}

	switch config.Isolation {
	case IsolationGoroutine, IsolationProcess:
	default:
		return fmt.Errorf("isolation must be %q or %q, got %q", IsolationGoroutine, IsolationProcess, config.Isolation)
	}

	if config.BuildTimeout < 0 {
		return fmt.Errorf("build_timeout must not be negative: %s", config.BuildTimeout)
	}

	return nil
}

// validateLogConfig validates logging configuration values
func validateLogConfig(config *LogConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Level)
	}

	switch strings.ToLower(config.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}

	return nil
}

// validatePath validates a configured file path
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	// Clean the path
	cleanPath := filepath.Clean(path)

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
