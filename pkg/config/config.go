// Package config loads repodiff settings from a YAML file and REPODIFF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drengskapur/repodiff/pkg/ignore"
	"github.com/drengskapur/repodiff/pkg/scan"
	"github.com/spf13/viper"
)

const (
	AppName    = "repodiff"
	EnvPrefix  = "REPODIFF"
	ConfigName = "config"
)

// Config holds all configuration options.
type Config struct {
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"` // Rotated JSON log, in addition to stderr.

	StorePath string `mapstructure:"store_path"` // Empty selects store.DefaultPath.

	MaxFileSize      int64 `mapstructure:"max_file_size"` // In bytes.
	ReadConcurrency  int   `mapstructure:"read_concurrency"`
	RespectGitignore bool  `mapstructure:"respect_gitignore"`

	Ignore ignore.Overrides `mapstructure:"ignore"`
}

// Options controls where Load looks.
type Options struct {
	File string   // Explicit config file; must exist when set.
	Dirs []string // Search path; nil selects DefaultDirs.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxFileSize:      scan.DefaultMaxFileSize,
		ReadConcurrency:  scan.DefaultConcurrency,
		RespectGitignore: true,
	}
}

// DefaultDirs returns the user config directory for repodiff followed by
// the working directory.
func DefaultDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, AppName))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", AppName))
	}
	return append(dirs, ".")
}

// Load merges defaults, the config file and the environment.
func Load(opts Options) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("debug", def.Debug)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("store_path", def.StorePath)
	v.SetDefault("max_file_size", def.MaxFileSize)
	v.SetDefault("read_concurrency", def.ReadConcurrency)
	v.SetDefault("respect_gitignore", def.RespectGitignore)
	v.SetDefault("ignore.disable", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		dirs := opts.Dirs
		if dirs == nil {
			dirs = DefaultDirs()
		}
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := def
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.ReadConcurrency < 1 {
		return fmt.Errorf("read_concurrency must be at least 1, got %d", c.ReadConcurrency)
	}
	for i, r := range c.Ignore.Add {
		if strings.TrimSpace(r.Pattern) == "" {
			return fmt.Errorf("ignore.add[%d]: empty pattern", i)
		}
	}
	return nil
}
