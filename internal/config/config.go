package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/inoxlang/eventlist/internal/codec"
	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

const (
	APP_NAME           = "eventlist"
	CONFIG_FILE_NAME   = "config.yaml"
	CONFIG_FILE_RELPTH = APP_NAME + "/" + CONFIG_FILE_NAME

	LOG_LEVEL_ENV_VARNAME = "EVENTLIST_LOG_LEVEL"

	DEFAULT_SOAK_OPERATIONS = 10_000
	DEFAULT_SOAK_CURSORS    = 4
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	LogLevel          string            `yaml:"log-level"`
	LogLevels         map[string]string `yaml:"log-levels"` //level by log source (src field)
	InternalDebugLogs bool              `yaml:"internal-debug-logs"`
	Color             *bool             `yaml:"color"` //nil: detect terminal capabilities
	Codec             string            `yaml:"codec"`
	Compress          bool              `yaml:"compress"`
	Soak              SoakConfig        `yaml:"soak"`

	// set by Load
	Path string `yaml:"-"`
}

type SoakConfig struct {
	Operations int   `yaml:"operations"`
	Cursors    int   `yaml:"cursors"`
	Seed       int64 `yaml:"seed"`
}

func Default() Config {
	return Config{
		LogLevel: zerolog.InfoLevel.String(),
		Codec:    codec.JSON_CODEC,
		Soak: SoakConfig{
			Operations: DEFAULT_SOAK_OPERATIONS,
			Cursors:    DEFAULT_SOAK_CURSORS,
			Seed:       1,
		},
	}
}

// Load reads the configuration file located in the XDG config directories, if it exists, and applies
// environment overrides.
func Load() (Config, error) {
	path, err := xdg.SearchConfigFile(CONFIG_FILE_RELPTH)
	if err != nil {
		path = ""
	}
	return LoadFile(path)
}

// LoadFile reads the configuration file at path and applies environment overrides. The default configuration
// is used if path is empty.
func LoadFile(path string) (Config, error) {
	config := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read the configuration file: %w", err)
		}

		if err == nil {
			if err := yaml.Unmarshal(content, &config); err != nil {
				return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
			}
			config.Path = path
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if level, ok := os.LookupEnv(LOG_LEVEL_ENV_VARNAME); ok && level != "" {
		c.LogLevel = level
	}

	// FORCE_COLOR and NO_COLOR take precedence over the configuration file.

	if s, ok := os.LookupEnv("FORCE_COLOR"); ok && isTruthy(s) {
		c.Color = boolPtr(true)
	}

	if s, ok := os.LookupEnv("NO_COLOR"); ok && isTruthy(s) {
		c.Color = boolPtr(false)
	}
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}

	for src, level := range c.LogLevels {
		if _, err := zerolog.ParseLevel(level); err != nil {
			return fmt.Errorf("%w: log level of %s: %w", ErrInvalidConfig, src, err)
		}
	}

	if !codec.IsKnownCodec(c.Codec) {
		return fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}

	if c.Soak.Operations < 0 {
		return fmt.Errorf("%w: soak.operations should be positive", ErrInvalidConfig)
	}

	if c.Soak.Cursors < 0 {
		return fmt.Errorf("%w: soak.cursors should be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Levels returns the log levels of the sources, the default level is c.Level(). Invalid levels are ignored.
func (c Config) Levels() *slog.Levels {
	bySource := map[string]zerolog.Level{}
	for src, s := range c.LogLevels {
		level, err := zerolog.ParseLevel(s)
		if err == nil && level != zerolog.NoLevel {
			bySource[src] = level
		}
	}

	return slog.NewLevels(slog.LevelsInitialization{
		DefaultLevel:            c.Level(),
		BySource:                bySource,
		EnableInternalDebugLogs: c.InternalDebugLogs,
	})
}

// ShouldColorize returns the configured color setting or detects if the terminal supports colors.
func (c Config) ShouldColorize() bool {
	if c.Color != nil {
		return *c.Color
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return len(s) != 0 && s != "false" && s != "0"
}

func boolPtr(b bool) *bool {
	return &b
}
