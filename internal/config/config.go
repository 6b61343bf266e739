// Package config loads runtime settings from a file and SUDANLIKE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/game"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SUDANLIKE_STORAGE_DRIVER.
const EnvPrefix = "SUDANLIKE"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
	Storage StorageConfig `mapstructure:"storage"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds defaults for new games.
type GameConfig struct {
	Difficulty  string `mapstructure:"difficulty"`
	Seed        uint64 `mapstructure:"seed"`
	ContentDir  string `mapstructure:"content_dir"`
	Protagonist string `mapstructure:"protagonist"`
}

// StorageConfig selects and configures the save store.
type StorageConfig struct {
	Driver      string        `mapstructure:"driver"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	PostgresURL string        `mapstructure:"postgres_url"`
	MaxConns    int32         `mapstructure:"max_conns"`
	FileDir     string        `mapstructure:"file_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.difficulty", string(game.DifficultyNormal))
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.content_dir", "content")
	v.SetDefault("game.protagonist", "prince_karim")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "sudanlike.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.max_conns", 4)
	v.SetDefault("storage.file_dir", "saves")
	v.SetDefault("storage.timeout", 5*time.Second)
}

// Load reads path, if given, on top of the defaults and applies environment
// overrides. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if _, err := game.ParseDifficulty(c.Game.Difficulty); err != nil {
		return fmt.Errorf("%w: game.difficulty: %v", ErrInvalidConfig, err)
	}

	s := c.Storage
	switch s.Driver {
	case DriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path is required", ErrInvalidConfig)
		}
	case DriverPostgres:
		if s.PostgresURL == "" {
			return fmt.Errorf("%w: storage.postgres_url is required", ErrInvalidConfig)
		}
		if s.MaxConns < 1 {
			return fmt.Errorf("%w: storage.max_conns must be positive", ErrInvalidConfig)
		}
	case DriverFile:
		if s.FileDir == "" {
			return fmt.Errorf("%w: storage.file_dir is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidConfig, s.Driver)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: storage.timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
