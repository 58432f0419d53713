package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	LogLevel        string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort        string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	Storage         string        `yaml:"storage" env:"STORAGE" env-default:"memory"`
	Redis           Redis         `yaml:"redis"`
	Board           Board         `yaml:"board"`
}

type Redis struct {
	Host    string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	GameTTL time.Duration `yaml:"game-ttl" env:"REDIS_GAME_TTL" env-default:"0s"`
}

// Board is the shape of every game; 7x8 with 5 blocked cells unless configured.
type Board struct {
	Rows         int   `yaml:"rows" env:"BOARD_ROWS" env-default:"7"`
	Cols         int   `yaml:"cols" env:"BOARD_COLS" env-default:"8"`
	BlockedCount int   `yaml:"blocked-count" env:"BOARD_BLOCKED_COUNT" env-default:"5"`
	Seed         int64 `yaml:"seed" env:"BOARD_SEED" env-default:"0"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads the yaml file at path, environment variables take precedence.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown storage %q", that.Storage)
	}

	if that.Board.Rows < 1 || that.Board.Cols < 1 {
		return fmt.Errorf("board must have at least one row and column, got %dx%d", that.Board.Rows, that.Board.Cols)
	}

	if that.Board.BlockedCount < 0 || that.Board.BlockedCount > that.Board.Rows*that.Board.Cols {
		return fmt.Errorf("blocked-count %d does not fit a %dx%d board", that.Board.BlockedCount, that.Board.Rows, that.Board.Cols)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
