package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	MinBoardSize   = 3
	MaxBoardSize   = 8
	MinSearchDepth = 1
	MaxSearchDepth = 9
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel      string  `yaml:"log-level"      env:"LOG_LEVEL"      env-default:"info"`
	ListenAddress string  `yaml:"listen-address" env:"LISTEN_ADDRESS" env-default:":12345"`
	HTTPAddress   string  `yaml:"http-address"   env:"HTTP_ADDRESS"   env-default:":9090"`
	Game          Game    `yaml:"game"`
	Session       Session `yaml:"session"`
	Redis         Redis   `yaml:"redis"`
}

type Game struct {
	BoardSize   int `yaml:"board-size"   env:"BOARD_SIZE"   env-default:"4"`
	SearchDepth int `yaml:"search-depth" env:"SEARCH_DEPTH" env-default:"4"`
}

type Session struct {
	MoveTimeout    time.Duration `yaml:"move-timeout"    env:"MOVE_TIMEOUT"    env-default:"2m"`
	RematchTimeout time.Duration `yaml:"rematch-timeout" env:"REMATCH_TIMEOUT" env-default:"30s"`
	WriteTimeout   time.Duration `yaml:"write-timeout"   env:"WRITE_TIMEOUT"   env-default:"10s"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"  env:"REDIS_ENABLED"  env-default:"false"`
	Host     string `yaml:"host"     env:"REDIS_HOST"     env-default:"localhost"`
	Port     string `yaml:"port"     env:"REDIS_PORT"     env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// Load - reads path, falling back to environment variables and defaults when the file does not exist.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) Validate() error {
	if that.ListenAddress == "" {
		return fmt.Errorf("%w: listen-address is empty", ErrInvalidConfig)
	}

	if that.Game.BoardSize < MinBoardSize || that.Game.BoardSize > MaxBoardSize {
		return fmt.Errorf("%w: board-size %d not in [%d, %d]", ErrInvalidConfig, that.Game.BoardSize, MinBoardSize, MaxBoardSize)
	}

	if that.Game.SearchDepth < MinSearchDepth || that.Game.SearchDepth > MaxSearchDepth {
		return fmt.Errorf("%w: search-depth %d not in [%d, %d]", ErrInvalidConfig, that.Game.SearchDepth, MinSearchDepth, MaxSearchDepth)
	}

	if that.Session.MoveTimeout < 0 || that.Session.RematchTimeout < 0 || that.Session.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	switch that.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log-level %q", ErrInvalidConfig, that.LogLevel)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

