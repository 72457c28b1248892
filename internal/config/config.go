package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreMemory   = "memory"
)

type Config struct {
	StatsAPIURL string
	StatsAPIKey string

	StoreDriver string
	DBPath      string
	DatabaseURL string
	BadgerPath  string

	ServerPort string
	LogLevel   string

	NATSURL     string
	NATSSubject string

	EdgePath       string
	BackgroundPath string
	RenderBin      string
	OutputDir      string

	CommandInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	interval, err := time.ParseDuration(getEnv("COMMAND_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMAND_INTERVAL: %w", err)
	}

	cfg := &Config{
		StatsAPIURL:     getEnv("STATS_API_URL", "https://api.sayobot.cn/ppy"),
		StatsAPIKey:     getEnv("STATS_API_KEY", ""),
		StoreDriver:     getEnv("STORE_DRIVER", StoreSQLite),
		DBPath:          getEnv("DB_PATH", "osu.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BadgerPath:      getEnv("BADGER_PATH", "data/badger"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		NATSURL:         getEnv("NATS_URL", ""),
		NATSSubject:     getEnv("NATS_SUBJECT", "osu.snapshots"),
		EdgePath:        getEnv("EDGE_PATH", "png/tk"),
		BackgroundPath:  getEnv("BACKGROUND_PATH", "png/stat"),
		RenderBin:       getEnv("RENDER_BIN", ""),
		OutputDir:       getEnv("OUTPUT_DIR", os.TempDir()),
		CommandInterval: interval,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("stats_api_url", cfg.StatsAPIURL).
		Str("store_driver", cfg.StoreDriver).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("nats", cfg.NATSURL != "").
		Bool("renderer", cfg.RenderBin != "").
		Dur("command_interval", cfg.CommandInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StatsAPIURL == "" {
		return fmt.Errorf("STATS_API_URL is required")
	}
	if c.CommandInterval < 0 {
		return fmt.Errorf("COMMAND_INTERVAL must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
