package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers for the subscriber table.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json|console
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"` // healthz + metrics
	Port      string `envconfig:"PORT"`                      // PaaS-provided port, wins over HTTP_ADDR

	StoreDriver string `envconfig:"STORE_DRIVER" default:"file"` // file|sqlite
	SubsFile    string `envconfig:"SUBS_FILE" default:"subs.json"`
	DBPath      string `envconfig:"DB_PATH" default:"./data/subscribers.db"`

	PinTimer        bool `envconfig:"PIN_TIMER" default:"true"`
	SilentPin       bool `envconfig:"SILENT_PIN" default:"true"`
	CleanPinService bool `envconfig:"CLEAN_PIN_SERVICE" default:"true"`

	DropPendingUpdates bool `envconfig:"DROP_PENDING_UPDATES" default:"true"`
	PollTimeout        int  `envconfig:"POLL_TIMEOUT" default:"30"` // seconds
}

// Load reads an optional .env file and then environment variables into Config.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Port != "" {
		cfg.HTTPAddr = ":" + cfg.Port
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	// envconfig's required tag accepts an empty value.
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN: required")
	}
	switch c.StoreDriver {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER: unsupported value %q", c.StoreDriver)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT: unsupported value %q", c.LogFormat)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("POLL_TIMEOUT: must be positive, got %d", c.PollTimeout)
	}
	return nil
}
