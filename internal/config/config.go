package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the full runtime configuration of the API process.
type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Storage struct {
		// DSN selects the Postgres-backed stores when non-empty;
		// everything stays in memory otherwise.
		DSN          string        `koanf:"dsn"`
		MaxOpenConns int           `koanf:"max_open_conns"`
		ConnLifetime time.Duration `koanf:"conn_lifetime"`
	} `koanf:"storage"`

	Redis struct {
		Addr     string        `koanf:"addr"`
		Password string        `koanf:"password"`
		CartTTL  time.Duration `koanf:"cart_ttl"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Replenish struct {
		ReorderQuantity int `koanf:"reorder_quantity"`
	} `koanf:"replenish"`

	Telemetry struct {
		OTLPEndpoint string `koanf:"otlp_endpoint"`
	} `koanf:"telemetry"`
}

// Load reads base.yaml from pathDir, overlays an optional <envName>.yaml,
// then applies BOOKERY_-prefixed environment variables (nested keys with __).
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base config: %w", err)
	}
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	err := k.Load(env.Provider("BOOKERY_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "BOOKERY_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = ":8080"
	}
	if cfg.Replenish.ReorderQuantity <= 0 {
		cfg.Replenish.ReorderQuantity = 20
	}
	return cfg, nil
}
