package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string `env:"PORT" envDefault:"8080"`
	AllowedOrigin         string `env:"ALLOWED_ORIGIN" envDefault:"http://127.0.0.1:3000"`
	DatabaseURL           string `env:"DATABASE_URL"`
	RedisAddr             string `env:"REDIS_ADDR"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0"`
	ReportCacheTTLSeconds int    `env:"REPORT_CACHE_TTL_SECONDS" envDefault:"30"`
	ReportCacheSize       int    `env:"REPORT_CACHE_SIZE" envDefault:"256"`
	AuthSecret            string `env:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"480"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding           string `env:"LOG_ENCODING" envDefault:"json"`
	Timezone              string `env:"TIMEZONE" envDefault:"Asia/Jakarta"`

	SeedSuperAdminEmail    string `env:"SEED_SUPER_ADMIN_EMAIL"`
	SeedSuperAdminPassword string `env:"SEED_SUPER_ADMIN_PASSWORD"`
}

// Load reads .env files when present and then the process environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.SeedSuperAdminEmail = strings.TrimSpace(cfg.SeedSuperAdminEmail)
	if cfg.ReportCacheTTLSeconds < 1 {
		cfg.ReportCacheTTLSeconds = 30
	}
	if cfg.ReportCacheSize < 1 {
		cfg.ReportCacheSize = 256
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves TIMEZONE, the zone used for daily report buckets.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}
