package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Remote RemoteConfig `toml:"remote"`
	Poll   PollConfig   `toml:"poll"`
	Render RenderConfig `toml:"render"`
	Submit SubmitConfig `toml:"submit"`
}

type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	JWTSecret    string   `toml:"jwt_secret"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

type StoreConfig struct {
	Backend   string        `toml:"backend"` // sqlite, redis or memory
	Driver    string        `toml:"driver"`  // sqlite3 (cgo) or sqlite (pure Go)
	DataPath  string        `toml:"data_path"`
	DBPath    string        `toml:"db_path"`
	RedisAddr string        `toml:"redis_addr"`
	RedisTTL  time.Duration `toml:"redis_ttl"`
}

type RemoteConfig struct {
	BaseURL       string `toml:"base_url"`
	SessionCookie string `toml:"session_cookie"`
}

type PollConfig struct {
	FirstCheckDelay time.Duration `toml:"first_check_delay"`
	Interval        time.Duration `toml:"interval"`
	MaxPolls        int           `toml:"max_polls"`
	MaxErrors       int           `toml:"max_errors"`
}

type RenderConfig struct {
	Interval time.Duration `toml:"interval"`
}

type SubmitConfig struct {
	DefaultLanguage string `toml:"default_language"`
}

// Default returns the built-in configuration.
func Default() Config {
	home := Home()
	return Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			CORSOrigins:  []string{"*"},
			MaxBodyBytes: 1 << 20,
		},
		Store: StoreConfig{
			Backend:   "sqlite",
			Driver:    "sqlite3",
			DataPath:  home,
			RedisAddr: "localhost:6379",
			RedisTTL:  30 * 24 * time.Hour,
		},
		Remote: RemoteConfig{
			BaseURL: "https://api.rxaigc.com",
		},
		Poll: PollConfig{
			FirstCheckDelay: 10 * time.Second,
			Interval:        15 * time.Second,
			MaxPolls:        240,
			MaxErrors:       5,
		},
		Render: RenderConfig{
			Interval: 100 * time.Millisecond,
		},
		Submit: SubmitConfig{
			DefaultLanguage: "zh-CN",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path,
// then environment variables. An empty path means $VIBESUB_HOME/config.toml,
// which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(Home(), "config.toml")
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = filepath.Join(cfg.Store.DataPath, "vibesub.db")
	}

	// JWT secret: require explicit setting or generate random
	if cfg.Server.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate JWT secret: %w", err)
		}
		cfg.Server.JWTSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Issued tokens will not survive restarts. Set JWT_SECRET for persistent tokens.")
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	intVar := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	durVar := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	strVar := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	strVar("HOST", &cfg.Server.Host)
	intVar("PORT", &cfg.Server.Port)
	strVar("JWT_SECRET", &cfg.Server.JWTSecret)
	strVar("DATA_PATH", &cfg.Store.DataPath)
	strVar("DB_PATH", &cfg.Store.DBPath)
	strVar("DB_DRIVER", &cfg.Store.Driver)
	strVar("STORE_BACKEND", &cfg.Store.Backend)
	strVar("REDIS_ADDR", &cfg.Store.RedisAddr)
	strVar("API_SERVER", &cfg.Remote.BaseURL)
	strVar("SESSION_COOKIE", &cfg.Remote.SessionCookie)
	durVar("FIRST_CHECK_DELAY", &cfg.Poll.FirstCheckDelay)
	durVar("POLL_INTERVAL", &cfg.Poll.Interval)
	intVar("MAX_POLLS", &cfg.Poll.MaxPolls)
	intVar("MAX_ERRORS", &cfg.Poll.MaxErrors)
	durVar("RENDER_INTERVAL", &cfg.Render.Interval)
	strVar("DEFAULT_LANGUAGE", &cfg.Submit.DefaultLanguage)

	// CORS origins: comma-separated list or "*" (default)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Home returns the vibesub data directory.
func Home() string {
	if env := os.Getenv("VIBESUB_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vibesub")
}
