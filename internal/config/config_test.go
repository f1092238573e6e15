package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Poll.FirstCheckDelay != 10*time.Second || cfg.Poll.Interval != 15*time.Second {
		t.Errorf("poll timing = %v / %v", cfg.Poll.FirstCheckDelay, cfg.Poll.Interval)
	}
	if cfg.Poll.MaxPolls != 240 || cfg.Poll.MaxErrors != 5 {
		t.Errorf("poll limits = %d / %d", cfg.Poll.MaxPolls, cfg.Poll.MaxErrors)
	}
	if cfg.Render.Interval != 100*time.Millisecond {
		t.Errorf("render interval = %v", cfg.Render.Interval)
	}
	if cfg.Submit.DefaultLanguage != "zh-CN" {
		t.Errorf("default language = %q", cfg.Submit.DefaultLanguage)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("VIBESUB_HOME", home)
	t.Setenv("JWT_SECRET", "")

	file := `
[server]
port = 9000
cors_origins = ["chrome-extension://abc"]

[store]
backend = "redis"

[poll]
interval = "30s"
max_polls = 10

[submit]
default_language = "en"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_POLLS", "20")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want file value 9000", cfg.Server.Port)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("interval = %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxPolls != 20 {
		t.Errorf("max polls = %d, want env value 20", cfg.Poll.MaxPolls)
	}
	if cfg.Poll.FirstCheckDelay != 10*time.Second {
		t.Errorf("first check delay = %v, want default", cfg.Poll.FirstCheckDelay)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("cors origins = %q", cfg.Server.CORSOrigins)
	}
	if cfg.Submit.DefaultLanguage != "en" {
		t.Errorf("language = %q", cfg.Submit.DefaultLanguage)
	}
	if cfg.Store.DBPath != filepath.Join(home, "vibesub.db") {
		t.Errorf("db path = %q", cfg.Store.DBPath)
	}
	if len(cfg.Server.JWTSecret) != 64 {
		t.Errorf("generated secret length = %d", len(cfg.Server.JWTSecret))
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("VIBESUB_HOME", t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing file did not fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte("[server\nport = "), 0o600)
	if _, err := Load(bad); err == nil {
		t.Error("malformed file did not fail")
	}

	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	if err == nil {
		t.Fatal("invalid env values did not fail")
	}
	if !strings.Contains(err.Error(), "POLL_INTERVAL") || !strings.Contains(err.Error(), "PORT") {
		t.Errorf("error does not name both variables: %v", err)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("VIBESUB_HOME", t.TempDir())
	t.Setenv("JWT_SECRET", "fixed")
	t.Setenv("API_SERVER", "http://localhost:9999")
	t.Setenv("SESSION_COOKIE", "abc")
	t.Setenv("FIRST_CHECK_DELAY", "1s")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.JWTSecret != "fixed" || cfg.Remote.BaseURL != "http://localhost:9999" || cfg.Remote.SessionCookie != "abc" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Poll.FirstCheckDelay != time.Second || cfg.Store.Driver != "sqlite" {
		t.Errorf("poll/store = %+v %+v", cfg.Poll, cfg.Store)
	}
}
