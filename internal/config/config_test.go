package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.ListenAddr != ":8080" || cfg.LogLevel != "info" || cfg.Headless {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.RequireDatabase(); err == nil {
		t.Errorf("RequireDatabase passed without database_url")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := writeFile(t, "cafebook.yaml", `
poll_seconds: 5
database_url: postgres://file
headless: true
log_level: debug
`)
	t.Setenv("CAFEBOOK_DATABASE_URL", "postgres://env")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.DatabaseURL != "postgres://env" {
		t.Errorf("DatabaseURL = %q, env should win", cfg.DatabaseURL)
	}
	if !cfg.Headless || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".cafebook.yaml"), []byte("remote_url: ws://127.0.0.1:9222\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RemoteURL != "ws://127.0.0.1:9222" {
		t.Errorf("RemoteURL = %q", cfg.RemoteURL)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name string
		env  map[string]string
		file string
		want string
	}{
		{name: "missing file", file: "/nonexistent/cafebook.yaml", want: "read config"},
		{name: "zero poll", env: map[string]string{"CAFEBOOK_POLL_SECONDS": "0"}, want: "poll_seconds"},
		{name: "bad level", env: map[string]string{"CAFEBOOK_LOG_LEVEL": "loud"}, want: "log_level"},
		{name: "bad cookie key", env: map[string]string{"CAFEBOOK_COOKIE_HASH_KEY": "not base64!"}, want: "cookie_hash_key"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			_, err := Load(c.file)
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("got %v, want error mentioning %q", err, c.want)
			}
		})
	}
}

func TestRequireWeb(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	key32 := base64.StdEncoding.EncodeToString(make([]byte, 32))
	key20 := base64.StdEncoding.EncodeToString(make([]byte, 20))
	hashFile := writeFile(t, "hash", key32+"\n")

	t.Setenv("CAFEBOOK_DATABASE_URL", "postgres://x")
	t.Setenv("CAFEBOOK_COOKIE_HASH_KEY", hashFile)
	t.Setenv("CAFEBOOK_COOKIE_BLOCK_KEY", key32)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CookieHashKey) != 32 {
		t.Errorf("hash key from file: %d bytes", len(cfg.CookieHashKey))
	}
	if err := cfg.RequireWeb(); err != nil {
		t.Errorf("RequireWeb: %v", err)
	}

	t.Setenv("CAFEBOOK_COOKIE_BLOCK_KEY", key20)
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.RequireWeb(); err == nil {
		t.Errorf("RequireWeb accepted a 20-byte block key")
	}

	cfg.CookieBlockKey = nil
	if err := cfg.RequireWeb(); err == nil {
		t.Errorf("RequireWeb accepted a missing block key")
	}
}
