package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr     string
	BaseURL        string
	DatabaseURL    string
	CookieHashKey  []byte
	CookieBlockKey []byte

	// loop
	PollInterval time.Duration

	// browser
	ChromePath string
	RemoteURL  string
	Headless   bool

	LogLevel string
}

// EnvPrefix is prepended to every key when read from the environment,
// e.g. CAFEBOOK_DATABASE_URL.
const EnvPrefix = "CAFEBOOK"

var errMissing = errors.New("required")

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("poll_seconds", 2)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("headless", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("cookie_hash_key", "")
	v.SetDefault("cookie_block_key", "")
	v.SetDefault("chrome_path", "")
	v.SetDefault("remote_url", "")
}

// New returns a viper instance reading defaults, then file (if non-empty, or
// $HOME/.cafebook.yaml when present), then CAFEBOOK_* environment.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return v, nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".cafebook")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config %s: %w", filepath.Join(home, ".cafebook.yaml"), err)
		}
	}
	return v, nil
}

// FromViper decodes v into a Config. Cookie keys are decoded when set but only
// enforced by RequireWeb.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:  v.GetString("listen_addr"),
		BaseURL:     v.GetString("base_url"),
		DatabaseURL: v.GetString("database_url"),
		ChromePath:  v.GetString("chrome_path"),
		RemoteURL:   v.GetString("remote_url"),
		Headless:    v.GetBool("headless"),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
	}

	pollSec := v.GetInt("poll_seconds")
	if pollSec < 1 {
		return Config{}, fmt.Errorf("invalid poll_seconds %q", v.GetString("poll_seconds"))
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}

	var err error
	if s := v.GetString("cookie_hash_key"); s != "" {
		if cfg.CookieHashKey, err = decodeB64(s); err != nil {
			return Config{}, fmt.Errorf("cookie_hash_key: %w", err)
		}
	}
	if s := v.GetString("cookie_block_key"); s != "" {
		if cfg.CookieBlockKey, err = decodeB64(s); err != nil {
			return Config{}, fmt.Errorf("cookie_block_key: %w", err)
		}
	}
	return cfg, nil
}

// Load is New followed by FromViper.
func Load(file string) (Config, error) {
	v, err := New(file)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// RequireDatabase reports whether the journal can be used.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url: %w", errMissing)
	}
	return nil
}

// RequireWeb checks what the web UI needs on top of the database.
func (c Config) RequireWeb() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if len(c.CookieHashKey) == 0 || len(c.CookieBlockKey) == 0 {
		return fmt.Errorf("cookie_hash_key and cookie_block_key are %w (32 and 16/24/32 bytes base64)", errMissing)
	}
	switch len(c.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("cookie_block_key must decode to 16, 24 or 32 bytes, got %d", len(c.CookieBlockKey))
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	b, err := os.ReadFile(s)
	if err == nil {
		// allow pointing to file path for k8s secret mounts
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
