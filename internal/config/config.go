// Package config loads application settings from the platform-native
// backend with environment overrides.
package config

import (
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Check   CheckConfig
	Storage StorageConfig
	Words   WordsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port  int
	Token string // optional bearer token protecting the API
}

type EngineConfig struct {
	Version      string
	CacheDir     string
	DownloadHost string
	JavaPath     string
	ReadyTimeout string
}

// ReadyTimeoutDuration parses the configured ready timeout, falling back to
// zero (the supervisor default) on a bad value.
func (e EngineConfig) ReadyTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.ReadyTimeout)
	if err != nil {
		return 0
	}
	return d
}

type CheckConfig struct {
	Language     string
	MotherTongue string
	MaxChunk     int
	Concurrency  int
	Picky        bool
}

type StorageConfig struct {
	DataDir string
}

type WordsConfig struct {
	BaseURL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8089,
		},
		Engine: EngineConfig{
			Version:      "latest",
			ReadyTimeout: "60s",
		},
		Check: CheckConfig{
			Language:    "en-US",
			MaxChunk:    20000,
			Concurrency: 4,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Words: WordsConfig{
			BaseURL: "https://api.datamuse.com",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.redline.app) and the
// server token falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/redline/config.json.
//
// Environment variables (REDLINE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The server token is optional; check the platform secret store when
	// it was not set any other way.
	if cfg.Server.Token == "" {
		if token, err := kc.Get("redline", "server_token"); err == nil && token != "" {
			cfg.Server.Token = token
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
