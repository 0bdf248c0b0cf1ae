package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "REDLINE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "REDLINE_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "engine.version", typ: kString, env: "REDLINE_ENGINE_VERSION",
		apply:   func(cfg *Config, v any) { cfg.Engine.Version = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.Version },
	},
	{
		key: "engine.cache_dir", typ: kString, env: "REDLINE_CACHE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Engine.CacheDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.CacheDir },
	},
	{
		key: "engine.download_host", typ: kString, env: "REDLINE_DOWNLOAD_HOST",
		apply:   func(cfg *Config, v any) { cfg.Engine.DownloadHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.DownloadHost },
	},
	{
		key: "engine.java_path", typ: kString, env: "REDLINE_JAVA_PATH",
		apply:   func(cfg *Config, v any) { cfg.Engine.JavaPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.JavaPath },
	},
	{
		key: "engine.ready_timeout", typ: kString, env: "REDLINE_ENGINE_READY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Engine.ReadyTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.ReadyTimeout },
	},
	{
		key: "check.language", typ: kString, env: "REDLINE_LANGUAGE",
		apply:   func(cfg *Config, v any) { cfg.Check.Language = v.(string) },
		extract: func(cfg Config) any { return cfg.Check.Language },
	},
	{
		key: "check.mother_tongue", typ: kString, env: "REDLINE_MOTHER_TONGUE",
		apply:   func(cfg *Config, v any) { cfg.Check.MotherTongue = v.(string) },
		extract: func(cfg Config) any { return cfg.Check.MotherTongue },
	},
	{
		key: "check.max_chunk", typ: kInt, env: "REDLINE_CHECK_MAX_CHUNK",
		apply:   func(cfg *Config, v any) { cfg.Check.MaxChunk = v.(int) },
		extract: func(cfg Config) any { return cfg.Check.MaxChunk },
	},
	{
		key: "check.concurrency", typ: kInt, env: "REDLINE_CHECK_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Check.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Check.Concurrency },
	},
	{
		key: "check.picky", typ: kBool, env: "REDLINE_CHECK_PICKY",
		apply:   func(cfg *Config, v any) { cfg.Check.Picky = v.(bool) },
		extract: func(cfg Config) any { return cfg.Check.Picky },
	},
	{
		key: "storage.data_dir", typ: kString, env: "REDLINE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "words.base_url", typ: kString, env: "REDLINE_WORDS_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Words.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Words.BaseURL },
	},
	{
		key: "log.level", typ: kString, env: "REDLINE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
