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
	kFloat
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
		key: "server.port", typ: kInt, env: "POTHOLE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "inference.base_url", typ: kString, env: "POTHOLE_INFERENCE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Inference.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.BaseURL },
	},
	{
		key: "inference.detect_model", typ: kString, env: "POTHOLE_INFERENCE_DETECT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Inference.DetectModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.DetectModel },
	},
	{
		key: "inference.embed_model", typ: kString, env: "POTHOLE_INFERENCE_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Inference.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.EmbedModel },
	},
	{
		key: "inference.patch_size", typ: kInt, env: "POTHOLE_INFERENCE_PATCH_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Inference.PatchSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Inference.PatchSize },
	},
	{
		key: "match.threshold", typ: kFloat, env: "POTHOLE_MATCH_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Match.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Match.Threshold },
	},
	{
		key: "match.parallelism", typ: kInt, env: "POTHOLE_MATCH_PARALLELISM",
		apply:   func(cfg *Config, v any) { cfg.Match.Parallelism = v.(int) },
		extract: func(cfg Config) any { return cfg.Match.Parallelism },
	},
	{
		key: "remote.base_url", typ: kString, env: "POTHOLE_REMOTE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Remote.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.BaseURL },
	},
	{
		key: "remote.api_token", typ: kString, env: "POTHOLE_REMOTE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Remote.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "POTHOLE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "POTHOLE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "api.token", typ: kString, env: "POTHOLE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
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
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
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
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
