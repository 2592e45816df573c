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
	kFloat
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	apply  func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT",
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		key: "gemini.api_key", typ: kString, env: "FOLIO_GEMINI_API_KEY",
		secret: true,
		apply:  func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
	},
	{
		key: "gemini.model", typ: kString, env: "FOLIO_GEMINI_MODEL",
		apply: func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
	},
	{
		key: "chat.max_context_chars", typ: kInt, env: "FOLIO_CHAT_MAX_CONTEXT_CHARS",
		apply: func(cfg *Config, v any) { cfg.Chat.MaxContextChars = v.(int) },
	},
	{
		key: "chat.max_history_turns", typ: kInt, env: "FOLIO_CHAT_MAX_HISTORY_TURNS",
		apply: func(cfg *Config, v any) { cfg.Chat.MaxHistoryTurns = v.(int) },
	},
	{
		key: "chat.require_grounding", typ: kBool, env: "FOLIO_CHAT_REQUIRE_GROUNDING",
		apply: func(cfg *Config, v any) { cfg.Chat.RequireGrounding = v.(bool) },
	},
	{
		key: "chat.rate_rps", typ: kFloat, env: "FOLIO_CHAT_RATE_RPS",
		apply: func(cfg *Config, v any) { cfg.Chat.RateRPS = v.(float64) },
	},
	{
		key: "chat.rate_burst", typ: kInt, env: "FOLIO_CHAT_RATE_BURST",
		apply: func(cfg *Config, v any) { cfg.Chat.RateBurst = v.(int) },
	},
	{
		key: "auth.password_hash", typ: kString, env: "FOLIO_AUTH_PASSWORD_HASH",
		apply: func(cfg *Config, v any) { cfg.Auth.PasswordHash = v.(string) },
	},
	{
		key: "auth.session_ttl", typ: kString, env: "FOLIO_AUTH_SESSION_TTL",
		apply: func(cfg *Config, v any) { cfg.Auth.SessionTTL = v.(string) },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			// Secrets never live in the plain-text config file.
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
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
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
