package config

import "time"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	Chat    ChatConfig
	Auth    AuthConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type GeminiConfig struct {
	// APIKey may legitimately be empty at startup; the chat endpoint then
	// rejects requests until the operator sets it.
	APIKey string
	Model  string
}

type ChatConfig struct {
	MaxContextChars  int
	MaxHistoryTurns  int
	RequireGrounding bool
	RateRPS          float64
	RateBurst        int
}

type AuthConfig struct {
	// PasswordHash is the bcrypt hash of the admin password, managed via
	// `folio set-password`.
	PasswordHash string
	SessionTTL   string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Chat: ChatConfig{
			MaxContextChars:  4000,
			MaxHistoryTurns:  20,
			RequireGrounding: false,
			RateRPS:          1,
			RateBurst:        5,
		},
		Auth: AuthConfig{
			SessionTTL: "168h",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/folio/config.json with FOLIO_* environment variables
// taking precedence. A missing Gemini API key is not a load error; its
// absence surfaces when the chat endpoint is first used.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// SessionDuration parses the configured session TTL, falling back to one
// week on an invalid value.
func (c Config) SessionDuration() time.Duration {
	d, err := time.ParseDuration(c.Auth.SessionTTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// SavePasswordHash persists the admin password hash to the config backend.
func SavePasswordHash(hash string) error {
	return newFileBackend().SetString("auth.password_hash", hash)
}
