package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider  string   `yaml:"llm_provider"`
	GeminiAPIKey string   `yaml:"gemini_api_key"`
	GeminiModel  string   `yaml:"gemini_model"`
	GroqAPIKey   string   `yaml:"groq_api_key"`
	GroqModel    string   `yaml:"groq_model"`
	GroqEndpoint string   `yaml:"groq_endpoint"`
	Temperature  *float64 `yaml:"temperature"`

	// Storage Config
	StorageBackend string `yaml:"storage_backend"`
	DatabasePath   string `yaml:"database_path"`
	StoragePath    string `yaml:"storage_path"`

	// Web Config
	Port          string `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`

	// Telegram Config
	TelegramBotToken       string  `yaml:"telegram_bot_token"`
	TelegramWebhookURL     string  `yaml:"telegram_webhook_url"`
	TelegramAllowedUserIDs []int64 `yaml:"telegram_allowed_user_ids"`
	AdminTelegramID        int64   `yaml:"admin_telegram_id"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LLMProvider:    ProviderGemini,
		GeminiModel:    "gemini-2.5-flash",
		StorageBackend: BackendSQLite,
		DatabasePath:   "data/grocery.db",
		StoragePath:    "data/lists",
		Port:           "8080",
	}
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	return Load("")
}

// Load reads an optional YAML file, applies environment variables on top and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("LLM_PROVIDER", &c.LLMProvider)
	setString("GEMINI_API_KEY", &c.GeminiAPIKey)
	setString("GEMINI_MODEL", &c.GeminiModel)
	setString("GROQ_API_KEY", &c.GroqAPIKey)
	setString("GROQ_MODEL", &c.GroqModel)
	setString("GROQ_API_URL", &c.GroqEndpoint)
	setString("STORAGE_BACKEND", &c.StorageBackend)
	setString("DATABASE_PATH", &c.DatabasePath)
	setString("STORAGE_PATH", &c.StoragePath)
	setString("PORT", &c.Port)
	setString("SESSION_SECRET", &c.SessionSecret)
	setString("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)
	setString("TELEGRAM_WEBHOOK_URL", &c.TelegramWebhookURL)

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		c.Temperature = &t
	}

	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
		}
		c.TelegramAllowedUserIDs = ids
	}

	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", v, err)
		}
		c.AdminTelegramID = id
	}
	return nil
}

// Validate checks that the selected provider has credentials and that the
// storage backend is known.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (use %s or %s)", c.LLMProvider, ProviderGemini, ProviderGroq)
	}

	switch c.StorageBackend {
	case BackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite backend")
		}
	case BackendFile:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the file backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *c.Temperature)
	}
	return nil
}

// IsAllowedTelegramUser reports whether the bot should answer userID.
// An empty allow-list denies everyone.
func (c *Config) IsAllowedTelegramUser(userID int64) bool {
	for _, id := range c.TelegramAllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a user id: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
