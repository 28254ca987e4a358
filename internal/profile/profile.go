// Package profile loads server configuration from flags and environment.
package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	Mode    string // demo, dev, prod
	Addr    string
	Port    int
	Version string

	// Unified LLM configuration (OpenAI-compatible protocol).
	LLMProvider string // openai, deepseek, ollama, or any compatible provider
	LLMAPIKey   string
	LLMBaseURL  string // optional, has a default per provider
	LLMModel    string
	LLMTimeout  int // per-call timeout in seconds

	// Document store (MongoDB).
	MongoURI string
	MongoDB  string

	// Session persistence (Redis). Empty falls back to in-memory sessions.
	RedisURL        string
	SessionTTLHours int

	// External services. Empty disables the respective feature; the core
	// degrades to store-backed and template paths.
	SearchURL  string
	WeatherURL string

	// AliasFile optionally overrides the built-in province alias table.
	AliasFile string
}

// Provider defaults applied when base URL or model are not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled reports whether an LLM client should be constructed.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("TRAVELGO_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("TRAVELGO_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TRAVELGO_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TRAVELGO_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TRAVELGO_LLM_TIMEOUT_SECONDS", 30)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("profile: unknown LLM provider, using openai-compatible defaults",
			"provider", p.LLMProvider)
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.MongoURI = getEnvOrDefault("TRAVELGO_MONGO_URI", "")
	p.MongoDB = getEnvOrDefault("TRAVELGO_MONGO_DB", "travelgo")

	p.RedisURL = getEnvOrDefault("TRAVELGO_REDIS_URL", "")
	p.SessionTTLHours = getEnvOrDefaultInt("TRAVELGO_SESSION_TTL_HOURS", 24)

	p.SearchURL = getEnvOrDefault("TRAVELGO_SEARCH_URL", "")
	p.WeatherURL = getEnvOrDefault("TRAVELGO_WEATHER_URL", "")
	p.AliasFile = getEnvOrDefault("TRAVELGO_ALIAS_FILE", "")
}

// Validate normalizes the profile and rejects unusable combinations.
// Demo mode runs fully in-process (seed store, in-memory sessions); prod
// requires a MongoDB document store.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.Mode == "prod" && p.MongoURI == "" {
		return errors.New("prod mode requires TRAVELGO_MONGO_URI")
	}
	if p.SessionTTLHours <= 0 {
		p.SessionTTLHours = 24
	}
	return nil
}
