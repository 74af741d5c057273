package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sitechat-backend/internal/models"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Frontend
	FrontendURL string

	// Firecrawl
	FirecrawlAPIKey  string
	FirecrawlBaseURL string

	// Chat provider
	ChatProvider string

	// Azure OpenAI
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string

	// Gemini AI
	GeminiAPIKey string
	GeminiModel  string

	// Redis (optional, enables cross-instance event fan-out)
	RedisURL string

	// Sessions
	SessionSecret          string
	SessionIdleTTL         time.Duration
	CreateSessionRateLimit int

	// Outbound calls
	HTTPClientTimeout  time.Duration
	SimulatedStepDelay time.Duration
}

// Load reads the process configuration once at startup. Missing credentials are
// not an error: they switch the service into simulated mode (see Mode).
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "8080"),
		Env:                    getEnvOrDefault("ENV", "development"),
		FrontendURL:            getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		FirecrawlAPIKey:        strings.TrimSpace(os.Getenv("FIRECRAWL_API_KEY")),
		FirecrawlBaseURL:       getEnvOrDefault("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		ChatProvider:           strings.ToLower(getEnvOrDefault("CHAT_PROVIDER", ProviderAzure)),
		AzureEndpoint:          strings.TrimSpace(os.Getenv("AZURE_ENDPOINT")),
		AzureAPIKey:            strings.TrimSpace(os.Getenv("AZURE_API_KEY")),
		AzureDeployment:        getEnvOrDefault("AZURE_DEPLOYMENT", "gpt-4o"),
		AzureAPIVersion:        getEnvOrDefault("AZURE_API_VERSION", "2024-08-01-preview"),
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:            getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		RedisURL:               getEnvOrDefault("REDIS_URL", ""),
		SessionSecret:          getEnvOrDefault("SESSION_SECRET", ""),
		SessionIdleTTL:         getEnvAsDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute),
		CreateSessionRateLimit: getEnvAsIntOrDefault("CREATE_SESSION_RATE_LIMIT", 30),
		HTTPClientTimeout:      getEnvAsDurationOrDefault("HTTP_CLIENT_TIMEOUT", 60*time.Second),
		SimulatedStepDelay:     getEnvAsDurationOrDefault("SIMULATED_STEP_DELAY", 800*time.Millisecond),
	}

	if cfg.SessionSecret == "" {
		// Tokens only need to outlive the process, sessions are in memory anyway.
		cfg.SessionSecret = randomSecret()
	}

	return cfg
}

// Mode derives the ModeFlag from the credentials of the selected chat provider.
func (c *Config) Mode() models.Mode {
	if c.FirecrawlAPIKey == "" {
		return models.ModeSimulated
	}

	switch c.ChatProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return models.ModeSimulated
		}
	default:
		if c.AzureEndpoint == "" || c.AzureAPIKey == "" {
			return models.ModeSimulated
		}
	}

	return models.ModeLive
}

// MissingCredentials lists the env vars whose absence forced simulated mode.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.FirecrawlAPIKey == "" {
		missing = append(missing, "FIRECRAWL_API_KEY")
	}
	if c.ChatProvider == ProviderGemini {
		if c.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
		return missing
	}
	if c.AzureEndpoint == "" {
		missing = append(missing, "AZURE_ENDPOINT")
	}
	if c.AzureAPIKey == "" {
		missing = append(missing, "AZURE_API_KEY")
	}
	return missing
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}
