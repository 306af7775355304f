package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	BaseDir       string
	StoreBackend  string
	MongoDBURL    string
	MongoDBName   string
	RedisURL      string
	CompletionTTL time.Duration

	// OpenAI
	OpenAIAPIKey       string
	LLMModel           string
	LLMTimeout         time.Duration
	LLMBreakerFailures int
	LLMBreakerTimeout  time.Duration
	ExtractConcurrency int

	// Gmail
	GmailCredentialsFile string
	GmailTokenFile       string
	GmailFetchMax        int

	// HTTP
	AllowedOrigins     []string
	RateLimitPerMinute int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Storage
		BaseDir:       getEnv("BASE_DIR", "."),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "file")),
		MongoDBURL:    getEnv("MONGODB_URL", ""),
		MongoDBName:   getEnv("MONGODB_DATABASE", "carma"),
		RedisURL:      getEnv("REDIS_URL", ""),
		CompletionTTL: time.Duration(getEnvInt("COMPLETION_CACHE_TTL_MIN", 60)) * time.Minute,

		// OpenAI
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_SEC", 60)) * time.Second,
		LLMBreakerFailures: getEnvInt("LLM_BREAKER_FAILURES", 5),
		LLMBreakerTimeout:  time.Duration(getEnvInt("LLM_BREAKER_TIMEOUT_SEC", 30)) * time.Second,
		ExtractConcurrency: getEnvInt("EXTRACT_CONCURRENCY", 4),

		// Gmail
		GmailCredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		GmailTokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
		GmailFetchMax:        getEnvInt("GMAIL_FETCH_MAX", 10),

		// HTTP
		AllowedOrigins:     getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CredentialsPath resolves the Gmail client secret file against BaseDir.
func (c *Config) CredentialsPath() string {
	return c.resolve(c.GmailCredentialsFile)
}

// TokenPath resolves the Gmail token file against BaseDir.
func (c *Config) TokenPath() string {
	return c.resolve(c.GmailTokenFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
