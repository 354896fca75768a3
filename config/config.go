// Package config loads the environment-supplied settings: backend base URL,
// timeouts, and the tunables of the list/poll behavior. Values come from a
// .env file when present, the process environment otherwise.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// DefaultBaseURL is the public backend endpoint used when nothing is
	// configured. Development setups point READSTACK_API_URL at a local
	// proxy instead.
	DefaultBaseURL = "https://api.readstack.dev"
	devBaseURL     = "http://localhost:8420"
)

type Config struct {
	App    AppConfig
	Client ClientConfig
}

type AppConfig struct {
	Environment string `validate:"oneof=development production test"`
	LogFilePath string
	Debug       bool
}

type ClientConfig struct {
	BaseURL        string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	PageSize       int           `validate:"gt=0,lte=100"`
	SearchDebounce time.Duration `validate:"gt=0"`
	PollInterval   time.Duration `validate:"gt=0"`
	TagCacheTTL    time.Duration `validate:"gt=0"`
	// TokenPath overrides where the bearer credential is persisted. Empty
	// means the user config directory.
	TokenPath string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	env := getEnv("GO_ENV", "development")
	baseURL := DefaultBaseURL
	if env == "development" {
		baseURL = devBaseURL
	}

	cfg := &Config{
		App: AppConfig{
			Environment: env,
			LogFilePath: getEnv("LOG_FILE_PATH", "readstack-mcp.log"),
			Debug:       getEnvAsBool("DEBUG", false),
		},
		Client: ClientConfig{
			BaseURL:        getEnv("READSTACK_API_URL", baseURL),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			PageSize:       getEnvAsInt("PAGE_SIZE", 10),
			SearchDebounce: getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
			PollInterval:   getEnvAsDuration("AI_EDIT_POLL_INTERVAL", 3*time.Second),
			TagCacheTTL:    getEnvAsDuration("TAG_CACHE_TTL", time.Hour),
			TokenPath:      getEnv("TOKEN_PATH", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
