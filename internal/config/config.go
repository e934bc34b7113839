package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	APIBaseURL    string
	PublicURL     string
	SessionSecret string
	Env           string
	CORSOrigins   []string

	PollInterval time.Duration
	HTTPTimeout  time.Duration
	SessionIdle  time.Duration

	// Optional shared catalog snapshot; empty disables it.
	RedisAddr  string
	CatalogTTL time.Duration

	// Optional lifecycle event stream; empty disables it.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8000/"),
		PublicURL:     getEnv("PUBLIC_URL", "http://localhost:8080"),
		SessionSecret: getEnv("SESSION_SECRET", "dev-secret-change-in-production"),
		Env:           getEnv("APP_ENV", "production"),
		CORSOrigins:   getList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		PollInterval:  getDuration("POLL_INTERVAL", 5*time.Second),
		HTTPTimeout:   getDuration("HTTP_TIMEOUT", 10*time.Second),
		SessionIdle:   getDuration("SESSION_IDLE", 2*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		CatalogTTL:    getDuration("CATALOG_TTL", 10*time.Minute),
		KafkaBrokers:  getList("KAFKA_BROKERS", nil),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "pizzeria.orders"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
