package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL          string
	Port                 string
	Env                  string
	SchedulerPollSeconds int
	SchedulerBatchSize   int
	IdempotencyWindow    time.Duration
	ActionTimeout        time.Duration

	// Outbound notification providers. Empty provider names fall back to the
	// console provider, which only logs.
	EmailProvider string // "brevo", "resend" or "console"
	EmailAPIKey   string
	EmailFrom     string
	EmailFromName string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Port:                 os.Getenv("PORT"),
		Env:                  os.Getenv("ENV"),
		SchedulerPollSeconds: envInt("SCHEDULER_POLL_SECONDS", 60),
		SchedulerBatchSize:   envInt("SCHEDULER_BATCH_SIZE", 10),
		IdempotencyWindow:    time.Duration(envInt("IDEMPOTENCY_WINDOW_MINUTES", 5)) * time.Minute,
		ActionTimeout:        time.Duration(envInt("ACTION_TIMEOUT_SECONDS", 120)) * time.Second,
		EmailProvider:        os.Getenv("EMAIL_PROVIDER"),
		EmailAPIKey:          os.Getenv("EMAIL_API_KEY"),
		EmailFrom:            os.Getenv("EMAIL_FROM"),
		EmailFromName:        os.Getenv("EMAIL_FROM_NAME"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	return cfg
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
		log.Printf("⚠️ Invalid %s=%q, using default %d", key, raw, fallback)
	}
	return fallback
}
