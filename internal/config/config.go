package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	LogLevel     string
	GeminiAPIKey string
	GeminiModel  string
	NatsURL      string
	NatsToken    string
}

func Load() Config {
	return Config{
		Port:         envInt("ECHO_PORT", 8760),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		GeminiModel:  envStr("ECHO_MODEL", "gemini-2.0-flash"),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
