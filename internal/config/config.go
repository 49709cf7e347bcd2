package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	FrontendURL string
	LogLevel    string
	LogFormat   string // console or json

	RelayURL             string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	ConnectTimeout       time.Duration

	SnippetSources  string // optional YAML file
	SnippetAttempts int
	SnippetTimeout  time.Duration
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "3001"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),

		RelayURL:             getEnv("RELAY_URL", "ws://localhost:3001/ws"),
		MaxReconnectAttempts: getEnvInt("MAX_RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:       getEnvMillis("RECONNECT_DELAY_MS", time.Second),
		ConnectTimeout:       getEnvMillis("CONNECT_TIMEOUT_MS", 10*time.Second),

		SnippetSources:  os.Getenv("SNIPPET_SOURCES"),
		SnippetAttempts: getEnvInt("SNIPPET_ATTEMPTS", 2),
		SnippetTimeout:  getEnvMillis("SNIPPET_TIMEOUT_MS", 10*time.Second),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if ms := getEnvInt(key, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
