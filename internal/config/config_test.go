package config

import (
	"testing"
	"time"
)

var keys = []string{
	"PORT", "FRONTEND_URL", "LOG_LEVEL", "LOG_FORMAT", "RELAY_URL",
	"MAX_RECONNECT_ATTEMPTS", "RECONNECT_DELAY_MS", "CONNECT_TIMEOUT_MS",
	"SNIPPET_SOURCES", "SNIPPET_ATTEMPTS", "SNIPPET_TIMEOUT_MS",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3001")
	}
	if cfg.FrontendURL != "http://localhost:5173" {
		t.Errorf("FrontendURL = %q, want %q", cfg.FrontendURL, "http://localhost:5173")
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("logging = %q/%q, want info/console", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.RelayURL != "ws://localhost:3001/ws" {
		t.Errorf("RelayURL = %q, want %q", cfg.RelayURL, "ws://localhost:3001/ws")
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want %d", cfg.MaxReconnectAttempts, 5)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Errorf("ReconnectDelay = %v, want %v", cfg.ReconnectDelay, time.Second)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, 10*time.Second)
	}
	if cfg.SnippetSources != "" {
		t.Errorf("SnippetSources = %q, want empty", cfg.SnippetSources)
	}
	if cfg.SnippetAttempts != 2 {
		t.Errorf("SnippetAttempts = %d, want %d", cfg.SnippetAttempts, 2)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("FRONTEND_URL", "https://typing.example.com")
	t.Setenv("RELAY_URL", "wss://relay.example.com/ws")
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "3")
	t.Setenv("RECONNECT_DELAY_MS", "250")
	t.Setenv("SNIPPET_SOURCES", "/etc/codetyper/sources.yaml")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.FrontendURL != "https://typing.example.com" {
		t.Errorf("FrontendURL = %q", cfg.FrontendURL)
	}
	if cfg.RelayURL != "wss://relay.example.com/ws" {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.MaxReconnectAttempts != 3 {
		t.Errorf("MaxReconnectAttempts = %d, want %d", cfg.MaxReconnectAttempts, 3)
	}
	if cfg.ReconnectDelay != 250*time.Millisecond {
		t.Errorf("ReconnectDelay = %v, want %v", cfg.ReconnectDelay, 250*time.Millisecond)
	}
	if cfg.SnippetSources != "/etc/codetyper/sources.yaml" {
		t.Errorf("SnippetSources = %q", cfg.SnippetSources)
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "abc")
	t.Setenv("RECONNECT_DELAY_MS", "-5")
	t.Setenv("SNIPPET_ATTEMPTS", "0")

	cfg := Load()

	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want %d (fallback)", cfg.MaxReconnectAttempts, 5)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Errorf("ReconnectDelay = %v, want %v (fallback)", cfg.ReconnectDelay, time.Second)
	}
	if cfg.SnippetAttempts != 2 {
		t.Errorf("SnippetAttempts = %d, want %d (fallback)", cfg.SnippetAttempts, 2)
	}
}
