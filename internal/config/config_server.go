package config

import (
	"strconv"
	"time"
)

// ServerConfig controls the HTTP listener and its graceful-shutdown window.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

func loadServerConfig() ServerConfig {
	addr := getenvDefault("ENGINE_ADDR", ":8080")
	timeout := 10 * time.Second
	if raw := getenvDefault("ENGINE_SHUTDOWN_TIMEOUT_SECONDS", ""); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return ServerConfig{Addr: addr, ShutdownTimeout: timeout}
}
