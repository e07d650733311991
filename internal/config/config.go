// Package config loads the engine's runtime configuration from environment
// variables, optionally seeded from a .env file in development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the fully resolved configuration for one engine process.
type Config struct {
	Server    ServerConfig
	Providers ProvidersConfig
	Workspace WorkspaceConfig
}

// Load reads a .env file if present (missing file is not an error), then
// builds Config from the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	workspace, err := loadWorkspaceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    loadServerConfig(),
		Providers: loadProvidersConfig(),
		Workspace: workspace,
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
