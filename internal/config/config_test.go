package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"CUSTOM_API_KEY", "CUSTOM_BASE_URL", "CUSTOM_MODEL",
		"WORKSPACE_ROOT", "ENGINE_ADDR", "ENGINE_SHUTDOWN_TIMEOUT_SECONDS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadProvidersConfig_OmitsUnsetProviders(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := loadProvidersConfig()
	require.NotNil(t, cfg.OpenAI)
	assert.Nil(t, cfg.Anthropic)
	assert.Nil(t, cfg.Custom)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Len(t, cfg.Enabled(), 1)
}

func TestLoadProvidersConfig_RespectsOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("ANTHROPIC_MODEL", "claude-3-opus")

	cfg := loadProvidersConfig()
	require.NotNil(t, cfg.Anthropic)
	assert.Equal(t, "claude-3-opus", cfg.Anthropic.Model)
}

func TestLoadWorkspaceConfig_DefaultsToCwd(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := loadWorkspaceConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Root)
}

func TestLoadWorkspaceConfig_UsesEnvOverride(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	t.Setenv("WORKSPACE_ROOT", dir)

	cfg, err := loadWorkspaceConfig()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
}
