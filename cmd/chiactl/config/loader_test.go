package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".chia", "chiactl.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "default config should be written")
	assert.Equal(t, []string{"docker", "compose"}, cfg.Compose.Command)
	require.NotEmpty(t, cfg.Services)

	ollama, err := cfg.FindService("ollama")
	require.NoError(t, err)
	assert.True(t, ollama.SupportsGPU())
	assert.Equal(t, "OLLAMA_GPU_COUNT", ollama.AcceleratorKey)
	assert.True(t, ollama.Models)
}

func TestLoadFileParsesOperatorConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chiactl.yaml")
	content := `
compose:
  command: ["podman-compose"]
services:
  - name: ollama
    dir: /srv/ollama
    compose_file: compose.yaml
    gpu_overlay_file: compose.gpu.yaml
    env_file: .env
    accelerator_key: OLLAMA_GPU_COUNT
    health:
      type: http
      url: http://localhost:11434/api/version
      timeout_seconds: 60
      interval_seconds: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"podman-compose"}, cfg.Compose.Command)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, 60, cfg.Services[0].Health.TimeoutSeconds)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() ChiaConfig { return DefaultConfig() }

	tests := []struct {
		name   string
		mutate func(*ChiaConfig)
	}{
		{"no services", func(c *ChiaConfig) { c.Services = nil }},
		{"no compose command", func(c *ChiaConfig) { c.Compose.Command = nil }},
		{"service without name", func(c *ChiaConfig) { c.Services[0].Name = "" }},
		{"service without env file", func(c *ChiaConfig) { c.Services[0].EnvFile = "" }},
		{"gpu overlay without accelerator key", func(c *ChiaConfig) { c.Services[0].AcceleratorKey = "" }},
		{"http health without url", func(c *ChiaConfig) { c.Services[0].Health.URL = "" }},
		{"bad health type", func(c *ChiaConfig) { c.Services[0].Health.Type = "tcp" }},
		{"duplicate names", func(c *ChiaConfig) { c.Services[1].Name = c.Services[0].Name }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestFindServiceUnknownName(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.FindService("minio")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestServiceSpecPrimary(t *testing.T) {
	assert.Equal(t, "opensearch", ServiceSpec{Name: "impactu", ContainerService: "opensearch"}.Primary())
	assert.Equal(t, "ollama", ServiceSpec{Name: "ollama"}.Primary())
}
