package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "INSTAPOEM_MODEL", "INSTAPOEM_DATA_DIR", "INSTAPOEM_BACKEND"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.LLM.Model, cfg.LLM.Model)
	assert.Equal(t, "file", cfg.History.Backend)
	assert.Equal(t, 3, cfg.History.KeepImages)
	assert.Equal(t, time.Second, cfg.GetScheduleDelay())
	assert.Zero(t, cfg.GetLLMTimeout())
}

func TestLoad_ParsesYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "instapoem.yaml")
	content := `
llm:
  model: gemini-2.5-pro
  timeout: 45s
history:
  backend: sqlite
  data_dir: /tmp/poems
  keep_images: 5
studio:
  schedule_delay: 250ms
logging:
  debug_mode: true
  categories:
    api: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "/tmp/poems", cfg.History.DataDir)
	assert.Equal(t, 5, cfg.History.KeepImages)
	assert.Equal(t, 250*time.Millisecond, cfg.GetScheduleDelay())
	assert.True(t, cfg.Logging.DebugMode)
	assert.False(t, cfg.LoggingSettings().Categories["api"])
	// untouched keys keep defaults
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	})

	t.Run("GOOGLE_API_KEY alone", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "google-key", cfg.LLM.APIKey)
	})

	t.Run("data dir, model and backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("INSTAPOEM_DATA_DIR", "/data")
		t.Setenv("INSTAPOEM_MODEL", "gemini-x")
		t.Setenv("INSTAPOEM_BACKEND", "SQLite")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/data", cfg.History.DataDir)
		assert.Equal(t, "gemini-x", cfg.LLM.Model)
		assert.Equal(t, "sqlite", cfg.History.Backend)
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.History.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LLM.Provider = "openai"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.History.KeepImages = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	assert.Error(t, cfg.ValidateLLM())
	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.ValidateLLM())
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "instapoem.yaml")
	cfg := DefaultConfig()
	cfg.History.DataDir = "/srv/poems"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/poems", loaded.History.DataDir)
}

func TestParseDurationFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Studio.ScheduleDelay = "soon"
	assert.Equal(t, time.Second, cfg.GetScheduleDelay())
	cfg.Server.ShutdownTimeout = "-3s"
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeout())
}
