package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"instapoem/internal/logging"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "instapoem.yaml"

// Config holds all instapoem configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	History HistoryConfig `yaml:"history"`
	Studio  StudioConfig  `yaml:"studio"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the hosted generative model.
type LLMConfig struct {
	Provider        string  `yaml:"provider"` // only gemini is supported
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Timeout         string  `yaml:"timeout"` // empty: transport default
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// HistoryConfig configures the history store and its backend.
type HistoryConfig struct {
	Backend    string `yaml:"backend"` // file, sqlite, memory
	DataDir    string `yaml:"data_dir"`
	KeepImages int    `yaml:"keep_images"` // records whose image survives in storage
	MaxBytes   int64  `yaml:"max_bytes"`   // capacity of the persisted slot, 0 = unlimited
}

// StudioConfig configures workflow behaviour.
type StudioConfig struct {
	ScheduleDelay    string `yaml:"schedule_delay"`
	QuoteConcurrency int    `yaml:"quote_concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			Temperature:     0.8,
			MaxOutputTokens: 2048,
		},
		History: HistoryConfig{
			Backend:    "file",
			DataDir:    defaultDataDir(),
			KeepImages: 3,
			MaxBytes:   5 * 1024 * 1024,
		},
		Studio: StudioConfig{
			ScheduleDelay:    "1s",
			QuoteConcurrency: 3,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "instapoem")
	}
	return ".instapoem"
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	// GEMINI_API_KEY wins over GOOGLE_API_KEY
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("INSTAPOEM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if dir := os.Getenv("INSTAPOEM_DATA_DIR"); dir != "" {
		c.History.DataDir = dir
	}
	if backend := os.Getenv("INSTAPOEM_BACKEND"); backend != "" {
		c.History.Backend = strings.ToLower(backend)
	}
}

// GetLLMTimeout returns the model call timeout; zero means no explicit timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 0)
}

// GetScheduleDelay returns the artificial delay of the simulated post.
func (c *Config) GetScheduleDelay() time.Duration {
	return parseDuration(c.Studio.ScheduleDelay, time.Second)
}

// GetShutdownTimeout returns the HTTP graceful shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// LogsDir is where categorized logs are written.
func (c *Config) LogsDir() string {
	return filepath.Join(c.History.DataDir, "logs")
}

// LoggingSettings converts the logging section for the logging package.
func (c *Config) LoggingSettings() logging.Settings {
	return logging.Settings{
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
		Categories: c.Logging.Categories,
	}
}

// ValidBackends lists the supported history backends.
var ValidBackends = []string{"file", "sqlite", "memory"}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	valid := false
	for _, b := range ValidBackends {
		if c.History.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid history backend: %s (valid: %v)", c.History.Backend, ValidBackends)
	}
	if c.History.Backend != "memory" && strings.TrimSpace(c.History.DataDir) == "" {
		return fmt.Errorf("history data_dir must be set for the %s backend", c.History.Backend)
	}
	if c.History.KeepImages < 0 {
		return fmt.Errorf("history keep_images must be >= 0")
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("invalid LLM provider: %s (valid: [gemini])", c.LLM.Provider)
	}
	return nil
}

// ValidateLLM checks the settings needed to call the model.
func (c *Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY, or llm.api_key)")
	}
	return nil
}
