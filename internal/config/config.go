// Package config loads client configuration from a config file and environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default model names match the backend deployment.
const (
	DefaultModel      = "gpt-oss:20b"
	DefaultEmbedModel = "bge-m3:latest"
)

// Config holds all configuration values.
type Config struct {
	// LightGraph backend
	ServerURL      string        `yaml:"server_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Ollama runtime (used by warmup; queries go through the backend)
	OllamaHost string `yaml:"ollama_host"`
	Model      string `yaml:"model"`
	EmbedModel string `yaml:"embed_model"`

	// Polling
	PollInterval time.Duration `yaml:"poll_interval"`
	RetryLimit   int           `yaml:"retry_limit"`

	// Local state
	TaskFile string `yaml:"task_file"`

	// Logging
	LogFile string `yaml:"log_file"`
	// LogLevelName is the raw level string from file/env, resolved into LogLevel.
	LogLevelName string     `yaml:"log_level"`
	LogLevel     slog.Level `yaml:"-"`
}

// UnmarshalYAML accepts durations as strings ("500ms", "10s") since yaml.v3
// has no native time.Duration support.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		ServerURL      string `yaml:"server_url"`
		RequestTimeout string `yaml:"request_timeout"`
		OllamaHost     string `yaml:"ollama_host"`
		Model          string `yaml:"model"`
		EmbedModel     string `yaml:"embed_model"`
		PollInterval   string `yaml:"poll_interval"`
		RetryLimit     *int   `yaml:"retry_limit"`
		TaskFile       string `yaml:"task_file"`
		LogFile        string `yaml:"log_file"`
		LogLevelName   string `yaml:"log_level"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setString := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	setDuration := func(dst *time.Duration, val string) {
		if val == "" {
			return
		}
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}

	setString(&c.ServerURL, raw.ServerURL)
	setString(&c.OllamaHost, raw.OllamaHost)
	setString(&c.Model, raw.Model)
	setString(&c.EmbedModel, raw.EmbedModel)
	setString(&c.TaskFile, raw.TaskFile)
	setString(&c.LogFile, raw.LogFile)
	setString(&c.LogLevelName, raw.LogLevelName)
	setDuration(&c.RequestTimeout, raw.RequestTimeout)
	setDuration(&c.PollInterval, raw.PollInterval)
	if raw.RetryLimit != nil {
		c.RetryLimit = *raw.RetryLimit
	}
	return nil
}

// Load reads configuration, lowest precedence first: built-in defaults,
// then ~/.lightgraph/config.yaml if present, then environment variables.
func Load() Config {
	cfg := defaults()

	if path, err := FilePath(); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			// A broken config file falls back to defaults rather than
			// aborting the CLI.
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	applyEnv(&cfg)
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	return cfg
}

func defaults() Config {
	return Config{
		ServerURL:      "http://localhost:8000",
		RequestTimeout: 10 * time.Second,
		OllamaHost:     "http://localhost:11434",
		Model:          DefaultModel,
		EmbedModel:     DefaultEmbedModel,
		PollInterval:   2 * time.Second,
		RetryLimit:     2,
		TaskFile:       filepath.Join(StateDir(), "ingestion_task.json"),
		LogFile:        filepath.Join(StateDir(), "lightgraph.log"),
		LogLevelName:   "INFO",
	}
}

func applyEnv(cfg *Config) {
	setEnv(&cfg.ServerURL, "LIGHTGRAPH_SERVER_URL")
	setEnv(&cfg.OllamaHost, "OLLAMA_HOST")
	setEnv(&cfg.Model, "LIGHTGRAPH_MODEL")
	setEnv(&cfg.EmbedModel, "LIGHTGRAPH_EMBED_MODEL")
	setEnv(&cfg.TaskFile, "LIGHTGRAPH_TASK_FILE")
	setEnv(&cfg.LogFile, "LIGHTGRAPH_LOG_FILE")
	setEnv(&cfg.LogLevelName, "LIGHTGRAPH_LOG_LEVEL")

	setEnvDuration(&cfg.RequestTimeout, "LIGHTGRAPH_CLIENT_TIMEOUT")
	setEnvDuration(&cfg.PollInterval, "LIGHTGRAPH_POLL_INTERVAL")
}

// FilePath returns the path of the optional YAML config file.
func FilePath() (string, error) {
	dir := StateDir()
	if dir == "" {
		return "", fmt.Errorf("cannot determine home directory")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir returns ~/.lightgraph, creating it if possible.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".lightgraph")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func setEnv(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
