// Package config provides the configuration schema and loader for the
// voxctl engine.
package config

import (
	"time"

	"github.com/MrWong99/voxctl/internal/intent"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded
// from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Engine    EngineConfig    `yaml:"engine"`
	Arbiter   ArbiterConfig   `yaml:"arbiter"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Commands extends or replaces the built-in command set.
	Commands CommandsConfig `yaml:"commands"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// SourceConfig selects the utterance source.
type SourceConfig struct {
	// Kind is "websocket" or "file".
	Kind string `yaml:"kind"`

	// URL is the recognizer daemon endpoint for the websocket source.
	URL string `yaml:"url"`

	// Path is the JSONL recording for the file source.
	Path string `yaml:"path"`

	// AuthToken, when set, is sent as an Authorization header to the
	// websocket source.
	AuthToken string `yaml:"auth_token"`
}

// EngineConfig tunes the queue and the matching pipeline.
type EngineConfig struct {
	// QueueSize is the utterance queue capacity. Default: 16.
	QueueSize int `yaml:"queue_size"`

	// Backpressure is "block" or "drop-oldest". Default: "block".
	Backpressure string `yaml:"backpressure"`

	// ConfidenceThreshold is the ambiguity floor. Default: 0.9.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// NATOFuzzyThreshold is the Jaro-Winkler floor for the codeword
	// phonetic assist. Default: 0.86.
	NATOFuzzyThreshold float64 `yaml:"nato_fuzzy_threshold"`

	// DisableNATOAssist turns the phonetic assist off entirely.
	DisableNATOAssist bool `yaml:"disable_nato_assist"`
}

// ArbiterConfig selects and tunes the decision model.
type ArbiterConfig struct {
	// Provider is "openai", one of the any-llm-go backends ("ollama",
	// "anthropic", "llamacpp", ...), or empty to disable arbitration.
	Provider string `yaml:"provider"`

	// Model is the model name (e.g., "gpt-4o-mini", "qwen2.5:1.5b").
	Model string `yaml:"model"`

	// APIKey authenticates remote backends. Local backends ignore it.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each consultation. Default: 600ms.
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig configures the optional persistence sink.
type TelemetryConfig struct {
	// PostgresDSN enables the per-segment telemetry store when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CommandsConfig controls the command registry contents.
type CommandsConfig struct {
	// ReplaceDefaults drops the built-in command set instead of
	// extending it.
	ReplaceDefaults bool `yaml:"replace_defaults"`

	// Extra is appended to (or replaces) the built-in definitions.
	Extra []intent.Definition `yaml:"extra"`
}

// Definitions resolves the effective command definitions.
func (c CommandsConfig) Definitions() []intent.Definition {
	if c.ReplaceDefaults {
		return c.Extra
	}
	return append(intent.DefaultDefinitions(), c.Extra...)
}
