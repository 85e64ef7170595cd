package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	switch cfg.Source.Kind {
	case "", "websocket", "file":
	default:
		errs = append(errs, fmt.Errorf("source.kind %q is invalid; valid values: websocket, file", cfg.Source.Kind))
	}
	if cfg.Source.Kind == "websocket" && cfg.Source.URL == "" {
		errs = append(errs, errors.New("source.url is required for the websocket source"))
	}
	if cfg.Source.Kind == "file" && cfg.Source.Path == "" {
		errs = append(errs, errors.New("source.path is required for the file source"))
	}

	switch cfg.Engine.Backpressure {
	case "", "block", "drop-oldest":
	default:
		errs = append(errs, fmt.Errorf("engine.backpressure %q is invalid; valid values: block, drop-oldest", cfg.Engine.Backpressure))
	}
	if cfg.Engine.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("engine.queue_size must not be negative, got %d", cfg.Engine.QueueSize))
	}
	if t := cfg.Engine.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("engine.confidence_threshold must be within [0, 1], got %v", t))
	}
	if t := cfg.Engine.NATOFuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("engine.nato_fuzzy_threshold must be within [0, 1], got %v", t))
	}

	if cfg.Arbiter.Provider != "" && cfg.Arbiter.Model == "" {
		errs = append(errs, errors.New("arbiter.model is required when arbiter.provider is set"))
	}
	if cfg.Arbiter.Timeout < 0 {
		errs = append(errs, fmt.Errorf("arbiter.timeout must not be negative, got %v", cfg.Arbiter.Timeout))
	}

	return errors.Join(errs...)
}
