package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	yml := `
server:
  log_level: debug
  metrics_addr: ":9090"
source:
  kind: websocket
  url: ws://localhost:7700/utterances
engine:
  queue_size: 32
  backpressure: drop-oldest
  confidence_threshold: 0.85
arbiter:
  provider: ollama
  model: qwen2.5:1.5b
  timeout: 600ms
telemetry:
  postgres_dsn: postgres://voxctl@localhost/voxctl
commands:
  extra:
    - name: comment line
      pattern: comment line
      kind: keystroke
      payload: ctrl+slash
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Source.Kind != "websocket" || cfg.Source.URL == "" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Engine.QueueSize != 32 || cfg.Engine.Backpressure != "drop-oldest" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Arbiter.Timeout != 600*time.Millisecond {
		t.Errorf("arbiter.timeout = %v", cfg.Arbiter.Timeout)
	}

	defs := cfg.Commands.Definitions()
	found := false
	for _, d := range defs {
		if d.Name == "comment line" {
			found = true
		}
	}
	if !found {
		t.Error("extra command missing from effective definitions")
	}
	if len(defs) <= len(cfg.Commands.Extra) {
		t.Error("defaults should be retained when replace_defaults is unset")
	}
}

func TestReplaceDefaults(t *testing.T) {
	t.Parallel()

	yml := `
commands:
  replace_defaults: true
  extra:
    - name: only
      pattern: only
      kind: keystroke
      payload: f1
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatal(err)
	}
	if defs := cfg.Commands.Definitions(); len(defs) != 1 || defs[0].Name != "only" {
		t.Errorf("definitions = %v, want just the replacement", defs)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	t.Parallel()

	if _, err := LoadFromReader(strings.NewReader("serverr:\n  log_level: info\n")); err == nil {
		t.Fatal("typoed key must be rejected")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	yml := `
server:
  log_level: loud
source:
  kind: telepathy
engine:
  confidence_threshold: 3
arbiter:
  provider: ollama
`
	_, err := LoadFromReader(strings.NewReader(yml))
	if err == nil {
		t.Fatal("invalid config must be rejected")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "source.kind", "confidence_threshold", "arbiter.model"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestEmptyConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil {
		t.Fatal("nil config")
	}
}
