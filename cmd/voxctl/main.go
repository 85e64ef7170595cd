// Command voxctl is the main entry point for the voxctl intent engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voxctl/internal/config"
	pgstore "github.com/MrWong99/voxctl/internal/diag/postgres"
	"github.com/MrWong99/voxctl/internal/dispatch"
	"github.com/MrWong99/voxctl/internal/dispatch/surface"
	"github.com/MrWong99/voxctl/internal/engine"
	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/internal/mode"
	"github.com/MrWong99/voxctl/internal/observe"
	"github.com/MrWong99/voxctl/internal/replay"
	"github.com/MrWong99/voxctl/pkg/provider/arbiter"
	oaarbiter "github.com/MrWong99/voxctl/pkg/provider/arbiter/anyllm"
	oaiarbiter "github.com/MrWong99/voxctl/pkg/provider/arbiter/openai"
	"github.com/MrWong99/voxctl/pkg/provider/source"
	filesource "github.com/MrWong99/voxctl/pkg/provider/source/file"
	wssource "github.com/MrWong99/voxctl/pkg/provider/source/websocket"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	replayPath := flag.String("replay", "", "run a JSONL replay file through the matcher and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxctl: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxctl: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxctl starting",
		"config", *configPath,
		"source", cfg.Source.Kind,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Command registry and matcher ──────────────────────────────────────────
	// A malformed command pattern is the only error worth dying for; the
	// registry is useless with holes in it.
	registry, err := intent.NewRegistry(cfg.Commands.Definitions())
	if err != nil {
		slog.Error("invalid command definitions", "err", err)
		return 1
	}
	matcher := intent.NewMatcher(registry, matcherOptions(cfg)...)

	// ── Replay mode ───────────────────────────────────────────────────────────
	if *replayPath != "" {
		return runReplay(*replayPath, matcher)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry providers ───────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voxctl",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg.Server.MetricsAddr)
	}

	// ── Utterance source ──────────────────────────────────────────────────────
	src, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to build utterance source", "err", err)
		return 1
	}

	// ── Engine options ────────────────────────────────────────────────────────
	opts := []engine.Option{
		engine.WithLogger(logger),
	}
	if cfg.Engine.QueueSize > 0 {
		opts = append(opts, engine.WithQueueSize(cfg.Engine.QueueSize))
	}
	if cfg.Engine.Backpressure != "" {
		opts = append(opts, engine.WithBackpressure(engine.BackpressurePolicy(cfg.Engine.Backpressure)))
	}

	arb, err := buildArbiter(cfg)
	if err != nil {
		slog.Error("failed to build arbiter provider", "err", err)
		return 1
	}
	if arb != nil {
		opts = append(opts, engine.WithArbiter(arb, cfg.Arbiter.Timeout))
		slog.Info("arbiter enabled", "provider", arb.Name())
	} else {
		slog.Info("arbiter disabled — ambiguous segments fall back to dictation")
	}

	var store *pgstore.Store
	if cfg.Telemetry.PostgresDSN != "" {
		store, err = pgstore.NewStore(ctx, cfg.Telemetry.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect telemetry store", "err", err)
			return 1
		}
		defer store.Close()
		opts = append(opts, engine.WithRecorder(store))
		slog.Info("segment telemetry store connected")
	}

	// ── Mode machine and dispatch ─────────────────────────────────────────────
	modes := mode.New(mode.WithChangeHook(func(old, new mode.State) {
		slog.Info("mode transition", "from", string(old), "to", string(new))
	}))

	metrics := observe.DefaultMetrics()
	out := &surface.Log{Logger: logger}
	router := dispatch.NewRouter(out, out,
		dispatch.WithLogger(logger),
		dispatch.WithErrorHook(func(stage intent.Stage) {
			metrics.RecordDispatchFailure(context.Background(), string(stage))
		}),
	)

	eng, err := engine.New(src, matcher, registry, modes, router, opts...)
	if err != nil {
		slog.Error("failed to initialise engine", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, registry, arb)

	slog.Info("engine ready — press Ctrl+C to shut down")

	sessionStart := time.Now()
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping…")
	report := eng.Latency()
	slog.Info("session latency",
		"segments", report.Count,
		"p50", report.P50,
		"p95", report.P95,
		"healthy", report.Healthy(),
	)
	if store != nil {
		countCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if counts, err := store.StageCounts(countCtx, sessionStart); err != nil {
			slog.Warn("stage count query failed", "err", err)
		} else {
			slog.Info("session stage counts", "counts", counts)
		}
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmBackends are the decision-model backends reachable through the
// any-llm bridge. "openai" routes through the native client instead.
var anyllmBackends = []string{
	"anthropic", "gemini", "ollama", "llamacpp",
	"llamafile", "mistral", "groq", "deepseek",
}

func buildSource(cfg *config.Config) (source.Provider, error) {
	switch cfg.Source.Kind {
	case "", "websocket":
		url := cfg.Source.URL
		if url == "" {
			url = "ws://127.0.0.1:7700/utterances"
		}
		var opts []wssource.Option
		if cfg.Source.AuthToken != "" {
			opts = append(opts, wssource.WithHeader("Authorization", "Bearer "+cfg.Source.AuthToken))
		}
		return wssource.New(url, opts...)
	case "file":
		return filesource.New(cfg.Source.Path, filesource.WithPacing())
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

func buildArbiter(cfg *config.Config) (arbiter.Provider, error) {
	name := cfg.Arbiter.Provider
	if name == "" {
		return nil, nil
	}

	if name == "openai" {
		var opts []oaiarbiter.Option
		if cfg.Arbiter.BaseURL != "" {
			opts = append(opts, oaiarbiter.WithBaseURL(cfg.Arbiter.BaseURL))
		}
		if cfg.Arbiter.Timeout > 0 {
			opts = append(opts, oaiarbiter.WithTimeout(cfg.Arbiter.Timeout))
		}
		return oaiarbiter.New(cfg.Arbiter.APIKey, cfg.Arbiter.Model, opts...)
	}

	for _, backend := range anyllmBackends {
		if backend != name {
			continue
		}
		var opts []anyllmlib.Option
		if cfg.Arbiter.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.Arbiter.APIKey))
		}
		if cfg.Arbiter.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.Arbiter.BaseURL))
		}
		return oaarbiter.New(name, cfg.Arbiter.Model, opts...)
	}
	return nil, fmt.Errorf("unknown arbiter provider %q", name)
}

func matcherOptions(cfg *config.Config) []intent.MatcherOption {
	var opts []intent.MatcherOption
	if cfg.Engine.ConfidenceThreshold > 0 {
		opts = append(opts, intent.WithThreshold(cfg.Engine.ConfidenceThreshold))
	}
	var natoOpts []intent.NATOOption
	if cfg.Engine.NATOFuzzyThreshold > 0 {
		natoOpts = append(natoOpts, intent.WithNATOFuzzyThreshold(cfg.Engine.NATOFuzzyThreshold))
	}
	if cfg.Engine.DisableNATOAssist {
		natoOpts = append(natoOpts, intent.WithoutNATOPhoneticAssist())
	}
	if len(natoOpts) > 0 {
		opts = append(opts, intent.WithNATO(intent.NewNATO(natoOpts...)))
	}
	return opts
}

// ── Replay mode ───────────────────────────────────────────────────────────────

// runReplay drives a recorded session through the matcher without touching
// sources, arbiters, or dispatch surfaces. Exit code 1 on any mismatch.
func runReplay(path string, matcher *intent.Matcher) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxctl: replay: %v\n", err)
		return 1
	}
	defer f.Close()

	cases, err := replay.ParseCases(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxctl: replay: %v\n", err)
		return 1
	}

	report, err := replay.Run(context.Background(), matcher, cases)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxctl: replay: %v\n", err)
		return 1
	}
	fmt.Println(report)
	if !report.OK() {
		return 1
	}
	return 0
}

// ── Metrics endpoint ──────────────────────────────────────────────────────────

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("metrics endpoint error", "err", err)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, registry *intent.Registry, arb arbiter.Provider) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          voxctl — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Source", sourceSummary(cfg))
	if arb != nil {
		printRow("Arbiter", arb.Name())
	} else {
		printRow("Arbiter", "(disabled)")
	}
	if cfg.Telemetry.PostgresDSN != "" {
		printRow("Telemetry", "postgres")
	} else {
		printRow("Telemetry", "(disabled)")
	}
	fmt.Printf("║  Commands        : %-19d ║\n", len(registry.Names()))
	if cfg.Server.MetricsAddr != "" {
		printRow("Metrics", cfg.Server.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func sourceSummary(cfg *config.Config) string {
	if cfg.Source.Kind == "file" {
		return "file / " + cfg.Source.Path
	}
	return "websocket / " + cfg.Source.URL
}

func printRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
