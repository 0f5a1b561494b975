package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tailored-agentic-units/tradedesk/kernel"
	"github.com/tailored-agentic-units/tradedesk/observability"
	"github.com/tailored-agentic-units/tradedesk/server"
)

const version = "0.1.0"

// fileConfig is the on-disk config: kernel sections plus the server section.
type fileConfig struct {
	Server server.Config `json:"server" yaml:"server"`
}

func main() {
	var (
		configFile    = flag.String("config", "", "Path to config file, JSON or YAML (optional)")
		sessionID     = flag.String("session", "2", "Session (thread) ID")
		prompt        = flag.String("prompt", "", "Send a single prompt instead of the trading script")
		systemPrompt  = flag.String("system-prompt", "", "System prompt (overrides config)")
		memoryPath    = flag.String("memory", "", "Path to memory directory (overrides config)")
		maxIterations = flag.Int("max-iterations", -1, "Maximum loop iterations; 0 for unlimited (overrides config)")
		serve         = flag.String("serve", "", "Serve the RPC API on this address instead of running the script")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging to stderr")
		traceOut      = flag.Bool("trace", false, "Export spans as JSON to stderr")
	)
	flag.Parse()

	cfg := kernel.DefaultConfig()
	srvCfg := server.DefaultConfig()
	if *configFile != "" {
		loaded, err := kernel.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded

		var fc fileConfig
		if err := kernel.DecodeFile(*configFile, &fc); err != nil {
			log.Fatalf("Failed to load server config: %v", err)
		}
		srvCfg.Merge(&fc.Server)
	}

	if *systemPrompt != "" {
		cfg.SystemPrompt = *systemPrompt
	}
	if *memoryPath != "" {
		cfg.Memory.Path = *memoryPath
	}
	if *maxIterations >= 0 {
		cfg.MaxIterations = *maxIterations
	}
	if *serve != "" {
		srvCfg.Addr = *serve
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *traceOut {
		shutdown, err := observability.InitTracing("tradedesk", version, os.Stderr)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("trace shutdown failed", "error", err)
			}
		}()
	}

	runtime, err := kernel.New(ctx, &cfg)
	if err != nil {
		log.Fatalf("Failed to create kernel runtime: %v", err)
	}
	defer runtime.Close(context.WithoutCancel(ctx))

	if *serve != "" {
		observer, err := observability.Observers(cfg.Observers...)
		if err != nil {
			log.Fatalf("Failed to create observer: %v", err)
		}
		if err := server.New(&srvCfg, runtime, observer).ListenAndServe(ctx); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	messages := script
	if *prompt != "" {
		messages = []string{*prompt}
	}

	if err := converse(ctx, runtime, *sessionID, messages, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Kernel run failed: %v\n", err)
		os.Exit(1)
	}
}
