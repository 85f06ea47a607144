// Command coachly is the main entry point for the Coachly interview
// coaching server.
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

	"github.com/joho/godotenv"

	"github.com/coachly-ai/coachly/internal/config"
	"github.com/coachly-ai/coachly/internal/generate"
	"github.com/coachly-ai/coachly/internal/health"
	"github.com/coachly-ai/coachly/internal/history"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/loop"
	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/server"
	"github.com/coachly-ai/coachly/internal/voice"
	oaembed "github.com/coachly-ai/coachly/pkg/provider/embeddings/openai"
	"github.com/coachly-ai/coachly/pkg/provider/stt"
	"github.com/coachly-ai/coachly/pkg/provider/stt/deepgram"
	"github.com/coachly-ai/coachly/pkg/provider/tts"
	"github.com/coachly-ai/coachly/pkg/provider/tts/elevenlabs"
	"github.com/coachly-ai/coachly/pkg/types"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load .env when present; a missing file is fine since the process
	// environment is authoritative.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "coachly: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "coachly: %v\n", err)
		}
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(toSlogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("coachly starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "coachly"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

	// Generation backends. The secondary (budget) backend is preferred with
	// the primary behind a circuit breaker.
	provider, err := generate.BuildProvider(
		backendConfig(cfg.Providers.LLM.Primary),
		backendConfig(cfg.Providers.LLM.Secondary),
		logger,
	)
	if err != nil {
		slog.Error("failed to build generation backends", "error", err)
		return 1
	}
	client := generate.NewClient(provider)

	// Persistent history with semantic repeat detection (optional).
	var (
		pipelineOpts []loop.Option
		checkers     []health.Checker
	)
	if cfg.History.Enabled {
		embedder, err := oaembed.New(cfg.Providers.Embeddings.APIKey, cfg.Providers.Embeddings.Model)
		if err != nil {
			slog.Error("failed to build embeddings provider", "error", err)
			return 1
		}
		var storeOpts []history.StoreOption
		if cfg.History.EmbeddingDimensions > 0 {
			storeOpts = append(storeOpts, history.WithExpectedDimensions(cfg.History.EmbeddingDimensions))
		}
		store, err := history.NewPostgresStore(ctx, cfg.History.PostgresDSN, embedder, storeOpts...)
		if err != nil {
			slog.Error("failed to connect history store", "error", err)
			return 1
		}
		defer store.Close()
		pipelineOpts = append(pipelineOpts, loop.WithStore(store))
		checkers = append(checkers, health.Checker{Name: "history", Check: store.Ping})
		slog.Info("history store connected")
	}

	pipeline := loop.New(client, pipelineOpts...)

	// Voice providers (optional; the voice endpoint is mounted only when
	// transcription is configured).
	var voiceCfg voice.Config
	if cfg.Providers.STT.Name != "" {
		sttProvider, ttsProvider, err := buildVoiceProviders(cfg)
		if err != nil {
			slog.Error("failed to build voice providers", "error", err)
			return 1
		}
		voiceCfg = voice.Config{
			LLM:               provider,
			STT:               sttProvider,
			TTS:               ttsProvider,
			Voice:             types.VoiceProfile{ID: cfg.Providers.TTS.VoiceID},
			PlanTier:          interview.PlanTier(cfg.Pipeline.DefaultPlanTier),
			GenerationTimeout: cfg.Pipeline.GenerationTimeout,
		}
		slog.Info("voice session enabled", "stt", cfg.Providers.STT.Name, "tts", cfg.Providers.TTS.Name)
	}

	srv := server.New(pipeline,
		server.WithVoice(voiceCfg),
		server.WithHealth(health.New(checkers...)),
		server.WithDefaults(
			interview.PlanTier(cfg.Pipeline.DefaultPlanTier),
			interview.Mode(cfg.Pipeline.DefaultMode),
		),
		server.WithLogger(logger),
	)

	// Hot-reload the log level on config file changes; everything else
	// requires a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		cs := config.Diff(old, new)
		if cs.LogLevelChanged {
			level.Set(toSlogLevel(cs.NewLogLevel))
			slog.Info("log level updated", "level", cs.NewLogLevel)
		}
		if cs.PipelineChanged {
			slog.Warn("pipeline defaults changed in config; restart to apply")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "error", err)
		return 1
	}
	defer watcher.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming websocket responses have no deadline
		IdleTimeout:  2 * time.Minute,
	}
	if httpServer.Addr == "" {
		httpServer.Addr = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", httpServer.Addr)
		if tls := cfg.Server.TLS; tls != nil {
			errCh <- httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func backendConfig(e config.BackendEntry) generate.BackendConfig {
	return generate.BackendConfig{
		Name:      e.Name,
		APIKey:    e.APIKey,
		BaseURL:   e.BaseURL,
		ChatModel: e.ChatModel,
		FastModel: e.FastModel,
	}
}

func buildVoiceProviders(cfg *config.Config) (stt.Provider, tts.Provider, error) {
	var sttOpts []deepgram.Option
	if cfg.Providers.STT.Model != "" {
		sttOpts = append(sttOpts, deepgram.WithModel(cfg.Providers.STT.Model))
	}
	sttProvider, err := deepgram.New(cfg.Providers.STT.APIKey, sttOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("stt: %w", err)
	}

	var ttsProvider tts.Provider
	if cfg.Providers.TTS.Name != "" {
		var ttsOpts []elevenlabs.Option
		if cfg.Providers.TTS.Model != "" {
			ttsOpts = append(ttsOpts, elevenlabs.WithModel(cfg.Providers.TTS.Model))
		}
		ttsProvider, err = elevenlabs.New(cfg.Providers.TTS.APIKey, ttsOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("tts: %w", err)
		}
	}
	return sttProvider, ttsProvider, nil
}

func toSlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
