package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/httpapi"
	"chatd/internal/logging"
	"chatd/internal/manager"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, mgr, err := buildService(cfg, manager.NewLlamaBackend(cfg.LlamaThreads), &log)
	if err != nil {
		return err
	}
	defer func() {
		// Handlers observe the canceled base context and release their
		// leases; Close frees each model once that happens.
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mgr.Close(cctx); err != nil {
			log.Warn().Err(err).Msg("closing models")
		}
	}()
	if !manager.LlamaBuilt() {
		log.Warn().Msg("built without the llama tag: model loads will fail with 503")
	}

	startModels(ctx, cfg, mgr, log)
	if idle := cfg.SessionIdle(); idle > 0 {
		go expireSessions(ctx, svc, idle)
	}

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetChatTimeout(cfg.InferTimeout())
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Strs("models", mgr.ListConfigured()).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// buildService wires the catalog, manager and chat service from cfg.
func buildService(cfg config.Config, backend manager.Backend, log *zerolog.Logger) (*chat.Service, *manager.Manager, error) {
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, nil, err
	}
	formatters, err := cfg.FormatterRegistry()
	if err != nil {
		return nil, nil, err
	}
	mgr := manager.New(manager.Config{
		Catalog:       cat,
		Backend:       backend,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		Logger:        log,
		Publisher:     manager.NewMemoryPublisher(256),
	})
	svc := chat.New(chat.Options{
		Manager:         mgr,
		Presets:         cfg.DecodingTable(),
		Formatters:      formatters,
		SystemPrompt:    cfg.SystemPrompt,
		MaxSessionTurns: cfg.MaxSessionTurns,
		Logger:          log,
	})
	return svc, mgr, nil
}

// startModels preloads flagged models and switches in the default model.
// Failures are logged; the server still starts.
func startModels(ctx context.Context, cfg config.Config, mgr *manager.Manager, log zerolog.Logger) {
	if err := mgr.Preload(ctx, cfg.PreloadParallel); err != nil {
		log.Warn().Err(err).Msg("preload incomplete")
	}
	if cfg.DefaultModel == "" {
		return
	}
	if name, err := mgr.SwitchActive(ctx, cfg.DefaultModel); err != nil {
		log.Error().Err(err).Str("model", cfg.DefaultModel).Msg("default model not loaded")
	} else {
		log.Info().Str("model", name).Msg("default model active")
	}
}

func expireSessions(ctx context.Context, svc *chat.Service, idle time.Duration) {
	t := time.NewTicker(idle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			svc.ExpireSessions(idle)
		}
	}
}
