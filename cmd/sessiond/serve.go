package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sessiond/internal/httpapi"
	"sessiond/internal/manager"
	"sessiond/internal/registry"
	"sessiond/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, opts options) error {
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	// A missing models dir is not fatal: explicit paths still load.
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed")
	}
	eng, engErr := newEngine(cfg.Backend, log)
	if engErr != nil {
		log.Error().Err(engErr).Msg("inference engine unavailable; serving without it")
	}
	defaults := generationDefaults(cfg)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Engine:      eng,
		EngineErr:   engErr,
		Registry:    reg,
		ModelsDir:   cfg.ModelsDir,
		Defaults:    &defaults,
		MaxSessions: cfg.MaxSessions,
		Logger:      &log,
	})
	defer mgr.Close()

	if cfg.Model != "" {
		h, err := mgr.CreateSession(types.CreateSessionRequest{Model: cfg.Model})
		if err != nil {
			return err
		}
		log.Info().Str("session", h.String()).Str("model", cfg.Model).Msg("initial session ready")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeoutSeconds(cfg.GenerateTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Str("version", mgr.Version()).Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
