package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sessiond/internal/manager"
	"sessiond/internal/registry"
	"sessiond/pkg/types"
)

// generateFlags are per-call overrides for the generate command. Negative
// (or zero MaxTokens) keeps the configured value.
type generateFlags struct {
	MaxTokens   int
	Temperature float32
	Seed        int
	Stats       bool
}

func (g generateFlags) override() *types.GenerationConfig {
	var o types.GenerationConfig
	if g.MaxTokens > 0 {
		o.MaxTokens = &g.MaxTokens
	}
	if g.Temperature >= 0 {
		o.Temperature = &g.Temperature
	}
	if g.Seed >= 0 {
		o.Seed = &g.Seed
	}
	return &o
}

// runGenerate loads the model into a fresh session and streams one
// generation to stdout. SIGINT cancels the generation; the tokens already
// printed stay printed.
func runGenerate(cmd *cobra.Command, opts options, g generateFlags, prompt string) error {
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	if cfg.Model == "" {
		return fmt.Errorf("--model is required")
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg.Backend, log)
	if err != nil {
		return err
	}
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		log.Debug().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed")
	}
	defaults := generationDefaults(cfg)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Engine:      eng,
		Registry:    reg,
		ModelsDir:   cfg.ModelsDir,
		Defaults:    &defaults,
		MaxSessions: 1,
		Logger:      &log,
	})
	defer mgr.Close()

	h, err := mgr.CreateSession(types.CreateSessionRequest{Model: cfg.Model, Config: g.override()})
	if err != nil {
		return err
	}
	s, err := mgr.Session(h)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var writeErr error
	stats, err := s.GenerateStreamStats(ctx, prompt, func(tok string) {
		if writeErr != nil {
			return
		}
		if _, writeErr = fmt.Fprint(out, tok); writeErr != nil {
			s.CancelGeneration()
		}
	}, nil)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if g.Stats {
		fmt.Fprintf(cmd.ErrOrStderr(), "prompt_tokens=%d generated=%d truncated=%v outcome=%s dur=%s\n",
			stats.PromptTokens, stats.Generated, stats.Truncated, stats.Outcome, stats.Duration)
	}
	return nil
}

// cmdContext is the base context for commands run without Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
