package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/config"
	"sessiond/internal/engine"
	"sessiond/internal/engine/llamacpp"
	"sessiond/internal/engine/mock"
	"sessiond/internal/manager"
	"sessiond/internal/session"
)

// Defaults applied when neither the config file nor a flag sets a value.
const (
	defaultAddr      = ":8080"
	defaultModelsDir = "~/models/llm"
	defaultLogLevel  = "info"
)

// options collects flag values. Zero values mean "unset" so a config file
// value survives.
type options struct {
	ConfigPath  string
	Addr        string
	ModelsDir   string
	Model       string
	Backend     string
	LogLevel    string
	LogFormat   string
	MaxSessions int

	MaxBodyBytes    int64
	GenerateTimeout int64
	CORSOrigins     string
}

// resolve loads the config file, if any, and applies flag overrides and
// defaults on top of it.
func (o options) resolve() (config.Config, error) {
	var cfg config.Config
	if o.ConfigPath != "" {
		c, err := config.Load(o.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	setStr := func(dst *string, flag, def string) {
		if flag != "" {
			*dst = flag
		}
		if *dst == "" {
			*dst = def
		}
	}
	// SESSIOND_ADDR sits between the config file and the flag.
	setStr(&cfg.Addr, firstNonEmpty(o.Addr, os.Getenv("SESSIOND_ADDR")), defaultAddr)
	setStr(&cfg.ModelsDir, o.ModelsDir, defaultModelsDir)
	setStr(&cfg.Model, o.Model, "")
	setStr(&cfg.Backend, o.Backend, "")
	setStr(&cfg.LogLevel, o.LogLevel, defaultLogLevel)
	setStr(&cfg.LogFormat, o.LogFormat, "console")
	if o.MaxSessions > 0 {
		cfg.MaxSessions = o.MaxSessions
	}
	if o.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.GenerateTimeout > 0 {
		cfg.GenerateTimeoutSeconds = o.GenerateTimeout
	}
	if origins := splitCSV(o.CORSOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = origins
	}
	return cfg, cfg.Validate()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// newLogger builds a console or JSON zerolog logger at level.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// newEngine picks the inference backend. An empty backend prefers the
// native engine when it is compiled in.
func newEngine(backend string, log zerolog.Logger) (engine.Engine, error) {
	switch backend {
	case "mock":
		return mock.New(mock.Options{RequireFile: true}), nil
	case "llama":
		return llamacpp.New()
	case "":
		if llamacpp.Available() {
			return llamacpp.New()
		}
		log.Warn().Msg("llama.cpp engine not built; using mock backend")
		return mock.New(mock.Options{RequireFile: true}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// generationDefaults overlays the configured generation settings on the
// built-in defaults.
func generationDefaults(cfg config.Config) session.GenerationConfig {
	return manager.MergeConfig(session.DefaultGenerationConfig(), &cfg.Generation)
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
