package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessiond/internal/engine/llamacpp"
	"sessiond/internal/version"
)

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&options{}) }

// buildRootCmdWith constructs the command tree writing flags into opts.
func buildRootCmdWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessiond",
		Short:         "On-device LLM generation sessions over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files (default ~/models/llm)")
	pf.StringVar(&opts.Backend, "backend", "", "Inference backend: mock|llama (default llama when built, else mock)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error (default info)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "Log format: console|json (default console)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *opts)
		},
	}
	sf := serveCmd.Flags()
	sf.StringVar(&opts.Addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults SESSIOND_ADDR or :8080)")
	sf.StringVar(&opts.Model, "model", "", "Model id or path to load into an initial session")
	sf.IntVar(&opts.MaxSessions, "max-sessions", 0, "Maximum live sessions (0=default)")
	sf.Int64Var(&opts.MaxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size (0=1MiB)")
	sf.Int64Var(&opts.GenerateTimeout, "generate-timeout", 0, "Per-request generate timeout in seconds (0=none)")
	sf.StringVar(&opts.CORSOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")

	gen := &generateFlags{}
	generateCmd := &cobra.Command{
		Use:     "generate [prompt]",
		Short:   "Stream one generation to stdout (Ctrl+C cancels)",
		Example: "  sessiond generate --model tinyllama.Q4_K_M.gguf \"Write a haiku\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, *opts, *gen, args[0])
		},
	}
	gf := generateCmd.Flags()
	gf.StringVar(&opts.Model, "model", "", "Model id or path (required)")
	gf.IntVar(&gen.MaxTokens, "max-tokens", 0, "Maximum tokens to generate (0=configured default)")
	gf.Float32Var(&gen.Temperature, "temperature", -1, "Sampling temperature (negative=configured default)")
	gf.IntVar(&gen.Seed, "seed", -1, "Sampler seed (negative=configured default)")
	gf.BoolVar(&gen.Stats, "stats", false, "Print generation stats to stderr")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if llamacpp.Available() {
				name = llamacpp.Name
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String(name))
			return err
		},
	}

	root.AddCommand(serveCmd, generateCmd, versionCmd)
	return root
}
