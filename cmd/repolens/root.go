package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens"
)

var (
	flagConfig   string
	flagDB       string
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Code quality analysis for source repositories",
	Long: `RepoLens runs an LLM over a repository to assess logging,
availability, and error handling, maps the main abstractions, and
stores the finished report for hybrid vector and full-text search.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(flagLogLevel, flagLogJSON)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to a JSON or YAML config file")
	pf.StringVar(&flagDB, "db", "", "report database path (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&flagLogJSON, "log-json", false, "log as JSON instead of text")
}

// setupLogging installs the default slog handler on stderr so command
// output on stdout stays clean.
func setupLogging(level string, asJSON bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if asJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// buildConfig resolves the engine configuration: defaults, then the
// config file when --config is set, then REPOLENS_* environment
// variables, then flag overrides.
func buildConfig() (repolens.Config, error) {
	cfg := repolens.DefaultConfig()
	if flagConfig != "" {
		var err error
		cfg, err = repolens.LoadConfig(flagConfig)
		if err != nil {
			return repolens.Config{}, err
		}
	}
	cfg = cfg.ApplyEnv()

	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.Chat.APIKey == "" {
		cfg.Chat.APIKey = wellKnownAPIKey(cfg.Chat.Provider)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = wellKnownAPIKey(cfg.Embedding.Provider)
	}
	return cfg, nil
}

func wellKnownAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "xai":
		return os.Getenv("XAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

// buildEngine constructs the engine from the resolved configuration.
// Callers own the returned engine and must Close it.
func buildEngine() (repolens.Engine, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return repolens.New(cfg)
}
