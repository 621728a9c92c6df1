package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dkoosis/recommender/internal/analysis"
	"github.com/dkoosis/recommender/internal/config"
	"github.com/dkoosis/recommender/internal/crew"
	"github.com/dkoosis/recommender/internal/history"
	"github.com/dkoosis/recommender/internal/llm"
	"github.com/dkoosis/recommender/internal/search"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile  string
	provider    string
	model       string
	theme       string
	addr        string
	historyPath string
	logFile     string
	noColor     bool
	debug       bool
	noHistory   bool
	maxIter     int
	timeout     time.Duration
}

func newRootCmd(d deps) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "recommender",
		Short:         "Plan a trip in India with two research agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default ./"+config.FileName+" or the user config dir)")
	pf.StringVar(&g.provider, "provider", config.DefaultProvider, "LLM provider: groq, openai, openrouter, gemini")
	pf.StringVar(&g.model, "model", "", "model name (provider default if empty)")
	pf.StringVar(&g.theme, "theme", config.DefaultTheme, "color theme: default, orca, mono")
	pf.StringVar(&g.historyPath, "history", "", "history database path")
	pf.StringVar(&g.logFile, "log-file", "", "write logs to this file")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&g.noHistory, "no-history", false, "do not record runs")
	pf.IntVar(&g.maxIter, "max-iterations", config.DefaultMaxIterations, "reasoning steps per agent task")
	pf.DurationVar(&g.timeout, "timeout", config.DefaultTimeout, "per-request LLM timeout")

	root.AddCommand(
		newPlanCmd(d, g),
		newServeCmd(d, g),
		newHistoryCmd(d, g),
		newVersionCmd(),
	)
	return root
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unexpected arguments %q", args)}
	}
	return nil
}

// loadConfig resolves configuration with only the flags the user set
// overriding file and environment values.
func loadConfig(cmd *cobra.Command, d deps, g *globalFlags) (*config.Config, error) {
	fs := cmd.Flags()
	f := config.Flags{ConfigFile: g.configFile}
	str := func(name string, v *string) *string {
		if fs.Changed(name) {
			return v
		}
		return nil
	}
	boolean := func(name string, v *bool) *bool {
		if fs.Changed(name) {
			return v
		}
		return nil
	}
	f.Provider = str("provider", &g.provider)
	f.Model = str("model", &g.model)
	f.Theme = str("theme", &g.theme)
	f.Addr = str("addr", &g.addr)
	f.HistoryPath = str("history", &g.historyPath)
	f.LogFile = str("log-file", &g.logFile)
	f.NoColor = boolean("no-color", &g.noColor)
	f.Debug = boolean("debug", &g.debug)
	f.NoHistory = boolean("no-history", &g.noHistory)
	if fs.Changed("max-iterations") {
		f.MaxIterations = &g.maxIter
	}
	if fs.Changed("timeout") {
		f.Timeout = &g.timeout
	}
	return config.Load(d.getenv, f)
}

// defaultLogFile is recommender.log in the user config dir, or "" (stderr)
// if that cannot be determined.
func defaultLogFile(cfg *config.Config) string {
	if cfg.LogFile != "" {
		return cfg.LogFile
	}
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "recommender.log")
}

// app holds the services a run needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *history.Store
	runner *analysis.Runner
}

func (d deps) newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	client, err := d.newLLM(ctx, llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: set %s or api_key in %s", err, cfg.APIKeyEnv(), config.FileName)
		}
		return nil, err
	}

	store, err := openHistory(cfg)
	if err != nil {
		log.Warn("history unavailable, runs will not be recorded", zap.Error(err))
		store = history.Disabled()
	}

	tools := searchTools(cfg, log)
	execOpts := []crew.ExecutorOption{
		crew.WithMaxIterations(cfg.MaxIterations),
		crew.WithTemperature(cfg.Temperature),
		crew.WithLogger(log),
	}
	factory := func(out io.Writer) crew.Invoker {
		return crew.NewRecommendationPipeline(client, tools, out, execOpts...)
	}

	opts := []analysis.Option{analysis.WithLogger(log)}
	if store.Enabled() {
		opts = append(opts, analysis.WithRecorder(store))
	}
	return &app{cfg: cfg, log: log, store: store, runner: analysis.NewRunner(factory, opts...)}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openHistory opens the configured store, or a disabled one with --no-history.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.NoHistory {
		return history.Disabled(), nil
	}
	path := cfg.HistoryPath
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return history.Open(path)
}

// searchTools exposes every configured backend to the agents as a single
// web_search tool.
func searchTools(cfg *config.Config, log *zap.Logger) []crew.Tool {
	var backends []search.Tool
	if cfg.Search.SerperAPIKey != "" {
		backends = append(backends, search.NewSerper(cfg.Search.SerperAPIKey))
	}
	if cfg.Search.TavilyAPIKey != "" {
		backends = append(backends, search.NewTavily(cfg.Search.TavilyAPIKey))
	}
	if cfg.UseDuckDuckGo() {
		backends = append(backends, search.NewDuckDuckGo())
	}
	if len(backends) == 0 {
		log.Warn("no search backend configured; agents will answer from the model alone")
		return nil
	}
	return []crew.Tool{crew.FromSearch(search.NewMulti(log, backends...))}
}
