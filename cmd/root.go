package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/agent"
	"github.com/timvw/pane-relay/internal/config"
	"github.com/timvw/pane-relay/internal/delivery"
	"github.com/timvw/pane-relay/internal/journal"
	"github.com/timvw/pane-relay/internal/logs"
	"github.com/timvw/pane-relay/internal/mapping"
	"github.com/timvw/pane-relay/internal/mux"
	telem "github.com/timvw/pane-relay/internal/otel"
	"github.com/timvw/pane-relay/internal/prompt"
	"github.com/timvw/pane-relay/internal/queue"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var (
	// Global flags. Empty values leave the loaded configuration alone.
	flagConfig    string
	flagServer    string
	flagMode      string
	flagAgentURL  string
	flagLogLevel  string
	flagLogFormat string
	flagVerbose   bool
)

var (
	cfg     *config.Config
	tel     *telem.Telemetry
	metrics *telem.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "pane-relay",
	Short: "Relay messages between coding agents and tmux sessions",
	Long: `pane-relay controls tmux sessions and delivers messages to the coding
agents running in them.

A message goes to the agent's HTTP session API when one is reachable and the
mode allows it, and otherwise is typed into the session's pane with send-keys.
The identity map remembers which tmux session belongs to which agent session.

Configuration is loaded from .pane-relay.yaml, ~/.config/pane-relay/config.yaml
or PANE_RELAY_* environment variables. Flags override both.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel != nil {
			tel.Shutdown(context.Background())
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .pane-relay.yaml, then ~/.config/pane-relay/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "L", "", "tmux server socket name")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "delivery mode: auto, agent, terminal")
	rootCmd.PersistentFlags().StringVar(&flagAgentURL, "agent-url", "", "agent API base URL (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "shorthand for --log-level debug")
}

// setup loads configuration, installs the default logger and starts telemetry.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadFile(flagConfig)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlags(cfg)

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if cfg.ConfigFile != "" {
		slog.Debug("config loaded", "path", cfg.ConfigFile)
	}

	if _, err := delivery.ParseMode(cfg.Mode); err != nil {
		return err
	}

	telem.Version = Version
	tel, err = telem.Init(cmd.Context(), telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		slog.Warn("otel init failed", "error", err)
	}
	if tel != nil {
		metrics = tel.Metrics
	}
	return nil
}

func applyFlags(c *config.Config) {
	if flagServer != "" {
		c.TmuxServer = flagServer
	}
	if flagMode != "" {
		c.Mode = flagMode
	}
	if flagAgentURL != "" {
		c.AgentURL = flagAgentURL
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		c.LogFormat = flagLogFormat
	}
	if flagVerbose {
		c.LogLevel = "debug"
	}
}

// newLogger builds the stderr handler. Stdout is reserved for command output.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
}

func newMux() *mux.Client {
	return mux.NewClient(
		mux.WithServer(cfg.TmuxServer),
		mux.WithTimeout(cfg.CommandTimeoutDuration),
		mux.WithLogger(slog.Default()),
		mux.WithMetrics(metrics),
	)
}

func newQueue() (*queue.Queue, error) {
	return queue.New(cfg.QueueDir,
		queue.WithLogger(slog.Default()),
		queue.WithMetrics(metrics),
		queue.WithResolver(newMux()),
		queue.WithPromptWriter(prompt.NewWriter(cfg.PromptDir)),
	)
}

func newLogReader() *logs.Reader {
	return logs.NewReader(cfg.LogDir, logs.WithLogger(slog.Default()))
}

func openMappings() (*mapping.Store, error) {
	return mapping.Open(cfg.MappingFile)
}

func newAgentClient(url string) *agent.Client {
	return agent.NewClient(url,
		agent.WithTimeout(cfg.HTTPTimeoutDuration),
		agent.WithLogger(slog.Default()),
	)
}

func newDiscovery() *agent.Discovery {
	d := agent.NewDiscovery(agent.DefaultURL)
	d.Ports = cfg.DiscoveryPorts
	if cfg.DiscoveryTimeoutDuration > 0 {
		d.Timeout = cfg.DiscoveryTimeoutDuration
	}
	return d
}

// newRouter wires a delivery router from configuration. The returned close
// function releases the journal.
func newRouter(mode delivery.Mode) (*delivery.Router, func(), error) {
	mappings, err := openMappings()
	if err != nil {
		return nil, nil, err
	}

	opts := []delivery.Option{
		delivery.WithMode(mode),
		delivery.WithLogger(slog.Default()),
		delivery.WithMetrics(metrics),
	}
	switch {
	case cfg.AgentURL != "":
		opts = append(opts, delivery.WithAgent(newAgentClient(cfg.AgentURL)))
	case cfg.AutoDiscoverEnabled():
		opts = append(opts, delivery.WithDiscovery(newDiscovery(), "", func(url string) delivery.AgentAPI {
			return newAgentClient(url)
		}))
	}

	closeFn := func() {}
	if j, err := journal.Open(cfg.JournalPath); err != nil {
		slog.Warn("delivery journal unavailable", "path", cfg.JournalPath, "error", err)
	} else {
		opts = append(opts, delivery.WithJournal(j))
		closeFn = func() { j.Close() }
	}

	return delivery.NewRouter(newMux(), mappings, opts...), closeFn, nil
}

func currentMode() delivery.Mode {
	m, _ := delivery.ParseMode(cfg.Mode)
	return m
}
