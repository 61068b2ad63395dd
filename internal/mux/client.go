package mux

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	ppotel "github.com/timvw/pane-relay/internal/otel"
)

const binary = "tmux"

// Client issues commands to one tmux server.
type Client struct {
	server  string
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
	metrics *ppotel.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithServer selects a named tmux server socket ("-L <server>").
func WithServer(name string) Option {
	return func(c *Client) { c.server = name }
}

// WithRunner replaces the subprocess runner (tests use a fake).
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every command issued through Execute. Zero disables.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMetrics records per-command counters; nil is allowed.
func WithMetrics(m *ppotel.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a control client for the default or a named tmux server.
func NewClient(opts ...Option) *Client {
	c := &Client{
		runner: ExecRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Server returns the configured server name (empty for the default socket).
func (c *Client) Server() string {
	return c.server
}

// BuildArgs renders cmd as a tmux argument vector:
// [-L server] verb [-t target] args...
func (c *Client) BuildArgs(cmd Command) []string {
	args := make([]string, 0, len(cmd.Args)+5)
	if c.server != "" {
		args = append(args, "-L", c.server)
	}
	args = append(args, cmd.Verb)
	if cmd.Target.Kind != TargetServer && cmd.Target.ID != "" {
		args = append(args, "-t", cmd.Target.ID)
	}
	return append(args, cmd.Args...)
}

// Execute runs cmd and classifies the outcome. If the client has a timeout
// configured it applies here.
func (c *Client) Execute(ctx context.Context, cmd Command) (Response, error) {
	if c.timeout > 0 {
		return c.ExecuteWithTimeout(ctx, cmd, c.timeout)
	}
	return c.execute(ctx, cmd)
}

// ExecuteWithTimeout runs cmd and kills the subprocess if it has not exited
// within d, returning a KindTimeout error.
func (c *Client) ExecuteWithTimeout(ctx context.Context, cmd Command, d time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.execute(ctx, cmd)
}

func (c *Client) execute(ctx context.Context, cmd Command) (Response, error) {
	args := c.BuildArgs(cmd)
	start := time.Now()
	c.logger.Debug("tmux command", "args", args)

	res, runErr := c.runner.Run(ctx, binary, args...)
	resp, err := interpret(ctx, res, runErr)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if k, ok := KindOf(err); ok {
			outcome = k.String()
		}
		c.logger.Debug("tmux command failed", "verb", cmd.Verb, "error", err)
	}
	c.metrics.RecordMuxCommand(ctx, cmd.Verb, outcome, time.Since(start))
	return resp, err
}

func interpret(ctx context.Context, res Result, runErr error) (Response, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Response{}, &Error{Kind: KindTimeout, Err: ctx.Err()}
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return Response{}, &Error{Kind: KindProcess, Msg: "tmux binary not found", Err: runErr}
		}
		return Response{}, &Error{Kind: KindProcess, Msg: "failed to execute tmux command", Err: runErr}
	}
	if res.ExitCode != 0 {
		return Response{}, Classify(res.Stdout, res.Stderr)
	}
	if res.Stdout == "" {
		return Response{Kind: ResponseEmpty}, nil
	}
	return Response{Kind: ResponseOutput, Output: res.Stdout}, nil
}

// run executes a command whose output is not needed.
func (c *Client) run(ctx context.Context, verb string, target Target, args ...string) error {
	_, err := c.Execute(ctx, Command{Verb: verb, Target: target, Args: args})
	return err
}

// output executes a command and returns its stdout ("" for an empty response).
func (c *Client) output(ctx context.Context, verb string, target Target, args ...string) (string, error) {
	resp, err := c.Execute(ctx, Command{Verb: verb, Target: target, Args: args})
	if err != nil {
		return "", err
	}
	return resp.Output, nil
}
