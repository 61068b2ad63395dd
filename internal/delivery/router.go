// Package delivery routes outbound messages to a session, either through the
// agent's HTTP API or by typing them into the session's terminal pane.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-relay/internal/journal"
	"github.com/timvw/pane-relay/internal/model"
	ppotel "github.com/timvw/pane-relay/internal/otel"
)

var tracer = otel.Tracer("pane-relay/delivery")

var (
	// ErrNoAgent is returned in agent mode when no agent endpoint is configured.
	ErrNoAgent = errors.New("no agent endpoint available")
	// ErrNoDestination is returned when no live terminal session matches.
	ErrNoDestination = errors.New("no terminal session for remote id")
)

// Mode selects which channels a delivery may use.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeAgent    Mode = "agent"
	ModeTerminal Mode = "terminal"
)

// ParseMode parses a mode name. The empty string is auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeAgent, ModeTerminal:
		return m, nil
	}
	return "", fmt.Errorf("invalid delivery mode %q (want auto, agent or terminal)", s)
}

// Kind picks the agent endpoint used for a request.
type Kind string

const (
	KindPrompt  Kind = "prompt"
	KindMessage Kind = "message"
)

// Channel is the path a delivery took.
type Channel string

const (
	ChannelAgent    Channel = "agent"
	ChannelTerminal Channel = "terminal"
)

// AgentAPI is the part of the agent client the router uses.
type AgentAPI interface {
	Prompt(ctx context.Context, sessionID, content string) error
	Message(ctx context.Context, sessionID, content string) error
}

// Terminal is the part of the multiplexer client the router uses.
type Terminal interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	SendKeysEnter(ctx context.Context, id model.PaneID, keys string) error
}

// Mappings is the session identity map.
type Mappings interface {
	LookupByRemote(remoteID string) (string, bool)
	Insert(remoteID, localName string) error
}

// Journal records delivery attempts.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Discoverer finds an agent endpoint.
type Discoverer interface {
	ServerURL(ctx context.Context, configured string) (string, bool)
}

// Request is one delivery.
type Request struct {
	SessionID string
	Content   string
	Kind      Kind
	// Mode overrides the router's default when set.
	Mode      Mode
	MessageID string
}

// Result describes a successful delivery.
type Result struct {
	Channel     Channel
	PaneID      model.PaneID
	SessionName string
}

// Router delivers requests. It is safe for concurrent use.
type Router struct {
	mode     Mode
	terminal Terminal
	mappings Mappings
	journal  Journal
	logger   *slog.Logger
	metrics  *ppotel.Metrics

	discoverer    Discoverer
	configuredURL string
	newAgent      func(url string) AgentAPI
	discoverOnce  sync.Once

	mu    sync.Mutex
	agent AgentAPI
}

// Option configures a Router.
type Option func(*Router)

// WithMode sets the default mode.
func WithMode(m Mode) Option {
	return func(r *Router) { r.mode = m }
}

// WithAgent sets the agent client directly.
func WithAgent(a AgentAPI) Option {
	return func(r *Router) { r.agent = a }
}

// WithDiscovery enables one-time endpoint discovery before the first auto
// delivery when no agent was set. newAgent builds a client for the found URL.
func WithDiscovery(d Discoverer, configuredURL string, newAgent func(url string) AgentAPI) Option {
	return func(r *Router) {
		r.discoverer = d
		r.configuredURL = configuredURL
		r.newAgent = newAgent
	}
}

func WithJournal(j Journal) Option {
	return func(r *Router) { r.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func WithMetrics(m *ppotel.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter creates a router over a terminal client and a mapping store.
func NewRouter(term Terminal, mappings Mappings, opts ...Option) *Router {
	r := &Router{
		mode:     ModeAuto,
		terminal: term,
		mappings: mappings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the router's default mode.
func (r *Router) Mode() Mode {
	return r.mode
}

// Agent returns the agent client in use, running discovery first when it is
// enabled and has not run yet. It returns nil when no agent is available.
func (r *Router) Agent(ctx context.Context) AgentAPI {
	r.mu.Lock()
	a := r.agent
	r.mu.Unlock()
	if a != nil || r.discoverer == nil || r.newAgent == nil {
		return a
	}
	r.discoverOnce.Do(func() {
		url, ok := r.discoverer.ServerURL(ctx, r.configuredURL)
		if !ok {
			r.logger.Info("no agent endpoint found, using terminal delivery")
			return
		}
		r.logger.Info("agent endpoint discovered", "url", url)
		r.mu.Lock()
		r.agent = r.newAgent(url)
		r.mu.Unlock()
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agent
}

// Deliver sends req through the channels its mode permits.
//
// Auto tries the agent first and falls back to the terminal when the agent is
// absent or fails. Agent never touches the terminal and records no mapping.
// Terminal skips the agent.
func (r *Router) Deliver(ctx context.Context, req Request) (Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = r.mode
	}
	if req.Kind == "" {
		req.Kind = KindMessage
	}

	ctx, span := tracer.Start(ctx, "deliver",
		trace.WithAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.String("delivery.mode", string(mode)),
			attribute.String("delivery.kind", string(req.Kind)),
		))
	defer span.End()

	res, err := r.deliver(ctx, req, mode)
	span.SetAttributes(attribute.String("delivery.channel", string(res.Channel)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (r *Router) deliver(ctx context.Context, req Request, mode Mode) (Result, error) {
	if mode != ModeTerminal {
		var agent AgentAPI
		if mode == ModeAuto {
			agent = r.Agent(ctx)
		} else {
			r.mu.Lock()
			agent = r.agent
			r.mu.Unlock()
		}

		switch {
		case agent == nil && mode == ModeAgent:
			r.record(ctx, req, mode, ChannelAgent, ErrNoAgent)
			return Result{Channel: ChannelAgent}, ErrNoAgent
		case agent != nil:
			err := sendAgent(ctx, agent, req)
			r.record(ctx, req, mode, ChannelAgent, err)
			if err == nil {
				return Result{Channel: ChannelAgent}, nil
			}
			if mode == ModeAgent {
				return Result{Channel: ChannelAgent}, fmt.Errorf("agent delivery: %w", err)
			}
			r.logger.Warn("agent delivery failed, falling back to terminal",
				"session_id", req.SessionID, "error", err)
		}
	}

	res, err := r.deliverTerminal(ctx, req)
	r.record(ctx, req, mode, ChannelTerminal, err)
	return res, err
}

func sendAgent(ctx context.Context, agent AgentAPI, req Request) error {
	if req.Kind == KindPrompt {
		return agent.Prompt(ctx, req.SessionID, req.Content)
	}
	return agent.Message(ctx, req.SessionID, req.Content)
}

func (r *Router) deliverTerminal(ctx context.Context, req Request) (Result, error) {
	res := Result{Channel: ChannelTerminal}

	session, searched, err := r.resolveSession(ctx, req.SessionID)
	if err != nil {
		return res, err
	}
	res.SessionName = session.Name

	pane, ok := session.FirstPane()
	if !ok {
		return res, fmt.Errorf("%w: session %q has no panes", ErrNoDestination, session.Name)
	}
	res.PaneID = pane.ID

	if err := r.terminal.SendKeysEnter(ctx, pane.ID, req.Content); err != nil {
		return res, fmt.Errorf("terminal delivery to %s: %w", pane.ID, err)
	}

	if searched && r.mappings != nil {
		// The message is already typed; a failed upsert only costs a search next time.
		if err := r.mappings.Insert(req.SessionID, session.Name); err != nil {
			r.logger.Warn("recording session mapping", "session_id", req.SessionID, "error", err)
		} else {
			r.metrics.RecordMappingUpsert(ctx)
			r.logger.Debug("session mapping recorded", "session_id", req.SessionID, "session_name", session.Name)
		}
	}
	return res, nil
}

// resolveSession finds the live terminal session for a remote id. The bool is
// true when the session was found by searching rather than by mapping.
func (r *Router) resolveSession(ctx context.Context, remoteID string) (model.Session, bool, error) {
	sessions, err := r.terminal.ListSessions(ctx)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("listing terminal sessions: %w", err)
	}

	if r.mappings != nil {
		if name, ok := r.mappings.LookupByRemote(remoteID); ok {
			for _, s := range sessions {
				if s.Name == name {
					return s, false, nil
				}
			}
			r.logger.Debug("mapped session is gone, searching", "session_id", remoteID, "session_name", name)
		}
	}

	if s, ok := searchSessions(sessions, remoteID); ok {
		return s, true, nil
	}
	return model.Session{}, false, fmt.Errorf("%w %q", ErrNoDestination, remoteID)
}

// searchSessions prefers an exact name or id match over a name containing the
// remote id.
func searchSessions(sessions []model.Session, remoteID string) (model.Session, bool) {
	if remoteID == "" {
		return model.Session{}, false
	}
	for _, s := range sessions {
		if s.Name == remoteID || string(s.ID) == remoteID {
			return s, true
		}
	}
	for _, s := range sessions {
		if strings.Contains(s.Name, remoteID) {
			return s, true
		}
	}
	return model.Session{}, false
}

func (r *Router) record(ctx context.Context, req Request, mode Mode, ch Channel, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.metrics.RecordDelivery(ctx, string(ch), outcome)

	if r.journal == nil {
		return
	}
	e := journal.Entry{
		MessageID: req.MessageID,
		SessionID: req.SessionID,
		Channel:   string(ch),
		Mode:      string(mode),
		Success:   err == nil,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if jerr := r.journal.Record(ctx, e); jerr != nil {
		r.logger.Warn("recording delivery", "session_id", req.SessionID, "error", jerr)
	}
}
