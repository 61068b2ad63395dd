package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/agent"
	"github.com/timvw/pane-relay/internal/mux"
)

var flagTheme string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tmux, agent, queue and mapping state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(renderStatus(cmd.Context(), newStyles(ThemeByName(flagTheme))))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&flagTheme, "theme", "dark", "Color theme: dark, light")
	rootCmd.AddCommand(statusCmd)
}

type statusRow struct {
	label string
	value string
	style lipgloss.Style
}

func renderStatus(ctx context.Context, st styles) string {
	var rows []statusRow
	add := func(label, value string, style lipgloss.Style) {
		rows = append(rows, statusRow{label, value, style})
	}

	m := newMux()
	server := m.Server()
	if server == "" {
		server = "default"
	}
	if err := m.Available(ctx); err != nil {
		add("tmux", fmt.Sprintf("unavailable (%s server): %v", server, err), st.err)
	} else if sessions, err := m.ListSessions(ctx); err != nil {
		add("tmux", err.Error(), st.err)
	} else {
		inside := ""
		if mux.InsideTmux() {
			inside = ", inside tmux"
		}
		add("tmux", fmt.Sprintf("%d sessions on %s server%s", len(sessions), server, inside), st.ok)
	}

	add("mode", cfg.Mode, st.text)
	agentValue, agentStyle := agentStatus(ctx, st)
	add("agent", agentValue, agentStyle)

	if q, err := newQueue(); err != nil {
		add("queue", err.Error(), st.err)
	} else if _, err := q.Load(); err != nil {
		add("queue", err.Error(), st.err)
	} else if s, err := q.Stats(); err != nil {
		add("queue", err.Error(), st.err)
	} else {
		style := st.ok
		if s.Failed > 0 {
			style = st.warn
		}
		add("queue", fmt.Sprintf("%d queued, %d failed", s.Queued, s.Failed), style)
	}

	if store, err := openMappings(); err != nil {
		add("mappings", err.Error(), st.err)
	} else {
		add("mappings", fmt.Sprintf("%d in %s", store.Len(), store.Path()), st.text)
	}

	if ids, err := newLogReader().List(); err == nil {
		add("logs", fmt.Sprintf("%d session logs in %s", len(ids), cfg.LogDir), st.text)
	}

	var b strings.Builder
	b.WriteString(st.title.Render("pane-relay " + Version))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(st.label.Render(r.label))
		b.WriteString(r.style.Render(r.value))
	}
	return st.box.Render(b.String())
}

func agentStatus(ctx context.Context, st styles) (string, lipgloss.Style) {
	d := newDiscovery()
	if cfg.AgentURL != "" {
		s := d.Check(ctx, cfg.AgentURL)
		return describeAgent(s, cfg.AgentURL), styleFor(s, st)
	}
	if !cfg.AutoDiscoverEnabled() {
		return "not configured", st.warn
	}
	s := d.Discover(ctx)
	return describeAgent(s, "discovery"), styleFor(s, st)
}

func describeAgent(s agent.Status, where string) string {
	if s.Running {
		return "available at " + s.URL
	}
	return fmt.Sprintf("%s (%s)", s.State, where)
}

func styleFor(s agent.Status, st styles) lipgloss.Style {
	switch s.State {
	case agent.StateAvailable:
		return st.ok
	case agent.StateUnavailable:
		return st.warn
	}
	return st.err
}
