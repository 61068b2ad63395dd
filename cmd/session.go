package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage tmux sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Create a detached session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newMux().NewSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to start session %q: %w", args[0], err)
		}
		fmt.Printf("%s\t%s\n", s.ID, s.Name)
		return nil
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop <id-or-name>",
	Short: "Kill a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSession(cmd, args[0])
		if err != nil {
			return err
		}
		return newMux().KillSession(cmd.Context(), s.ID)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with their windows and panes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newMux().ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		printSessionTree(sessions)
		return nil
	},
}

var sessionAttachCmd = &cobra.Command{
	Use:   "attach <id-or-name>",
	Short: "Attach the current client to a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSession(cmd, args[0])
		if err != nil {
			return err
		}
		return newMux().AttachSession(cmd.Context(), s.ID)
	},
}

var sessionDetachCmd = &cobra.Command{
	Use:   "detach <id-or-name>",
	Short: "Detach clients from a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSession(cmd, args[0])
		if err != nil {
			return err
		}
		return newMux().DetachSession(cmd.Context(), s.ID)
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename <id-or-name> <new-name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSession(cmd, args[0])
		if err != nil {
			return err
		}
		renamed, err := newMux().RenameSession(cmd.Context(), s.ID, args[1])
		if err != nil {
			return fmt.Errorf("failed to rename session: %w", err)
		}
		fmt.Printf("%s\t%s\n", renamed.ID, renamed.Name)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionStartCmd, sessionStopCmd, sessionListCmd,
		sessionAttachCmd, sessionDetachCmd, sessionRenameCmd)
	rootCmd.AddCommand(sessionCmd)
}

func resolveSession(cmd *cobra.Command, key string) (model.Session, error) {
	s, ok, err := newMux().FindSession(cmd.Context(), key)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to look up session %q: %w", key, err)
	}
	if !ok {
		return model.Session{}, fmt.Errorf("session %q not found", key)
	}
	return s, nil
}

func printSessionTree(sessions []model.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	for _, s := range sessions {
		attached := ""
		if s.Attached {
			attached = "attached"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, attached)
		for _, win := range s.Windows {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", win.ID, win.Name, activeMark(win.Active))
			for _, p := range win.Panes {
				fmt.Fprintf(w, "    %s\t%s\t%s\n", p.ID, p.CurrentPath, activeMark(p.Active))
			}
		}
	}
}

func activeMark(active bool) string {
	if active {
		return "*"
	}
	return ""
}
