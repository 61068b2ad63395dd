package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
)

var flagFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all pane ids",
	Long: `List every tmux pane id, one per line.

Each line is a pane id that can be passed to other commands (pane capture,
pane send). Optionally filter by session name using a regex pattern.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var re *regexp.Regexp
		if flagFilter != "" {
			var err error
			if re, err = regexp.Compile(flagFilter); err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
		}

		sessions, err := newMux().ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list panes: %w", err)
		}

		for _, s := range sessions {
			if re != nil && !re.MatchString(s.Name) {
				continue
			}
			for _, w := range s.Windows {
				for _, p := range w.Panes {
					fmt.Println(p.ID)
				}
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&flagFilter, "filter", "", "regex pattern to filter by session name")
	rootCmd.AddCommand(listCmd)
}
