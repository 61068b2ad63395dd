package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect the agent session to tmux session identity map",
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMappings()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "REMOTE\tLOCAL\tCREATED")
		for _, m := range store.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.RemoteSessionID, m.LocalSessionName, m.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

var mappingRemoveCmd = &cobra.Command{
	Use:   "remove <remote-id>",
	Short: "Remove one mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMappings()
		if err != nil {
			return err
		}
		return store.Remove(args[0])
	},
}

var mappingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMappings()
		if err != nil {
			return err
		}
		return store.Clear()
	},
}

func init() {
	mappingCmd.AddCommand(mappingListCmd, mappingRemoveCmd, mappingClearCmd)
	rootCmd.AddCommand(mappingCmd)
}
