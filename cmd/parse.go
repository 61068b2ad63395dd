package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/parser"
)

var (
	flagParseMultiple bool
	flagParsePane     string
	flagParseKind     string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Classify agent output as message, tool call, error or completion",
	Long: `Classify a block of agent output and print the result as JSON.

Input is read from the file argument, from a pane with --pane, or from stdin.
With --multiple the input is split into segments at each marker line and every
segment is classified on its own.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := parseInput(cmd, args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if !flagParseMultiple {
			return enc.Encode(parser.Parse(text))
		}
		rs := parser.ParseMultiple(text)
		if flagParseKind != "" {
			rs = parser.FilterByKind(rs, parser.Kind(flagParseKind))
		}
		return enc.Encode(rs)
	},
}

func init() {
	parseCmd.Flags().BoolVar(&flagParseMultiple, "multiple", false, "split input into segments")
	parseCmd.Flags().StringVar(&flagParsePane, "pane", "", "capture this pane instead of reading input")
	parseCmd.Flags().StringVar(&flagParseKind, "kind", "", "with --multiple, keep only this kind")
	rootCmd.AddCommand(parseCmd)
}

func parseInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case flagParsePane != "":
		return newMux().CapturePane(cmd.Context(), model.PaneID(flagParsePane), 0)
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
}
