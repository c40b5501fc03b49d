package cli

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Inspect the field change log",
	}
	cmd.AddCommand(newActivityListCmd(), newActivityExportCmd())
	return cmd
}

func newActivityListCmd() *cobra.Command {
	var (
		task  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List field changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				feed := s.ws.ActivityFeed(task, limit)
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), feed)
				}
				writeActivity(cmd.OutOrStdout(), s.ws, feed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "only changes to this task")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries (0 for all)")
	return cmd
}

func newActivityExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full change log as JSONL, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				feed := s.ws.ActivityFeed("", 0)
				var buf bytes.Buffer
				enc := json.NewEncoder(&buf)
				for i := len(feed) - 1; i >= 0; i-- {
					if err := enc.Encode(feed[i]); err != nil {
						return sysError("encode activity: %w", err)
					}
				}
				return writeOutput(cmd.OutOrStdout(), output, buf.Bytes())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
