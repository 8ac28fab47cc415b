package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func queueCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and send submissions saved offline",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := e.queue.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFORM\tTITLE\tSENDER")
			for _, entry := range entries {
				p := entry.Payload
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", entry.ID, p.Form, p.FormTitle, p.Sender)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Drop a queued submission without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid entry id %q", args[0])
			}
			if err = e.queue.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "entry %d deleted\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Send every queued submission, keeping the ones that fail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.currentSession(cmd.Context()); err != nil {
				return err
			}
			report, err := e.queue.Flush(cmd.Context(), e.client)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d sent, %d kept\n", len(report.Sent), len(report.Failed))
			if report.Errors != nil {
				fmt.Fprintln(out, report.Errors)
			}
			return nil
		},
	})

	return cmd
}
