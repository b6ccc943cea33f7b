package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLsCmd(opts *rootOptions) *cobra.Command {
	var outcome string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List persisted traces",
		Long:  "Lists the traces in the trace directory, oldest first: root function, timestamp and outcome.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd, opts, outcome)
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", "", "only list traces with this outcome, e.g. ERROR")
	return cmd
}

func runLs(cmd *cobra.Command, opts *rootOptions, outcome string) error {
	p := opts.persister()
	files, err := p.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "No traces in %s\n", p.BaseURL())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOT\tTIMESTAMP\tOUTCOME\tFILE")
	for _, f := range files {
		if outcome != "" && string(f.Outcome) != outcome {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Root, f.Timestamp, f.Outcome, f.FileInfo)
	}
	return tw.Flush()
}
