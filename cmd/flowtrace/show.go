package main

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/luxas/flowtrace"
	"github.com/spf13/cobra"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Render a trace as a call tree",
		Long:  "Renders the trace in FILE as an indented call tree. FILE is either a path or URL, or the name of a file in the trace directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, opts *rootOptions, name string) error {
	if strings.Contains(name, "/") {
		name = url.Normalize(name, file.Scheme)
	}
	doc, err := opts.persister().Load(cmd.Context(), name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trace: %s\n", path.Base(name))
	fmt.Fprintf(out, "outcome: %s\n", doc.Outcome())
	fmt.Fprintf(out, "flow_duration: %s\n", doc.FlowDuration)
	for _, n := range doc.Tree() {
		writeNode(out, n)
	}
	return nil
}

//nolint:gochecknoglobals
var showJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

func render(v interface{}) string {
	b, err := showJSON.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func writeNode(w io.Writer, n *flowtrace.FrameNode) {
	indent := strings.Repeat("  ", n.Depth)

	params := make([]string, 0, len(n.Args)+len(n.Kwargs))
	for _, arg := range n.Args {
		params = append(params, render(arg))
	}
	keys := make([]string, 0, len(n.Kwargs))
	for k := range n.Kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params = append(params, k+"="+render(n.Kwargs[k]))
	}

	outcome := n.Outcome
	if outcome == "" {
		outcome = flowtrace.OutcomeUnknown
	}
	elapsed := "-"
	if n.ElapsedTime != nil {
		elapsed = n.ElapsedTime.String()
	}
	line := fmt.Sprintf("%s%s(%s) %s %s", indent, n.Function, strings.Join(params, ", "), outcome, elapsed)
	if n.Outcome == flowtrace.OutcomeSuccessful {
		line += " => " + render(n.ReturnValue)
	}
	fmt.Fprintln(w, line)

	for _, lm := range n.LogMessages {
		msg := fmt.Sprintf("%s  [%s] %s", indent, lm.Level, lm.Message)
		if len(lm.Values) != 0 {
			msg += " " + render(lm.Values)
		}
		fmt.Fprintln(w, msg)
	}
	if n.Exception != nil {
		fmt.Fprintf(w, "%s  ! %s: %s\n", indent, n.Exception.Type, n.Exception.Message)
	}
	for _, c := range n.Children {
		writeNode(w, c)
	}
}
