// Package traceyaml provides a means to unit test a trace flow, using a YAML
// file structure that is representative and as close to human-readable as
// it gets.
//
// The Writer is a flowtrace.Persister. Use it with Context().WithPersister or
// TracerBuilder.WithPersister, and compare its output using the filetest
// package.
package traceyaml

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/luxas/flowtrace"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// New returns a Writer that writes each persisted trace to w, as soon as its
// root frame completes, as a YAML list item:
//
//	# root1 SUCCESSFUL
//	- {root1 frame tree}
//
//	# root2 ERROR
//	- {root2 frame tree}
//
// Writer w can optionally implement the zapcore.WriteSyncer interface; if so
// it'll be used. Times and tracebacks are left out, unless Verbose is called.
func New(w io.Writer) *Writer {
	return &Writer{ws: zapcore.Lock(zapcore.AddSync(w))}
}

// Writer writes traces as YAML.
type Writer struct {
	// ws is a race-free writer
	ws      zapcore.WriteSyncer
	verbose bool
}

var _ flowtrace.Persister = &Writer{}

// Verbose makes the Writer include timestamps, elapsed times, log message
// timestamps and tracebacks.
func (w *Writer) Verbose() *Writer {
	w.verbose = true
	return w
}

// Persist implements flowtrace.Persister.
func (w *Writer) Persist(_ context.Context, doc *flowtrace.Document, rootName string, outcome flowtrace.Outcome) error {
	items := make([]yaml.MapSlice, 0, 1)
	for _, n := range doc.Tree() {
		items = append(items, w.node(n))
	}
	if w.verbose && len(items) != 0 {
		items[0] = append(yaml.MapSlice{{Key: "flow_duration", Value: doc.FlowDuration.String()}}, items[0]...)
	}

	out, err := yaml.Marshal(items)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s %s\n", rootName, outcome)
	buf.Write(out)
	buf.WriteByte('\n')

	_, err = w.ws.Write(buf.Bytes())
	return multierr.Combine(err, w.ws.Sync())
}

func (w *Writer) node(n *flowtrace.FrameNode) yaml.MapSlice {
	m := yaml.MapSlice{
		{Key: "function", Value: n.Function},
		{Key: "depth", Value: n.Depth},
	}
	if len(n.Args) != 0 {
		m = append(m, yaml.MapItem{Key: "args", Value: n.Args})
	}
	if len(n.Kwargs) != 0 {
		m = append(m, yaml.MapItem{Key: "kwargs", Value: n.Kwargs})
	}
	if w.verbose {
		m = append(m, yaml.MapItem{Key: "timestamp", Value: n.Timestamp.String()})
	}

	outcome := n.Outcome
	if outcome == "" {
		outcome = flowtrace.OutcomeUnknown
	}
	m = append(m, yaml.MapItem{Key: "outcome", Value: string(outcome)})
	switch {
	case n.Outcome == flowtrace.OutcomeSuccessful:
		m = append(m, yaml.MapItem{Key: "return_value", Value: n.ReturnValue})
	case n.Exception != nil:
		exc := yaml.MapSlice{
			{Key: "type", Value: n.Exception.Type},
			{Key: "message", Value: n.Exception.Message},
		}
		if w.verbose {
			exc = append(exc, yaml.MapItem{Key: "traceback", Value: n.Exception.Traceback})
		}
		m = append(m, yaml.MapItem{Key: "exception", Value: exc})
	}
	if w.verbose && n.ElapsedTime != nil {
		m = append(m, yaml.MapItem{Key: "elapsed_time", Value: n.ElapsedTime.String()})
	}

	if len(n.LogMessages) != 0 {
		msgs := make([]yaml.MapSlice, 0, len(n.LogMessages))
		for _, lm := range n.LogMessages {
			msg := yaml.MapSlice{
				{Key: "message", Value: lm.Message},
				{Key: "level", Value: lm.Level},
			}
			if w.verbose {
				msg = append(msg, yaml.MapItem{Key: "timestamp", Value: lm.Timestamp.String()})
			}
			if len(lm.Values) != 0 {
				msg = append(msg, yaml.MapItem{Key: "values", Value: lm.Values})
			}
			msgs = append(msgs, msg)
		}
		m = append(m, yaml.MapItem{Key: "log_messages", Value: msgs})
	}

	if len(n.Children) != 0 {
		children := make([]yaml.MapSlice, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, w.node(c))
		}
		m = append(m, yaml.MapItem{Key: "children", Value: children})
	}
	return m
}
