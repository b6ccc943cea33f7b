package traceyaml

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/luxas/flowtrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func sampleDocument() *flowtrace.Document {
	elapsed := flowtrace.Seconds(3 * time.Millisecond)
	ts := flowtrace.NewTimestamp(time.Date(2024, 5, 1, 14, 3, 59, 42e6, time.Local))
	return &flowtrace.Document{
		FlowDuration: elapsed,
		Frames: []flowtrace.Frame{
			{
				Function:    "process",
				Depth:       0,
				Args:        []interface{}{"a.png"},
				Kwargs:      map[string]interface{}{},
				Timestamp:   ts,
				Outcome:     flowtrace.OutcomeSuccessful,
				ReturnValue: 2,
				ElapsedTime: &elapsed,
				LogMessages: []flowtrace.LogMessage{
					{Message: "resizing", Level: flowtrace.LevelInfo, Timestamp: ts, Values: map[string]interface{}{"n": 1}},
				},
			},
			{
				Function:    "resize",
				Depth:       1,
				Args:        []interface{}{},
				Kwargs:      map[string]interface{}{"width": 10},
				Timestamp:   ts,
				Outcome:     flowtrace.OutcomeError,
				Exception:   &flowtrace.Exception{Type: "*errors.errorString", Message: "boom", Traceback: "goroutine 1"},
				ElapsedTime: &elapsed,
			},
			{
				Function:  "cleanup",
				Depth:     1,
				Args:      []interface{}{},
				Kwargs:    map[string]interface{}{},
				Timestamp: ts,
			},
		},
	}
}

func TestWriter_Persist(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	require.NoError(t, w.Persist(context.Background(), sampleDocument(), "process", flowtrace.OutcomeError))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# process ERROR\n"), out)
	assert.NotContains(t, out, "timestamp")
	assert.NotContains(t, out, "traceback")
	assert.NotContains(t, out, "elapsed_time")

	var items []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 1)

	root := items[0]
	assert.Equal(t, "process", root["function"])
	assert.Equal(t, 0, root["depth"])
	assert.Equal(t, []interface{}{"a.png"}, root["args"])
	assert.Equal(t, "SUCCESSFUL", root["outcome"])
	assert.Equal(t, 2, root["return_value"])
	assert.NotContains(t, root, "kwargs")

	msgs, ok := root["log_messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg, ok := msgs[0].(map[interface{}]interface{})
	require.True(t, ok)
	assert.Equal(t, "resizing", msg["message"])
	assert.Equal(t, "INFO", msg["level"])

	children, ok := root["children"].([]interface{})
	require.True(t, ok)
	require.Len(t, children, 2)

	resize, ok := children[0].(map[interface{}]interface{})
	require.True(t, ok)
	assert.Equal(t, "resize", resize["function"])
	assert.Equal(t, "ERROR", resize["outcome"])
	assert.Equal(t, map[interface{}]interface{}{"width": 10}, resize["kwargs"])
	assert.Equal(t, map[interface{}]interface{}{"type": "*errors.errorString", "message": "boom"}, resize["exception"])
	assert.NotContains(t, resize, "return_value")

	cleanup, ok := children[1].(map[interface{}]interface{})
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN", cleanup["outcome"])
}

func TestWriter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf).Verbose()

	require.NoError(t, w.Persist(context.Background(), sampleDocument(), "process", flowtrace.OutcomeError))

	out := buf.String()
	assert.Contains(t, out, "flow_duration: 0.0030 seconds")
	assert.Contains(t, out, "timestamp: 2024_05_01-14_03_59_PM_042")
	assert.Contains(t, out, "traceback: goroutine 1")
	assert.Contains(t, out, "elapsed_time: 0.0030 seconds")
}

func TestWriter_multipleTraces(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	doc := sampleDocument()
	require.NoError(t, w.Persist(context.Background(), doc, "process", flowtrace.OutcomeError))
	require.NoError(t, w.Persist(context.Background(), doc, "process", flowtrace.OutcomeError))

	var items []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	assert.Len(t, items, 2)
	assert.Equal(t, 2, strings.Count(buf.String(), "# process ERROR\n"))
}
