package flowtrace

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	ts := NewTimestamp(time.Date(2024, 5, 1, 14, 3, 59, 42e6, time.Local))
	elapsed := Seconds(3 * time.Millisecond)
	return &Document{
		FlowDuration: elapsed,
		Frames: []Frame{
			{
				Function:    "process",
				Args:        []interface{}{"a.png", 3, 1.5},
				Kwargs:      map[string]interface{}{"opts": map[string]interface{}{"width": 640, "tags": []interface{}{"x", 2}}},
				Timestamp:   ts,
				Outcome:     OutcomeSuccessful,
				ReturnValue: 2,
				ElapsedTime: &elapsed,
				LogMessages: []LogMessage{
					{Message: "<b>resizing</b>", Level: LevelInfo, Timestamp: ts, Values: map[string]interface{}{"n": 1}},
				},
			},
			{
				Function:    "resize",
				Depth:       1,
				Timestamp:   ts,
				Outcome:     OutcomeError,
				ReturnValue: "ignored",
				Exception:   &Exception{Type: "*errors.errorString", Message: "boom", Traceback: "goroutine 1"},
				ElapsedTime: &elapsed,
			},
			{
				Function:  "pending",
				Depth:     1,
				Timestamp: ts,
			},
		},
	}
}

func TestMarshalDocument(t *testing.T) {
	data, err := MarshalDocument(sampleDocument())
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "{\n    \"flow_duration\": \"0.0030 seconds\",\n    \"frames\": [\n"), out)
	assert.Contains(t, out, `"timestamp": "2024_05_01-14_03_59_PM_042"`)
	assert.Contains(t, out, `"elapsed_time": "0.0030 seconds"`)
	// only the successful frame carries a return value
	assert.Equal(t, 1, strings.Count(out, `"return_value"`))
	assert.NotContains(t, out, "ignored")
	assert.Equal(t, 1, strings.Count(out, `"exception"`))
	// absent arguments are written as empty collections
	assert.Contains(t, out, `"args": []`)
	assert.Contains(t, out, `"kwargs": {}`)
	assert.Equal(t, 1, strings.Count(out, `"log_messages"`))
	assert.Contains(t, out, `"message": "<b>resizing</b>"`)
}

func TestUnmarshalDocument_roundTrip(t *testing.T) {
	in := sampleDocument()
	data, err := MarshalDocument(in)
	require.NoError(t, err)

	doc, err := UnmarshalDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Frames, 3)
	assert.Equal(t, in.FlowDuration.String(), doc.FlowDuration.String())

	root := doc.Frames[0]
	assert.Equal(t, "process", root.Function)
	assert.Equal(t, in.Frames[0].Timestamp.String(), root.Timestamp.String())
	// integers stay integers
	assert.Equal(t, []interface{}{"a.png", int64(3), 1.5}, root.Args)
	assert.Equal(t, map[string]interface{}{
		"opts": map[string]interface{}{"width": int64(640), "tags": []interface{}{"x", int64(2)}},
	}, root.Kwargs)
	assert.Equal(t, int64(2), root.ReturnValue)
	require.Len(t, root.LogMessages, 1)
	assert.Equal(t, map[string]interface{}{"n": int64(1)}, root.LogMessages[0].Values)

	failed := doc.Frames[1]
	assert.Equal(t, OutcomeError, failed.Outcome)
	assert.Nil(t, failed.ReturnValue)
	assert.Equal(t, in.Frames[1].Exception, failed.Exception)
	assert.Equal(t, []interface{}{}, failed.Args)

	pending := doc.Frames[2]
	assert.Equal(t, Outcome(""), pending.Outcome)
	assert.False(t, pending.Completed())
	assert.Nil(t, pending.Exception)
}

func TestUnmarshalDocument_invalid(t *testing.T) {
	_, err := UnmarshalDocument([]byte(`{"flow_duration": "soon"}`))
	assert.Error(t, err)

	_, err = UnmarshalDocument([]byte(`{"frames": [`))
	assert.Error(t, err)
}
