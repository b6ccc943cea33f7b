package flowtrace

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/go-logr/logr"
	"github.com/luxas/flowtrace/zaplog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levels(msgs []LogMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Level)
	}
	return out
}

func TestFrameLogger_records(t *testing.T) {
	tr := NewTrace()
	f := &Frame{Function: "fn"}
	require.True(t, tr.push(f))

	log := newFrameLogger(logr.Discard(), tr, f, nil, 0)
	log.Info("info", "k", "v")
	log.V(1).Info("debug", "n", 1)
	log.V(2).Info("too verbose")
	log.WithValues("user", "luxas").Error(errors.New("bad"), "failed", "attempt", 2)

	require.Len(t, f.LogMessages, 3)
	assert.Equal(t, []string{LevelInfo, LevelDebug, LevelError}, levels(f.LogMessages))
	assert.Equal(t, "info", f.LogMessages[0].Message)
	assert.Equal(t, map[string]interface{}{"k": "v"}, f.LogMessages[0].Values)
	assert.Equal(t, map[string]interface{}{"n": "1"}, f.LogMessages[1].Values)
	assert.Equal(t, map[string]interface{}{"error": "bad", "user": "luxas", "attempt": "2"}, f.LogMessages[2].Values)
	assert.False(t, f.LogMessages[0].Timestamp.IsZero())
}

func TestFrameLogger_relativeToFrameVerbosity(t *testing.T) {
	tr := NewTrace()
	f := &Frame{Function: "child"}
	require.True(t, tr.push(f))

	// A child frame logs one level more verbose than its parent
	under := zaplog.NewZap().LogTo(io.Discard).Build().V(1)
	log := newFrameLogger(under, tr, f, nil, 0)
	log.Info("same level as the frame")
	log.V(1).Info("one more")
	log.V(2).Info("too verbose")

	assert.Equal(t, []string{LevelInfo, LevelDebug}, levels(f.LogMessages))
}

func TestFrameLogger_truncatesValues(t *testing.T) {
	tr := NewTrace()
	f := &Frame{Function: "fn"}
	require.True(t, tr.push(f))

	log := newFrameLogger(logr.Discard(), tr, f, nil, 4)
	log.Info("msg", "payload", "abcdefgh", "odd")

	require.Len(t, f.LogMessages, 1)
	assert.Equal(t, map[string]interface{}{"payload": "abcd...(truncated)", "odd": nil}, f.LogMessages[0].Values)
}

func TestFrameLogger_forwards(t *testing.T) {
	var buf bytes.Buffer
	under := zaplog.NewZap().JSON().NoTimestamps().LogTo(&buf).Build()

	tr := NewTrace()
	f := &Frame{Function: "fn"}
	require.True(t, tr.push(f))

	log := newFrameLogger(under, tr, f, nil, 0).WithName("fn")
	log.Info("hello", "k", "v")
	log.V(1).Info("recorded, but not forwarded")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"logger":"fn"`)
	assert.NotContains(t, buf.String(), "recorded, but not forwarded")
	assert.Len(t, f.LogMessages, 2)

	// plainLogger unwraps the recording
	plain := plainLogger(log)
	plain.Info("plain")
	assert.Len(t, f.LogMessages, 2)
	assert.Contains(t, buf.String(), `"msg":"plain"`)
	assert.Equal(t, under, plainLogger(under))
}
