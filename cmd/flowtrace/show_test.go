package main

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/luxas/flowtrace"
	"github.com/luxas/flowtrace/filetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seconds(d time.Duration) *flowtrace.Seconds {
	s := flowtrace.Seconds(d)
	return &s
}

func sampleDocument() *flowtrace.Document {
	ts := flowtrace.NewTimestamp(time.Date(2024, 5, 1, 14, 3, 59, 42e6, time.Local))
	exc := &flowtrace.Exception{Type: "*errors.errorString", Message: "disk full", Traceback: "goroutine 1 [running]"}
	return &flowtrace.Document{
		FlowDuration: flowtrace.Seconds(5 * time.Millisecond),
		Frames: []flowtrace.Frame{
			{
				Function:    "process_images",
				Depth:       0,
				Args:        []interface{}{[]interface{}{"a.png"}},
				Kwargs:      map[string]interface{}{"run_id": "r1"},
				Timestamp:   ts,
				Outcome:     flowtrace.OutcomeError,
				Exception:   exc,
				ElapsedTime: seconds(5 * time.Millisecond),
				LogMessages: []flowtrace.LogMessage{
					{Message: "processing batch", Level: flowtrace.LevelInfo, Timestamp: ts, Values: map[string]interface{}{"images": "1"}},
				},
			},
			{
				Function:    "load_image",
				Depth:       1,
				Args:        []interface{}{"a.png"},
				Kwargs:      map[string]interface{}{},
				Timestamp:   ts,
				Outcome:     flowtrace.OutcomeSuccessful,
				ReturnValue: map[string]interface{}{"name": "a.png", "width": "640"},
				ElapsedTime: seconds(time.Millisecond),
			},
			{
				Function:    "save_image",
				Depth:       1,
				Args:        []interface{}{map[string]interface{}{"name": "a.png"}},
				Kwargs:      map[string]interface{}{},
				Timestamp:   ts,
				Outcome:     flowtrace.OutcomeError,
				Exception:   exc,
				ElapsedTime: seconds(2 * time.Millisecond),
			},
		},
	}
}

func TestShowCmd(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()
	u, err := flowtrace.NewFilePersister(dir).Write(context.Background(), doc, "process_images", doc.Outcome())
	require.NoError(t, err)

	out, _, err := run(t, append([]string{"show", u}, noEnv(t)...)...)
	require.NoError(t, err)

	g := filetest.New(t)
	target := g.Add("show.txt").Filter(filetest.ScrubTimestamps, filetest.ScrubDurations)
	_, _ = target.Writer().Write([]byte(out))
	g.Assert()
}

func TestShowCmd_bareName(t *testing.T) {
	dir := t.TempDir()
	u := writeTrace(t, dir, "sync_users", flowtrace.OutcomeSuccessful, time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))

	out, _, err := run(t, append([]string{"show", path.Base(u), "--dir", dir}, noEnv(t)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "outcome: SUCCESSFUL\n")
	assert.Contains(t, out, "sync_users() SUCCESSFUL 0.0010 seconds => null\n")
}

func TestShowCmd_missingFile(t *testing.T) {
	_, _, err := run(t, append([]string{"show", "nope__2024_05_01-09_00_00_AM_000_ERROR.json", "--dir", t.TempDir()}, noEnv(t)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read trace")
}
