package flowtrace

import (
	"sync"
	"time"
)

// Frame is one recorded invocation of a traced function.
//
// Everything but LogMessages is set when the frame is entered, or exactly once
// when the invocation owning the frame completes.
type Frame struct {
	// Function is the name of the traced function, qualified by its actor.
	Function string
	// Depth is 0 for the root frame, 1 for its children, and so on.
	Depth int
	// Args and Kwargs are the truncated arguments.
	Args   []interface{}
	Kwargs map[string]interface{}
	// Timestamp is when the frame was entered.
	Timestamp Timestamp

	// Outcome is empty until the invocation completes.
	Outcome Outcome
	// ReturnValue is the truncated result. Only meaningful when Outcome is
	// OutcomeSuccessful.
	ReturnValue interface{}
	// Exception is only set when Outcome is OutcomeError.
	Exception *Exception
	// ElapsedTime is nil until the invocation completes.
	ElapsedTime *Seconds

	// LogMessages are the log lines emitted through the frame's Logger.
	LogMessages []LogMessage
}

// Completed reports whether the invocation owning the frame has completed.
func (f *Frame) Completed() bool { return f.ElapsedTime != nil }

// Exception describes why a frame failed.
type Exception struct {
	Type      string
	Message   string
	Traceback string
}

// LogMessage is a log line recorded within a frame.
type LogMessage struct {
	Message   string
	Level     string
	Timestamp Timestamp
	Values    map[string]interface{}
}

// Document is a finalized, immutable copy of a trace.
type Document struct {
	// FlowDuration spans from the root frame's start to its completion.
	FlowDuration Seconds
	// Frames are ordered by entry, i.e. a pre-order walk of the call tree.
	Frames []Frame
}

// Root returns the root frame, or nil for an empty document.
func (d *Document) Root() *Frame {
	if len(d.Frames) == 0 {
		return nil
	}
	return &d.Frames[0]
}

// Outcome is OutcomeError if any frame failed, and otherwise the outcome of
// the root frame. Unresolved roots yield OutcomeUnknown.
func (d *Document) Outcome() Outcome {
	for i := range d.Frames {
		if d.Frames[i].Outcome == OutcomeError {
			return OutcomeError
		}
	}
	if root := d.Root(); root != nil && root.Outcome != "" {
		return root.Outcome
	}
	return OutcomeUnknown
}

// Trace is the in-flight, ordered set of frames of one top-level invocation
// and everything it called. Frames may be pushed by several goroutines that
// were forked within the same trace, so all access is serialized.
type Trace struct {
	mu        sync.Mutex
	frames    []*Frame
	finalized bool
}

// NewTrace returns an empty Trace.
func NewTrace() *Trace { return &Trace{} }

// Len returns the number of frames pushed so far.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.frames)
}

// Finalized reports whether the trace has been finalized or discarded, after
// which no more frames are accepted.
func (t *Trace) Finalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.finalized
}

// push appends f, unless the trace is already finalized.
func (t *Trace) push(f *Frame) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return false
	}
	t.frames = append(t.frames, f)
	return true
}

// update runs fn with exclusive access to the frames.
func (t *Trace) update(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn()
}

// discard drops the trace without it ever being persisted.
func (t *Trace) discard() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finalized = true
	t.frames = nil
}

// finalize closes the trace and returns a copy of it. It returns false if
// the trace was already finalized or discarded.
func (t *Trace) finalize(flowDuration time.Duration) (*Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return nil, false
	}
	t.finalized = true

	doc := &Document{
		FlowDuration: Seconds(flowDuration),
		Frames:       make([]Frame, 0, len(t.frames)),
	}
	for _, f := range t.frames {
		cp := *f
		cp.LogMessages = append([]LogMessage(nil), f.LogMessages...)
		doc.Frames = append(doc.Frames, cp)
	}
	return doc, true
}

// FrameNode is a frame together with the frames entered while it was open.
type FrameNode struct {
	*Frame
	Children []*FrameNode
}

// Tree reconstructs the call tree from the depth of the frames. Normally
// there is exactly one root. When sibling frames ran concurrently and their
// children interleave, each child is attributed to the sibling entered last.
func (d *Document) Tree() []*FrameNode {
	var roots []*FrameNode
	var stack []*FrameNode
	for i := range d.Frames {
		n := &FrameNode{Frame: &d.Frames[i]}
		for len(stack) > 0 && stack[len(stack)-1].Depth >= n.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, n)
	}
	return roots
}
