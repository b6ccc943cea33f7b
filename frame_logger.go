package flowtrace

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/luxas/flowtrace/internal/clock"
	"github.com/luxas/flowtrace/truncate"
	"go.opentelemetry.io/otel/trace"
)

const (
	// LevelInfo is the level of lines logged at the verbosity of the frame.
	LevelInfo = "INFO"
	// LevelDebug is the level of lines logged at one more level of verbosity
	// than the frame, e.g. log.V(1).Info().
	LevelDebug = "DEBUG"
	// LevelError is the level of lines logged using Logger.Error.
	LevelError = "ERROR"

	// recordVerbosity is how many levels more verbose than the frame's own
	// Logger a line may be, and still be recorded.
	recordVerbosity = 1
)

// frameSink is a composite logr.LogSink that records the lines logged through
// it in a frame, and forwards them to the underlying LogSink.
type frameSink struct {
	// orig is the underlying sink as given; under is the same, but adjusted
	// for the extra call frame of frameSink.
	orig  logr.LogSink
	under logr.LogSink

	trace *Trace
	frame *Frame
	span  trace.Span

	baseLevel     int
	budget        int
	keysAndValues []interface{}
}

var _ logr.CallDepthLogSink = &frameSink{}

func newFrameLogger(log Logger, t *Trace, f *Frame, span trace.Span, budget int) Logger {
	orig := log.GetSink()
	under := orig
	if cd, ok := under.(logr.CallDepthLogSink); ok {
		under = cd.WithCallDepth(1)
	}
	return log.WithSink(&frameSink{
		orig:      orig,
		under:     under,
		trace:     t,
		frame:     f,
		span:      span,
		baseLevel: log.GetV(),
		budget:    budget,
	})
}

// plainLogger strips the frame recording off log, if any.
func plainLogger(log Logger) Logger {
	if fs, ok := log.GetSink().(*frameSink); ok {
		return log.WithSink(fs.orig)
	}
	return log
}

func (s *frameSink) records(level int) bool { return level <= s.baseLevel+recordVerbosity }

func (s *frameSink) Init(info logr.RuntimeInfo) {
	if s.under != nil {
		s.under.Init(info)
	}
}

func (s *frameSink) Enabled(level int) bool {
	return s.records(level) || (s.under != nil && s.under.Enabled(level))
}

func (s *frameSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if s.records(level) {
		lvl := LevelInfo
		if level > s.baseLevel {
			lvl = LevelDebug
		}
		s.record(lvl, msg, keysAndValues)
	}
	if s.under != nil && s.under.Enabled(level) {
		s.under.Info(level, msg, keysAndValues...)
	}
}

func (s *frameSink) Error(err error, msg string, keysAndValues ...interface{}) {
	errMsg := "<nil>"
	if err != nil {
		errMsg = err.Error()
	}
	s.record(LevelError, msg, append([]interface{}{"error", errMsg}, keysAndValues...))
	if s.under != nil {
		s.under.Error(err, msg, keysAndValues...)
	}
}

func (s *frameSink) record(level, msg string, keysAndValues []interface{}) {
	all := make([]interface{}, 0, len(s.keysAndValues)+len(keysAndValues))
	all = append(all, s.keysAndValues...)
	all = append(all, keysAndValues...)

	values := make(map[string]interface{}, len(all)/2)
	for i := 0; i < len(all); i += 2 {
		key := fmt.Sprint(all[i])
		var val interface{}
		if i+1 < len(all) {
			val = all[i+1]
		}
		values[key] = truncate.Value(val, s.budget)
	}
	line := LogMessage{
		Message:   msg,
		Level:     level,
		Timestamp: NewTimestamp(clock.Now()),
		Values:    values,
	}
	s.trace.update(func() {
		s.frame.LogMessages = append(s.frame.LogMessages, line)
	})
	logToSpan(s.span, msg, all)
}

func (s *frameSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	s2 := *s
	s2.keysAndValues = append(append([]interface{}(nil), s.keysAndValues...), keysAndValues...)
	if s.under != nil {
		s2.orig = s.orig.WithValues(keysAndValues...)
		s2.under = s.under.WithValues(keysAndValues...)
	}
	return &s2
}

func (s *frameSink) WithName(name string) logr.LogSink {
	s2 := *s
	if s.under != nil {
		s2.orig = s.orig.WithName(name)
		s2.under = s.under.WithName(name)
	}
	return &s2
}

func (s *frameSink) WithCallDepth(depth int) logr.LogSink {
	s2 := *s
	if cd, ok := s.under.(logr.CallDepthLogSink); ok {
		s2.under = cd.WithCallDepth(depth)
	}
	return &s2
}
