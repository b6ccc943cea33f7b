package flowtrace

import (
	"context"
	"sync"
	"time"

	"github.com/luxas/flowtrace/internal/clock"
	"github.com/luxas/flowtrace/truncate"
	"go.opentelemetry.io/otel/trace"
)

// FrameScope is the handle of an entered frame. Exactly one of End, Done or
// the panic path of Done takes effect; later calls are no-ops.
//
// A nil *FrameScope, as returned by Start while tracing is disabled, is safe
// to use.
type FrameScope struct {
	trace *Trace
	frame *Frame
	root  bool
	start time.Time
	// ctx is the context the frame was started from. The root hands it to the
	// Persister without its cancellation.
	ctx context.Context

	log      Logger
	frameLog Logger
	span     trace.Span

	persister Persister
	onErr     PersistErrorFunc
	budget    int
	errp      *error

	result interface{}
	once   sync.Once
}

// IsRoot reports whether the frame is the root of its trace.
func (s *FrameScope) IsRoot() bool { return s != nil && s.root }

// Trace returns the trace the frame belongs to.
func (s *FrameScope) Trace() *Trace {
	if s == nil {
		return nil
	}
	return s.trace
}

// Logger returns the Logger of the frame, named after it. Everything logged
// through it is recorded in the frame.
func (s *FrameScope) Logger() Logger {
	if s == nil {
		return GetGlobalLogger()
	}
	return s.frameLog
}

// SetResult registers the value Done records as the return value.
func (s *FrameScope) SetResult(v interface{}) {
	if s == nil {
		return
	}
	s.result = v
}

// End resolves the frame with the given result and error. A non-nil err
// makes the outcome ERROR; otherwise the truncated result is recorded as the
// return value.
//
// If the frame is the root of its trace, the trace is finalized and handed to
// the Persister. Any error from the Persister is both passed to the
// PersistErrorFunc and returned.
func (s *FrameScope) End(result interface{}, err error) error {
	if s == nil {
		return nil
	}
	var persistErr error
	s.once.Do(func() {
		persistErr = s.end(result, err, nil)
	})
	return persistErr
}

// Done is meant to be deferred right after Start. It ends the frame with the
// value registered through SetResult and the error registered through
// TracerBuilder.Capture, if any.
//
// If the traced function panics, the panic is recorded as the frame's
// exception, the trace is finalized and the panic is propagated.
func (s *FrameScope) Done() {
	if s == nil {
		return
	}
	if r := recover(); r != nil {
		s.endPanic(r)
		panic(r)
	}
	var err error
	if s.errp != nil {
		err = *s.errp
	}
	_ = s.End(s.result, err)
}

func (s *FrameScope) endPanic(v interface{}) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		_ = s.end(nil, nil, panicException(v))
	})
}

func (s *FrameScope) endGoexit() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		_ = s.end(nil, nil, goexitException())
	})
}

func (s *FrameScope) end(result interface{}, err error, exc *Exception) error {
	elapsed := Seconds(clock.Since(s.start))

	outcome := OutcomeSuccessful
	var ret interface{}
	switch {
	case exc != nil:
		outcome = OutcomeError
	case err != nil:
		outcome = OutcomeError
		exc = exceptionFrom(err)
	default:
		ret = truncate.Value(result, s.budget)
	}

	s.trace.update(func() {
		s.frame.Outcome = outcome
		s.frame.ReturnValue = ret
		s.frame.Exception = exc
		s.frame.ElapsedTime = &elapsed
	})
	endSpan(s.span, outcome, exc)

	if exc != nil {
		s.log.Info("ending frame", "outcome", outcome, "elapsed", elapsed, "exception", exc.Type)
	} else {
		s.log.Info("ending frame", "outcome", outcome, "elapsed", elapsed)
	}

	if !s.root {
		return nil
	}
	return s.finish(elapsed)
}

// finish finalizes the trace and persists it.
func (s *FrameScope) finish(flowDuration Seconds) error {
	doc, ok := s.trace.finalize(flowDuration.Duration())
	if !ok {
		s.log.Info("trace discarded before its root completed")
		return nil
	}
	p := s.persister
	if p == nil {
		p = GetGlobalPersister()
	}
	root := doc.Root()
	// A root that returned after its context was cancelled still completed.
	if err := p.Persist(context.WithoutCancel(s.ctx), doc, root.Function, doc.Outcome()); err != nil {
		s.onErr(err, doc, s.log)
		return err
	}
	return nil
}
