package flowtrace

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/luxas/flowtrace/internal/clock"
	"github.com/luxas/flowtrace/truncate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

/*
	If TracerBuilder.WithLogger is set, that logger will be used.
	If SetAcquireLoggerFunc is set, it'll be used to get the logger.
	If the context carries a logger, it'll be used.
	If SetGlobalLogger is set, it'll be used.
	Otherwise, logr.Discard will be used.

	The Persister, TracerProvider, truncation budget and LogLevelIncreaser
	are resolved the same way: the builder first, then the context (see
	Context()), then the package defaults.

	Frames are recorded regardless of the logger verbosity. Only IsEnabled()
	turns tracing off.
*/

// TracerBuilder starts frames of a trace.
type TracerBuilder struct {
	actor     interface{}
	log       Logger
	hasLog    bool
	persister Persister
	tp        TracerProvider
	budget    int
	lli       LogLevelIncreaser
	err       *error
	onErr     PersistErrorFunc
}

// Tracer returns a new *TracerBuilder.
func Tracer() *TracerBuilder {
	return &TracerBuilder{onErr: DefaultPersistErrorFunc}
}

// WithActor registers an "actor" for the given function that is
// traced.
//
// If the function traced is called e.g. Read and the struct
// implementing Read is *FooReader, then *FooReader is the actor.
//
// In order to make the frame and logger name "*FooReader.Read", and
// not just an ambiguous "Read", pass the *FooReader as actor here.
//
// If the actor implements TracerNamed, the return value of that will
// be returned. If actor is a string, that name is used. If actor
// is a os.Std{in,out,err} or io.Discard, those human-friendly names
// are used. Otherwise, the type name is resolved by
// fmt.Sprintf("%T", actor), which automatically registers the package
// and type name.
func (b *TracerBuilder) WithActor(actor interface{}) *TracerBuilder {
	b.actor = actor
	return b
}

// WithLogger specifies a Logger to use in the trace process.
//
// A call to this function overwrites any previous value.
func (b *TracerBuilder) WithLogger(log Logger) *TracerBuilder {
	b.log = log
	b.hasLog = true
	return b
}

// WithPersister specifies the Persister the trace is handed to, if the frame
// started is the root. It takes precedence over the context and global ones.
func (b *TracerBuilder) WithPersister(p Persister) *TracerBuilder {
	b.persister = p
	return b
}

// WithTracerProvider specifies a TracerProvider the frame is mirrored to as
// a span.
//
// A call to this function overwrites any previous value.
func (b *TracerBuilder) WithTracerProvider(tp TracerProvider) *TracerBuilder {
	b.tp = tp
	return b
}

// WithTruncateBudget sets how many characters each argument, keyword argument
// and the return value may take up. The default is truncate.DefaultBudget.
func (b *TracerBuilder) WithTruncateBudget(budget int) *TracerBuilder {
	b.budget = budget
	return b
}

// WithLogLevelIncreaser specifies how log verbosity grows with depth.
// The default is NthLogLevelIncrease(1).
func (b *TracerBuilder) WithLogLevelIncreaser(lli LogLevelIncreaser) *TracerBuilder {
	b.lli = lli
	return b
}

// OnPersistError registers what to do when persisting the trace fails.
//
// By default this is DefaultPersistErrorFunc.
func (b *TracerBuilder) OnPersistError(fn PersistErrorFunc) *TracerBuilder {
	b.onErr = fn
	return b
}

// Capture is used to capture a named error return value from the
// function this TracerBuilder is executing in. It is possible to
// "expose" a return value like "func foo() (retErr error) {}"
// although named returns are never used.
//
// When the deferred FrameScope.Done() is called at the end of the function,
// whatever error value this error pointer points to decides the outcome of
// the frame.
//
// A call to this function overwrites any previous value.
func (b *TracerBuilder) Capture(err *error) *TracerBuilder {
	b.err = err
	return b
}

// Start enters a new frame, named after the actor (see WithActor) and fnName,
// and returns a context to pass on to everything the traced function calls,
// and the FrameScope to end the frame with.
//
// If the context has no active trace, a new trace is started with this frame
// as its root. Otherwise the frame is appended to the active trace, one level
// deeper than its caller.
//
// Every element of args is truncated independently. Kwargs among args are
// recorded as keyword arguments instead.
//
// A Logger that records everything logged through it in this frame is
// registered with the returned context, and also available through
// FrameScope.Logger().
//
// If tracing is disabled through SetGlobalEnabled, ctx is returned as-is
// together with a nil *FrameScope, which is safe to use.
func (b *TracerBuilder) Start(ctx context.Context, fnName string, args ...interface{}) (context.Context, *FrameScope) {
	if !IsEnabled() {
		return ctx, nil
	}
	s := settingsFrom(ctx)

	// Acquire the logger, and strip any frame recording from the parent frame
	log := b.log
	if !b.hasLog {
		log = LoggerFromContext(ctx)
	}
	log = plainLogger(log)

	c := resolveCarrier(ctx, log)

	name := fmtFrameName(tracerName(b.actor), fnName)
	budget := firstPositive(b.budget, s.budget, truncate.DefaultBudget)
	now := clock.Now()
	frame := &Frame{
		Function:  name,
		Args:      []interface{}{},
		Kwargs:    map[string]interface{}{},
		Timestamp: NewTimestamp(now),
	}
	for _, arg := range args {
		if kw, ok := arg.(Kwargs); ok {
			for k, v := range kw {
				frame.Kwargs[k] = truncate.Value(v, budget)
			}
			continue
		}
		frame.Args = append(frame.Args, truncate.Value(arg, budget))
	}

	t, depth := c.trace, c.depth
	if t == nil || !t.push(withDepth(frame, depth)) {
		// Either idle, or the trace got finalized after resolveCarrier
		t, depth = NewTrace(), 0
		t.push(withDepth(frame, 0))
	}

	lli := b.lli
	if lli == nil {
		lli = s.lli
	}
	if v := logLevelIncreaserOrDefault(lli).GetVIncrease(ctx, depth); v != 0 {
		log = log.V(v)
	}

	persister := b.persister
	if persister == nil {
		persister = s.persister
	}
	onErr := b.onErr
	if onErr == nil {
		onErr = DefaultPersistErrorFunc
	}
	scope := &FrameScope{
		trace:     t,
		frame:     frame,
		root:      depth == 0,
		start:     now,
		ctx:       ctx,
		log:       log.WithName(name),
		persister: persister,
		onErr:     onErr,
		budget:    budget,
		errp:      b.err,
	}

	// Mirror the frame as a span, if a TracerProvider is available
	tp := b.tp
	if tp == nil {
		tp = s.tp
	}
	if tp != nil {
		ctx, scope.span = tp.Tracer(tracerName(b.actor)).Start(ctx, name,
			trace.WithAttributes(
				attribute.Int(FrameAttributePrefix+"depth", depth),
				attribute.String(FrameAttributePrefix+"timestamp", frame.Timestamp.String()),
			))
	}

	// The recording logger is propagated downwards; child frames strip it
	// again, but goroutines that don't start frames of their own keep
	// recording into this one.
	frameLog := newFrameLogger(log, t, frame, scope.span, budget)
	scope.frameLog = frameLog.WithName(name)
	ctx = logr.NewContext(ctx, frameLog)
	ctx = withCarrier(ctx, carrier{trace: t, depth: depth + 1})

	scope.log.Info("starting frame", "depth", depth, "root", scope.root)
	return ctx, scope
}

func withDepth(f *Frame, depth int) *Frame {
	f.Depth = depth
	return f
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
