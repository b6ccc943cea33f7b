package flowtrace

import (
	"context"

	"github.com/go-logr/logr"
)

// carrier is the trace state of the logical task a context belongs to.
// It is stored by value, so deriving a context with a new carrier never
// affects the parent context or contexts forked from it earlier.
type carrier struct {
	trace *Trace
	depth int
}

type carrierKeyStruct struct{}

var carrierKey = carrierKeyStruct{} //nolint:gochecknoglobals

func carrierFrom(ctx context.Context) carrier {
	c, _ := ctx.Value(carrierKey).(carrier)
	return c
}

func withCarrier(ctx context.Context, c carrier) context.Context {
	return context.WithValue(ctx, carrierKey, c)
}

// ActiveTrace returns the trace in progress for the logical task of ctx, or
// nil if the task is idle.
func ActiveTrace(ctx context.Context) *Trace { return carrierFrom(ctx).trace }

// WithActiveTrace returns a context descending from parent with t as the
// active trace. Passing nil clears it.
func WithActiveTrace(parent context.Context, t *Trace) context.Context {
	c := carrierFrom(parent)
	c.trace = t
	return withCarrier(parent, c)
}

// Depth returns the number of frames currently open in the logical task of
// ctx. It is 0 when idle.
func Depth(ctx context.Context) int { return carrierFrom(ctx).depth }

// WithDepth returns a context descending from parent with the given depth.
func WithDepth(parent context.Context, depth int) context.Context {
	c := carrierFrom(parent)
	c.depth = depth
	return withCarrier(parent, c)
}

// IsIdle reports whether no trace is in progress in ctx.
func IsIdle(ctx context.Context) bool {
	c := carrierFrom(ctx)
	return c.trace == nil && c.depth == 0
}

// settings are the per-context defaults for the TracerBuilder.
type settings struct {
	persister Persister
	tp        TracerProvider
	budget    int
	lli       LogLevelIncreaser
}

type settingsKeyStruct struct{}

var settingsKey = settingsKeyStruct{} //nolint:gochecknoglobals

func settingsFrom(ctx context.Context) settings {
	s, _ := ctx.Value(settingsKey).(settings)
	return s
}

// Context returns a new *ContextBuilder.
func Context() *ContextBuilder { return &ContextBuilder{} }

// ContextBuilder is a builder-pattern constructor for a context.Context that
// possibly includes a Logger, Persister, TracerProvider, truncation budget
// and/or LogLevelIncreaser to use for frames started from it.
type ContextBuilder struct {
	from context.Context
	log  *Logger
	s    settings
}

// From sets the "base context" to start applying context.WithValue operations
// to. By default this is context.Background().
func (b *ContextBuilder) From(ctx context.Context) *ContextBuilder {
	b.from = ctx
	return b
}

// WithLogger registers a Logger with the context.
func (b *ContextBuilder) WithLogger(log Logger) *ContextBuilder {
	b.log = &log
	return b
}

// WithPersister registers the Persister finalized traces are handed to.
func (b *ContextBuilder) WithPersister(p Persister) *ContextBuilder {
	b.s.persister = p
	return b
}

// WithTracerProvider registers a TracerProvider that frames are mirrored to
// as spans.
func (b *ContextBuilder) WithTracerProvider(tp TracerProvider) *ContextBuilder {
	b.s.tp = tp
	return b
}

// WithTruncateBudget sets the truncation budget for arguments and results.
func (b *ContextBuilder) WithTruncateBudget(budget int) *ContextBuilder {
	b.s.budget = budget
	return b
}

// WithLogLevelIncreaser registers a LogLevelIncreaser with the context.
func (b *ContextBuilder) WithLogLevelIncreaser(lli LogLevelIncreaser) *ContextBuilder {
	b.s.lli = lli
	return b
}

// Build builds the context. Settings not given are inherited from the base
// context, if it carries any.
func (b *ContextBuilder) Build() context.Context {
	ctx := b.from
	if ctx == nil {
		ctx = context.Background()
	}
	s := settingsFrom(ctx)
	if b.s.persister != nil {
		s.persister = b.s.persister
	}
	if b.s.tp != nil {
		s.tp = b.s.tp
	}
	if b.s.budget != 0 {
		s.budget = b.s.budget
	}
	if b.s.lli != nil {
		s.lli = b.s.lli
	}
	ctx = context.WithValue(ctx, settingsKey, s)
	if b.log != nil {
		ctx = logr.NewContext(ctx, *b.log)
	}
	return ctx
}
