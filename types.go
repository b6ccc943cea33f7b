package flowtrace

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/luxas/flowtrace/zaplog"
	"go.opentelemetry.io/otel/trace"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type (
	// TracerProvider is a symbolic link to trace.TracerProvider.
	TracerProvider = trace.TracerProvider
	// Logger is a symbolic link to logr.Logger.
	Logger = logr.Logger
)

// Outcome describes how a frame, or a whole trace, ended.
type Outcome string

const (
	// OutcomeSuccessful means the invocation returned without error.
	OutcomeSuccessful Outcome = "SUCCESSFUL"
	// OutcomeError means the invocation returned an error or panicked.
	OutcomeError Outcome = "ERROR"
	// OutcomeUnknown is used for a trace whose root never resolved.
	OutcomeUnknown Outcome = "UNKNOWN"
)

// Kwargs are named arguments of a traced call. When passed among the
// arguments to Start, they are recorded under "kwargs" instead of "args".
type Kwargs map[string]interface{}

// Persister stores a finalized trace. rootName is the function name of the
// root frame and outcome the aggregated outcome of the trace.
//
//counterfeiter:generate . Persister
type Persister interface {
	Persist(ctx context.Context, doc *Document, rootName string, outcome Outcome) error
}

// PersistErrorFunc is called when the Persister fails to store a finalized
// trace. The error is not retried; the document is passed along so it can be
// handled in some other way.
type PersistErrorFunc func(err error, doc *Document, log Logger)

// DefaultPersistErrorFunc logs the error using log.
func DefaultPersistErrorFunc(err error, doc *Document, log Logger) {
	log.Error(err, "persisting trace failed", "frames", len(doc.Frames))
}

// LogLevelIncreaser decides how much more verbose the Logger of a frame at
// the given depth gets, compared to its parent's.
type LogLevelIncreaser interface {
	GetVIncrease(ctx context.Context, depth int) int
}

// NewZap is a shorthand for zaplog.NewZap().
//
// Refer to the zaplog package for usage details and examples.
func NewZap() *zaplog.Builder { return zaplog.NewZap() }
