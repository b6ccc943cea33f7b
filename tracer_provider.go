package flowtrace

import (
	"context"
	"io"
	"math/rand"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// DefaultServiceName is the "service.name" attribute of the TracerProviders
// built by Provider().
const DefaultServiceName = "flowtrace"

// Provider returns a new *TracerProviderBuilder instance.
func Provider() *TracerProviderBuilder {
	return &TracerProviderBuilder{}
}

// TracerProviderBuilder is an opinionated builder-pattern constructor for a
// TracerProvider that frames can be mirrored to, e.g. using
// TracerBuilder.WithTracerProvider. The spans stay within the process; they
// are exported to stdout, or any other writer.
type TracerProviderBuilder struct {
	exporters []tracesdk.SpanExporter
	errs      []error
	tpOpts    []tracesdk.TracerProviderOption
	attrs     []attribute.KeyValue
	sync      bool
}

// WithStdoutExporter exports pretty-formatted telemetry data to os.Stdout, or another writer if
// stdouttrace.WithWriter(w) is supplied as an option.
func (b *TracerProviderBuilder) WithStdoutExporter(opts ...stdouttrace.Option) *TracerProviderBuilder {
	defaultOpts := []stdouttrace.Option{
		stdouttrace.WithPrettyPrint(),
	}
	// Make sure to order the defaultOpts first, so opts can override the default ones
	opts = append(defaultOpts, opts...)
	exp, err := stdouttrace.New(opts...)
	b.exporters = append(b.exporters, exp)
	b.errs = append(b.errs, err)
	return b
}

// WithExporter registers any other SpanExporter, e.g. a
// tracetest.InMemoryExporter in unit tests.
func (b *TracerProviderBuilder) WithExporter(exp tracesdk.SpanExporter) *TracerProviderBuilder {
	b.exporters = append(b.exporters, exp)
	return b
}

// WithOptions allows configuring the TracerProvider in various ways, for example tracesdk.WithSpanProcessor(sp)
// or tracesdk.WithIDGenerator().
func (b *TracerProviderBuilder) WithOptions(opts ...tracesdk.TracerProviderOption) *TracerProviderBuilder {
	b.tpOpts = append(b.tpOpts, opts...)
	return b
}

// WithAttributes allows registering more default attributes for traces created by this TracerProvider.
// By default semantic conventions of version v1.24.0 are used, with "service.name" => DefaultServiceName.
func (b *TracerProviderBuilder) WithAttributes(attrs ...attribute.KeyValue) *TracerProviderBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// Synchronous allows configuring whether the exporters should export in synchronous mode,
// which is useful for avoiding flakes in unit tests. The default mode is batching.
// DO NOT use in production.
func (b *TracerProviderBuilder) Synchronous() *TracerProviderBuilder {
	b.sync = true
	return b
}

// DeterministicIDs enables deterministic trace and span IDs. Useful for unit tests.
// DO NOT use in production.
func (b *TracerProviderBuilder) DeterministicIDs(seed int64) *TracerProviderBuilder {
	return b.WithOptions(tracesdk.WithIDGenerator(deterministicWithSeed(seed)))
}

// Build builds the SDK TracerProvider. Call Shutdown on it to flush the spans.
func (b *TracerProviderBuilder) Build() (*tracesdk.TracerProvider, error) {
	// Default to discard all trace output, if no exporter is configured
	if len(b.exporters) == 0 {
		b = b.WithStdoutExporter(stdouttrace.WithWriter(io.Discard))
	}
	if err := multierr.Combine(b.errs...); err != nil {
		return nil, err
	}

	// Make sure to order the default attrs first, so b.attrs can override the default ones
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(DefaultServiceName),
	}
	attrs = append(attrs, b.attrs...)

	tpOpts := []tracesdk.TracerProviderOption{
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	}
	for _, exporter := range b.exporters {
		if b.sync {
			tpOpts = append(tpOpts, tracesdk.WithSyncer(exporter))
			continue
		}
		tpOpts = append(tpOpts, tracesdk.WithBatcher(exporter))
	}
	tpOpts = append(tpOpts, b.tpOpts...)
	return tracesdk.NewTracerProvider(tpOpts...), nil
}

// InstallGlobally builds the TracerProvider and registers it globally using otel.SetTracerProvider(tp).
// Use GetGlobalTracerProvider with Context().WithTracerProvider to mirror frames to it.
func (b *TracerProviderBuilder) InstallGlobally() (*tracesdk.TracerProvider, error) {
	tp, err := b.Build()
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetGlobalTracerProvider returns the global TracerProvider registered.
// This is a shorthand for otel.GetTracerProvider().
func GetGlobalTracerProvider() TracerProvider { return otel.GetTracerProvider() }

type deterministicIDGenerator struct {
	mu  *sync.Mutex
	rnd *rand.Rand
}

func (g *deterministicIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	sid := trace.SpanID{}
	_, _ = g.rnd.Read(sid[:])
	return sid
}

func (g *deterministicIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tid := trace.TraceID{}
	_, _ = g.rnd.Read(tid[:])
	sid := trace.SpanID{}
	_, _ = g.rnd.Read(sid[:])
	return tid, sid
}

func deterministicWithSeed(seed int64) tracesdk.IDGenerator {
	return &deterministicIDGenerator{
		mu: &sync.Mutex{},
		// Use the "weak" random number generator math/rand, not the more secure
		// crypto/rand because we specifically don't want secure randomness but
		// deterministicness for unit tests.
		//nolint:gosec
		rnd: rand.New(rand.NewSource(seed)),
	}
}
