package flowtrace

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// FrameAttributePrefix is the prefix used for frame fields registered
	// with the Span mirroring the frame.
	FrameAttributePrefix = "flowtrace."
	// LogAttributePrefix is the prefix used when registering the values of a
	// logged line with the Span mirroring the frame.
	LogAttributePrefix = "log-attr-"

	logEventName = "log"
)

// endSpan ends span, if any, with the outcome of its frame.
func endSpan(span trace.Span, outcome Outcome, exc *Exception) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String(FrameAttributePrefix+"outcome", string(outcome)))
	if exc != nil {
		span.AddEvent("exception", trace.WithAttributes(
			attribute.String("exception.type", exc.Type),
			attribute.String("exception.message", exc.Message),
		))
		// The description is only kept for codes.Error.
		span.SetStatus(codes.Error, exc.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// logToSpan registers a logged line as a span event.
func logToSpan(span trace.Span, msg string, keysAndValues []interface{}) {
	if span == nil || !span.IsRecording() {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.String("message", msg)},
		keysAndValuesToAttrs(keysAndValues)...)
	span.AddEvent(logEventName, trace.WithAttributes(attrs...))
}

func keysAndValuesToAttrs(keysAndValues []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, attribute.String(LogAttributePrefix+key, fmt.Sprint(keysAndValues[i+1])))
	}
	return attrs
}
