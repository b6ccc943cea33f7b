package flowtrace

import (
	"context"
)

// Wrap0 returns a function with the same signature as fn, that runs fn in a
// new frame. The context passed to fn carries the frame, so any traced
// function fn calls with it becomes a child frame.
//
// The results of fn are returned unchanged, also when fn fails or the trace
// cannot be persisted. If fn panics, the panic is recorded and propagated.
//
// If b is nil, Tracer() is used. If name is empty, the name of fn is used.
func Wrap0[Out any](b *TracerBuilder, name string, fn func(context.Context) (Out, error)) func(context.Context) (Out, error) {
	b, name = wrapDefaults(b, name, fn)
	return func(ctx context.Context) (Out, error) {
		return invoke(ctx, b, name, nil, fn)
	}
}

// Wrap is like Wrap0, but for functions with one argument, which is recorded
// in the frame.
func Wrap[In, Out any](b *TracerBuilder, name string, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	b, name = wrapDefaults(b, name, fn)
	return func(ctx context.Context, in In) (Out, error) {
		return invoke(ctx, b, name, []interface{}{in}, func(ctx context.Context) (Out, error) {
			return fn(ctx, in)
		})
	}
}

// Wrap2 is like Wrap0, but for functions with two arguments, which are
// recorded in the frame.
func Wrap2[A, B, Out any](b *TracerBuilder, name string, fn func(context.Context, A, B) (Out, error)) func(context.Context, A, B) (Out, error) {
	b, name = wrapDefaults(b, name, fn)
	return func(ctx context.Context, a A, bb B) (Out, error) {
		return invoke(ctx, b, name, []interface{}{a, bb}, func(ctx context.Context) (Out, error) {
			return fn(ctx, a, bb)
		})
	}
}

func wrapDefaults(b *TracerBuilder, name string, fn interface{}) (*TracerBuilder, string) {
	if b == nil {
		b = Tracer()
	}
	if name == "" {
		name = funcName(fn)
	}
	return b, name
}

func invoke[Out any](ctx context.Context, b *TracerBuilder, name string, args []interface{}, call func(context.Context) (Out, error)) (Out, error) {
	if !IsEnabled() {
		return call(ctx)
	}

	ctx, scope := b.Start(ctx, name, args...)
	returned := false
	defer func() {
		if returned {
			return
		}
		if r := recover(); r != nil {
			scope.endPanic(r)
			panic(r)
		}
		// runtime.Goexit
		scope.endGoexit()
	}()

	out, err := call(ctx)
	returned = true
	// The persistence error has been handed to the PersistErrorFunc already
	_ = scope.End(out, err)
	return out, err
}
