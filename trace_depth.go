package flowtrace

import (
	"context"
)

// resolveCarrier reads the carrier of ctx for a frame about to start.
//
// Inconsistent states can only be the result of WithActiveTrace and WithDepth
// misuse. They are clamped to idle, and a trace found in such a state is
// discarded, never persisted. A trace that was already finalized, e.g.
// because a goroutine forked from it outlived the root, is left alone; the
// new frame simply starts a new trace.
func resolveCarrier(ctx context.Context, log Logger) carrier {
	c := carrierFrom(ctx)
	switch {
	case c.depth < 0:
		log.Info("clamping negative trace depth to idle", "depth", c.depth)
		if c.trace != nil {
			c.trace.discard()
		}
		return carrier{}
	case c.trace == nil && c.depth > 0:
		log.Info("clamping trace depth without active trace to idle", "depth", c.depth)
		return carrier{}
	case c.trace != nil && c.depth == 0:
		log.Info("discarding active trace found at depth 0")
		c.trace.discard()
		return carrier{}
	case c.trace != nil && c.trace.Finalized():
		log.V(1).Info("active trace already finalized, starting a new one", "depth", c.depth)
		return carrier{}
	}
	return c
}

type logLevelIncreaserFunc func(ctx context.Context, depth int) int

func (f logLevelIncreaserFunc) GetVIncrease(ctx context.Context, depth int) int {
	return f(ctx, depth)
}

// NoLogLevelIncrease returns a LogLevelIncreaser that never bumps the verbosity,
// regardless of how deep the call tree gets.
func NoLogLevelIncrease() LogLevelIncreaser {
	return logLevelIncreaserFunc(func(context.Context, int) int { return 0 })
}

// NthLogLevelIncrease returns a LogLevelIncreaser that increases the verbosity
// of the Logger once every n levels of depth.
//
// For NthLogLevelIncrease(2), frames log like follows:
//
//	|A (d=0, v=0)                                      |
//	 -----> |B (d=1, v=0)           | |D (d=1, v=0) |
//	         ----> |C (d=2, v=1) |
//
// The default LogLevelIncreaser is NthLogLevelIncrease(1), which essentially
// means log = log.V(1) for each child frame.
func NthLogLevelIncrease(n uint64) LogLevelIncreaser {
	return logLevelIncreaserFunc(func(_ context.Context, depth int) int {
		if depth <= 0 || n == 0 {
			return 0
		}
		if uint64(depth)%n == 0 {
			return 1
		}
		return 0
	})
}

func logLevelIncreaserOrDefault(lli LogLevelIncreaser) LogLevelIncreaser {
	if lli != nil {
		return lli
	}
	return NthLogLevelIncrease(1)
}
