package flowtrace

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarrier_copyOnFork(t *testing.T) {
	ctx := context.Background()
	assert.True(t, IsIdle(ctx))
	assert.Nil(t, ActiveTrace(ctx))
	assert.Equal(t, 0, Depth(ctx))

	tr := NewTrace()
	withTrace := WithActiveTrace(ctx, tr)
	deeper := WithDepth(withTrace, 2)

	assert.Same(t, tr, ActiveTrace(deeper))
	assert.Equal(t, 2, Depth(deeper))
	assert.False(t, IsIdle(deeper))

	// Neither parent was touched
	assert.Equal(t, 0, Depth(withTrace))
	assert.True(t, IsIdle(ctx))

	cleared := WithActiveTrace(deeper, nil)
	assert.Nil(t, ActiveTrace(cleared))
	assert.Equal(t, 2, Depth(cleared))
}

func TestContextBuilder(t *testing.T) {
	p := &FilePersister{}
	lli := NoLogLevelIncrease()
	log := logr.Discard().WithName("ctx")

	ctx := Context().
		WithLogger(log).
		WithPersister(p).
		WithTruncateBudget(42).
		WithLogLevelIncreaser(lli).
		Build()

	s := settingsFrom(ctx)
	assert.Same(t, p, s.persister)
	assert.Equal(t, 42, s.budget)
	assert.NotNil(t, s.lli)
	assert.Nil(t, s.tp)

	got, err := logr.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, log, got)
}

func TestContextBuilder_inheritsSettings(t *testing.T) {
	p := &FilePersister{}
	base := Context().WithPersister(p).WithTruncateBudget(42).Build()

	ctx := Context().From(base).WithTruncateBudget(7).Build()
	s := settingsFrom(ctx)
	assert.Same(t, p, s.persister)
	assert.Equal(t, 7, s.budget)

	// The base is unchanged
	assert.Equal(t, 42, settingsFrom(base).budget)
}

func TestResolveCarrier(t *testing.T) {
	log := logr.Discard()

	t.Run("idle", func(t *testing.T) {
		assert.Equal(t, carrier{}, resolveCarrier(context.Background(), log))
	})
	t.Run("active", func(t *testing.T) {
		tr := NewTrace()
		ctx := withCarrier(context.Background(), carrier{trace: tr, depth: 1})
		assert.Equal(t, carrier{trace: tr, depth: 1}, resolveCarrier(ctx, log))
		assert.False(t, tr.Finalized())
	})
	t.Run("finalized", func(t *testing.T) {
		tr := NewTrace()
		tr.push(&Frame{Function: "root"})
		_, ok := tr.finalize(0)
		require.True(t, ok)

		ctx := withCarrier(context.Background(), carrier{trace: tr, depth: 1})
		assert.Equal(t, carrier{}, resolveCarrier(ctx, log))
		// A finalized trace is left as-is
		assert.Equal(t, 1, tr.Len())
	})
	t.Run("negative depth", func(t *testing.T) {
		tr := NewTrace()
		tr.push(&Frame{Function: "root"})
		ctx := withCarrier(context.Background(), carrier{trace: tr, depth: -1})
		assert.Equal(t, carrier{}, resolveCarrier(ctx, log))
		assert.True(t, tr.Finalized())
		assert.Equal(t, 0, tr.Len())
	})
}

func TestNthLogLevelIncrease(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		n     uint64
		depth int
		want  int
	}{
		{1, 0, 0},
		{1, 1, 1},
		{1, 5, 1},
		{2, 1, 0},
		{2, 2, 1},
		{2, 3, 0},
		{0, 4, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NthLogLevelIncrease(tt.n).GetVIncrease(ctx, tt.depth), "n=%d depth=%d", tt.n, tt.depth)
	}
	assert.Equal(t, 0, NoLogLevelIncrease().GetVIncrease(ctx, 3))
	assert.Equal(t, 1, logLevelIncreaserOrDefault(nil).GetVIncrease(ctx, 3))
}
