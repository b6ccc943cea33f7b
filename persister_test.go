package flowtrace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersister_WriteAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	p := NewFilePersister(dir)
	doc := sampleDocument()

	u, err := p.Write(ctx, doc, "process", OutcomeError)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u, "/process__2024_05_01-14_03_59_PM_042_ERROR.json"), u)

	// The file is plain JSON on disk
	data, err := os.ReadFile(filepath.Join(dir, "process__2024_05_01-14_03_59_PM_042_ERROR.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"flow_duration\""))

	loaded, err := p.Load(ctx, u)
	require.NoError(t, err)
	assert.Len(t, loaded.Frames, 3)
	assert.Equal(t, "process", loaded.Root().Function)

	// Bare names are resolved against the base directory
	loaded, err = p.Load(ctx, "process__2024_05_01-14_03_59_PM_042_ERROR.json")
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, loaded.Outcome())
}

func TestFilePersister_collisions(t *testing.T) {
	ctx := context.Background()
	p := NewFilePersister(t.TempDir())
	doc := sampleDocument()

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Persist(ctx, doc, "process", OutcomeSuccessful))
	}

	files, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for i, f := range files {
		assert.Equal(t, "process", f.Root)
		assert.Equal(t, OutcomeSuccessful, f.Outcome)
		assert.Equal(t, i, f.Seq)
		assert.Equal(t, doc.Root().Timestamp.String(), f.Timestamp.String())
	}
	assert.True(t, strings.HasSuffix(files[2].URL, "_SUCCESSFUL-2.json"), files[2].URL)
}

func TestFilePersister_List(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewFilePersister(dir)

	early := sampleDocument()
	late := sampleDocument()
	late.Frames[0].Timestamp = NewTimestamp(early.Frames[0].Timestamp.Time().AddDate(0, 0, 1))

	require.NoError(t, p.Persist(ctx, late, "b_root", OutcomeSuccessful))
	require.NoError(t, p.Persist(ctx, early, "z_root", OutcomeError))
	require.NoError(t, p.Persist(ctx, early, "a_root", OutcomeSuccessful))
	// Not traces
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub__dir.json"), 0o700))

	files, err := p.List(ctx)
	require.NoError(t, err)
	roots := make([]string, 0, len(files))
	for _, f := range files {
		roots = append(roots, f.Root)
	}
	assert.Equal(t, []string{"a_root", "z_root", "b_root"}, roots)
}

func TestFilePersister_ListMissingDir(t *testing.T) {
	files, err := NewFilePersister(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFilePersister_PersistError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o600))

	err := NewFilePersister(blocker).Persist(context.Background(), sampleDocument(), "process", OutcomeSuccessful)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &PersistError{}))

	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.URL, "file")
	assert.NotNil(t, perr.Unwrap())
	assert.Contains(t, err.Error(), "couldn't persist trace to")
}

func TestNewFilePersister_default(t *testing.T) {
	p := NewFilePersister("")
	assert.True(t, strings.HasSuffix(p.BaseURL(), "/"+DefaultLogDir), p.BaseURL())
}
