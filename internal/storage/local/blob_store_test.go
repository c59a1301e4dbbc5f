package local_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/roof-estimate/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "drafts", "out")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{BaseDir: "  "})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("NestedPath", func(t *testing.T) {
		path := "drafts/job-1/abc.md"
		data := []byte("# Metal Roof Cost\n")
		uri, err := store.PutObject(ctx, path, "text/markdown", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		got, err := store.ReadObject(path)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		entries, err := os.ReadDir(filepath.Join(tempDir, "drafts", "job-1"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files should be renamed away")
	})

	t.Run("Overwrite", func(t *testing.T) {
		_, err := store.PutObject(ctx, "x.md", "", bytes.NewReader([]byte("one")))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "x.md", "", bytes.NewReader([]byte("two")))
		require.NoError(t, err)
		got, err := store.ReadObject("x.md")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.md", "text/plain", bytes.NewReader([]byte("data")))
		assert.True(t, errors.Is(err, local.ErrPathTraversal))
		_, err = store.ReadObject("../../etc/passwd")
		assert.True(t, errors.Is(err, local.ErrPathTraversal))
	})
}
