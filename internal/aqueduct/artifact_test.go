package aqueduct

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFilesystemArtifact_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	a := &LocalFilesystemArtifact{Path: filepath.Join(dir, "out.bin")}

	exists, err := a.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	writer := func(w io.Writer, v any) error {
		_, err := w.Write([]byte(v.(string)))
		return err
	}
	require.NoError(t, a.Write(writer, "hello"))

	exists, err = a.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	reader := func(r io.Reader) (any, error) {
		b, err := io.ReadAll(r)
		return string(b), err
	}
	v, err := a.Read(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	lm, err := a.LastModified()
	require.NoError(t, err)
	assert.False(t, lm.IsZero())
}

func TestLocalFilesystemArtifact_AtomicWriteLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	a := &LocalFilesystemArtifact{Path: filepath.Join(dir, "out.bin")}

	writer := func(w io.Writer, v any) error {
		_, err := io.Copy(w, bytes.NewReader(v.([]byte)))
		return err
	}
	require.NoError(t, a.Write(writer, []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompositeArtifact_ExistsRequiresAllChildren(t *testing.T) {
	dir := t.TempDir()
	a1 := &LocalFilesystemArtifact{Path: filepath.Join(dir, "a")}
	a2 := &LocalFilesystemArtifact{Path: filepath.Join(dir, "b")}
	comp := &CompositeArtifact{Children: []Artifact{a1, a2}}

	exists, err := comp.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	writer := func(w io.Writer, v any) error { _, err := w.Write(v.([]byte)); return err }
	require.NoError(t, a1.Write(writer, []byte("x")))
	exists, err = comp.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, a2.Write(writer, []byte("y")))
	exists, err = comp.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := comp.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestInMemoryArtifact_RoundTrip(t *testing.T) {
	a := &InMemoryArtifact{}
	exists, _ := a.Exists()
	assert.False(t, exists)

	require.NoError(t, a.Write(nil, 42))
	exists, _ = a.Exists()
	assert.True(t, exists)

	v, err := a.Read(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
