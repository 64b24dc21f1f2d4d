package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seg.col")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMapping_ReadAt(t *testing.T) {
	path := writeFile(t, []byte("hello, segment"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(14), m.Size())
	assert.Equal(t, []byte("hello, segment"), m.Bytes())

	buf := make([]byte, 7)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "segment", string(buf))

	n, err = m.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n)

	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Advise(AccessSequential))
}

func TestMapping_Slice(t *testing.T) {
	path := writeFile(t, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	b, err := m.Slice(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5}, b)

	_, err = m.Slice(6, 3)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMapping_Empty(t *testing.T) {
	path := writeFile(t, nil)

	m, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, int64(0), m.Size())
	assert.Empty(t, m.Bytes())
	require.NoError(t, m.Advise(AccessRandom))

	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, m.Close())
}

func TestMapping_Close(t *testing.T) {
	path := writeFile(t, []byte("data"))

	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "Close is idempotent")

	assert.Nil(t, m.Bytes())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Slice(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Advise(AccessWillNeed), ErrClosed)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
