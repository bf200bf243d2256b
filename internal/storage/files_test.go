package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveAndRead(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("%PDF-1.4 fake document")
	path, checksum, err := fs.Save("devis-dupont-20260115.pdf", data)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Len(t, checksum, 64)

	got, err := fs.Read("devis-dupont-20260115.pdf", checksum)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileStoreChecksumMismatch(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = fs.Save("rapport-2026-01.pdf", []byte("original"))
	require.NoError(t, err)

	_, err = fs.Read("rapport-2026-01.pdf", "deadbeef")
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = fs.Save("../escape.pdf", []byte("x"))
	assert.Error(t, err)

	_, err = fs.Read("sub/dir.pdf", "")
	assert.Error(t, err)
}
