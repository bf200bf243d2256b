package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSQLiteFilesystemAllowsLocal(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "leadgw.db")
	err := validateSQLiteFilesystemWithDetector(dbPath, func(string) (string, error) {
		return "ext4", nil
	})
	assert.NoError(t, err)
}

func TestValidateSQLiteFilesystemRejectsNetwork(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "leadgw.db")
	err := validateSQLiteFilesystemWithDetector(dbPath, func(string) (string, error) {
		return "smbfs", nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smbfs")
	assert.Contains(t, err.Error(), "database.path")
}

func TestValidateSQLiteFilesystemInspectsNearestExistingPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "nested", "dir", "leadgw.db")

	var inspected string
	err := validateSQLiteFilesystemWithDetector(dbPath, func(path string) (string, error) {
		inspected = path
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, inspected)
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	assert.True(t, isNetworkFilesystem("nfs"))
	assert.True(t, isNetworkFilesystem("SMBFS"))
	assert.False(t, isNetworkFilesystem("ext4"))
	assert.False(t, isNetworkFilesystem("0x6969"))
}
