package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// FileStore persists generated PDFs on local disk. Every write records a
// BLAKE3 checksum so a stored document can be verified before it is attached
// to an email or handed to a signer.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes data under name and returns the file path and its checksum.
// Names are flattened to the store root; path separators are rejected.
func (fs *FileStore) Save(name string, data []byte) (path, checksum string, err error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("invalid document name %q", name)
	}

	path = filepath.Join(fs.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write document: %w", err)
	}

	sum := blake3.Sum256(data)
	return path, hex.EncodeToString(sum[:]), nil
}

// Read loads a stored document and verifies it against expectedChecksum.
// An empty expectedChecksum skips verification.
func (fs *FileStore) Read(name, expectedChecksum string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid document name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(fs.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	if expectedChecksum != "" {
		sum := blake3.Sum256(data)
		if hex.EncodeToString(sum[:]) != expectedChecksum {
			return nil, fmt.Errorf("checksum mismatch for %s", name)
		}
	}
	return data, nil
}
