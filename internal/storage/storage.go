// Package storage persists image binaries under a configured root
// directory. Database rows hold the normalized key; this package owns
// the bytes.
package storage

import (
	"context"
	"log"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"kaderisasi-backend-go/internal/apperr"
)

// Store is the blob backend the image repositories coordinate with.
// Only a filesystem implementation exists today; an object-store
// implementation would satisfy the same contract.
type Store interface {
	// Normalize escapes a caller-supplied filename into the canonical
	// key used on disk and in pointer rows.
	Normalize(name string) string
	// Put durably writes the blob for key, creating or overwriting.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the blob for key. A missing key is success:
	// callers delete opportunistically when superseding or removing a
	// pointer that may already be gone.
	Delete(ctx context.Context, key string) error
	// Resolve returns the backend path for key.
	Resolve(key string) string
}

type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Normalize(name string) string {
	return url.PathEscape(name)
}

func (s *FileStore) Resolve(key string) string {
	return filepath.Join(s.root, key)
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return apperr.StorageWrite(key, err)
	}
	target := s.Resolve(key)
	// Write to a scratch name first so an interrupted write never leaves
	// a truncated blob under the committed key.
	tmp := filepath.Join(s.root, ".upload-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.StorageWrite(key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return apperr.StorageWrite(key, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.Resolve(key))
	if err != nil && !os.IsNotExist(err) {
		return apperr.StorageWrite(key, err)
	}
	if os.IsNotExist(err) {
		log.Printf("storage: blob %s already absent", key)
	}
	return nil
}

// Read returns the blob bytes for key.
func (s *FileStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.Resolve(key))
	if err != nil {
		return nil, apperr.StorageRead(key, err)
	}
	return data, nil
}
