package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// BlobStorage persists uploaded PDFs and hands back opaque references.
type BlobStorage interface {
	Save(ctx context.Context, docID string, data []byte) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}

// FileStorage stores uploads under a base URL via the afs service, one
// file per document named by its doc_id.
type FileStorage struct {
	fs      afs.Service
	baseURL string
}

// NewFileStorage creates storage rooted at baseURL, e.g. "file://uploads"
// or a plain relative path.
func NewFileStorage(baseURL string) *FileStorage {
	return &FileStorage{
		fs:      afs.New(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save writes data under a doc_id-derived name and returns its URL.
func (s *FileStorage) Save(ctx context.Context, docID string, data []byte) (string, error) {
	ref := fmt.Sprintf("%s/%s.pdf", s.baseURL, docID)
	if err := s.fs.Upload(ctx, ref, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store upload for doc %s: %w", docID, err)
	}
	return ref, nil
}

// Exists reports whether the referenced file is still present.
func (s *FileStorage) Exists(ctx context.Context, ref string) (bool, error) {
	return s.fs.Exists(ctx, ref)
}

// Delete removes the referenced file.
func (s *FileStorage) Delete(ctx context.Context, ref string) error {
	return s.fs.Delete(ctx, ref)
}
