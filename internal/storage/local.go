// Package storage persists uploaded files and yields the attachment metadata
// the core consumes. The core never looks inside the blobs.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredFile is the metadata produced for one saved upload.
type StoredFile struct {
	Filename     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	URL          string
}

// LocalStore writes uploads to a directory on disk.
type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewLocalStore prepares the upload directory.
func NewLocalStore(dir, baseURL string, maxSizeMB int) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// Save persists one multipart file under a unique name, keeping the original
// extension, and returns its metadata.
func (s *LocalStore) Save(header *multipart.FileHeader) (StoredFile, error) {
	if s.maxSize > 0 && header.Size > s.maxSize {
		return StoredFile{}, fmt.Errorf("file %s exceeds size limit", header.Filename)
	}

	src, err := header.Open()
	if err != nil {
		return StoredFile{}, err
	}
	defer src.Close()

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return StoredFile{}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return StoredFile{}, err
	}

	return StoredFile{
		Filename:     name,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		SizeBytes:    header.Size,
		URL:          s.baseURL + "/" + name,
	}, nil
}

// Dir returns the directory served under the upload base URL.
func (s *LocalStore) Dir() string {
	return s.dir
}
