package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore is the app-owned durable media directory. All writes land under
// its root; callers never hand it absolute destination paths.
type LocalStore struct {
	root string
}

// NewLocalStore creates the storage root if needed and returns the store
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the storage root directory
func (s *LocalStore) Root() string {
	return s.root
}

// MediaFilename generates a destination name for a captured image. The
// timestamp keeps names sortable; the uuid suffix makes two captures in the
// same millisecond collision-free.
func MediaFilename() string {
	return fmt.Sprintf("image_%d_%s.jpg", time.Now().UnixMilli(), uuid.New().String())
}

// Copy copies the media at sourceURI into the store under destName and
// returns the absolute destination path.
func (s *LocalStore) Copy(sourceURI, destName string) (string, error) {
	src, err := os.Open(localPath(sourceURI))
	if err != nil {
		return "", fmt.Errorf("failed to open source media: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(s.root, destName)
	// O_EXCL guards against overwriting an existing capture.
	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to copy media: %w", err)
	}

	return destPath, nil
}

// WriteText writes a UTF-8 text file under the store and returns its path
func (s *LocalStore) WriteText(name, content string) (string, error) {
	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// localPath strips a file:// scheme from picker URIs
func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
