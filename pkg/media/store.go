// Package media stores uploaded images and names their object keys.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the object store behind image uploads.
type Store interface {
	// Upload writes data under key and returns the public URL of the object.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Remove deletes key. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error
	// KeyFromURL recovers the key of an object previously returned by Upload.
	KeyFromURL(publicURL string) (string, bool)
}

// ErrInvalidKey is returned for keys that are empty, absolute or escape the store root.
var ErrInvalidKey = errors.New("media: invalid object key")

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// publicURLs joins and splits public URLs under one base.
type publicURLs struct {
	base string
}

func (p publicURLs) url(key string) string {
	return strings.TrimRight(p.base, "/") + "/" + key
}

func (p publicURLs) key(publicURL string) (string, bool) {
	prefix := strings.TrimRight(p.base, "/") + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(publicURL, prefix)
	if checkKey(key) != nil {
		return "", false
	}
	return key, true
}

// FileStore keeps objects on the local filesystem. The API serves them under its base URL.
type FileStore struct {
	baseDir string
	urls    publicURLs
	mu      sync.RWMutex
}

// NewFileStore creates a store rooted at baseDir whose objects are served at baseURL.
func NewFileStore(baseDir, baseURL string) (*FileStore, error) {
	//nolint:gosec // G301: media directory is served publicly
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure media dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media"
	}
	return &FileStore{baseDir: baseDir, urls: publicURLs{base: baseURL}}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.baseDir }

func (s *FileStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	//nolint:gosec // G301: media directory is served publicly
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	//nolint:gosec // G306: media files are served publicly
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit object: %w", err)
	}
	return s.urls.url(key), nil
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *FileStore) KeyFromURL(publicURL string) (string, bool) {
	return s.urls.key(publicURL)
}
