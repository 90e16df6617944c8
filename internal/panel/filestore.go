package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes panel documents into a local directory so a terminal host
// can hand them to the system browser.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("panel: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("panel: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Write stores p as <id>.html and returns the absolute file path.
func (s *FileStore) Write(ctx context.Context, p *Panel) (string, error) {
	if s == nil {
		return "", errors.New("panel: no store configured")
	}
	if p == nil {
		return "", errors.New("panel: panel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := s.path(p.ID)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, []byte(p.HTML), 0o600); err != nil {
		return "", fmt.Errorf("panel: write file: %w", err)
	}
	return fullPath, nil
}

func (s *FileStore) path(id string) (string, error) {
	key, err := sanitizeKey(id + ".html")
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	if abs, err := filepath.Abs(full); err == nil {
		full = abs
	}
	return full, nil
}

// sanitizeKey normalizes a key and keeps it inside the panel directory as a
// single file name.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == ".html" {
		return "", errors.New("panel: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/") {
		return "", errors.New("panel: invalid key")
	}
	return cleaned, nil
}
