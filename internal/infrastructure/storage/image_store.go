package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"go.uber.org/zap"
)

// LocalImageStore implements port.ImageStore on the local filesystem
type LocalImageStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalImageStore creates the store rooted at baseDir
func NewLocalImageStore(baseDir string, logger *zap.Logger) *LocalImageStore {
	return &LocalImageStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under name, creating the base directory on first use
func (s *LocalImageStore) Save(ctx context.Context, name string, content []byte) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create image directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write image",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("Image saved",
		zap.String("name", name),
		zap.Int("size", len(content)))

	return nil
}

// Read returns the image stored under name
func (s *LocalImageStore) Read(ctx context.Context, name string) ([]byte, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("image %s: %w", name, port.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("Failed to read image",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return content, nil
}

// Delete removes the image; a missing file is not an error
func (s *LocalImageStore) Delete(ctx context.Context, name string) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete image",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.logger.Debug("Image deleted", zap.String("name", name))
	return nil
}

// resolve maps name to a path directly inside baseDir
func (s *LocalImageStore) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid image name: %q", name)
	}

	fullPath := filepath.Join(s.baseDir, name)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validatePath checks that the path stays within baseDir
func (s *LocalImageStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.ImageStore = (*LocalImageStore)(nil)
