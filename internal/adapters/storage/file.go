package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// FileStore keeps one pretty-printed JSON file per date key under dir
type FileStore struct {
	dir string
}

// NewFileStore creates new file store. The directory is created lazily on first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Name() string {
	return "file"
}

// Path returns the file a key is stored in
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the digest for key. A missing or unreadable file is a miss.
func (s *FileStore) Get(ctx context.Context, key string) (models.Digest, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read digest file, treating as miss",
				zap.String("path", s.Path(key)),
				zap.Error(err),
			)
		}
		return nil, ErrNotFound
	}

	var digest models.Digest
	if err := json.Unmarshal(data, &digest); err != nil {
		logger.Warn("corrupt digest file, treating as miss",
			zap.String("path", s.Path(key)),
			zap.Error(err),
		)
		return nil, ErrNotFound
	}

	return digest, nil
}

// Put writes the digest to a temp file in the same directory and renames it over the key's file
func (s *FileStore) Put(ctx context.Context, key string, digest models.Digest) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write digest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync digest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close digest file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("failed to move digest into place: %w", err)
	}

	logger.Debug("digest written",
		zap.String("path", s.Path(key)),
		zap.Int("entries", len(digest)),
	)

	return nil
}
