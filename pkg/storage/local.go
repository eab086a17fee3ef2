package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

// LocalStore keeps artifacts as files under a root directory
type LocalStore struct {
	root   string
	logger logger.Logger
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string, log logger.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, errs.NewConfigError("local storage path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errs.NewStorageError("failed to create storage directory", err)
	}

	return &LocalStore{
		root:   root,
		logger: logger.OrGlobal(log).WithField("component", "storage.local"),
	}, nil
}

// Root returns the storage root directory
func (s *LocalStore) Root() string {
	return s.root
}

// resolve maps a logical key to a path under root, rejecting keys that
// would escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(key, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", errs.NewStorageError(fmt.Sprintf("invalid key %q", key), nil)
	}
	return filepath.Join(s.root, rel), nil
}

// SaveJSON writes v as indented JSON
func (s *LocalStore) SaveJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.NewStorageError("failed to encode "+key, err)
	}
	return s.SaveBytes(ctx, key, data)
}

// SaveBytes writes data atomically through a temporary file
func (s *LocalStore) SaveBytes(ctx context.Context, key string, data []byte) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errs.NewStorageError("failed to create directory for "+key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return errs.NewStorageError("failed to create temporary file for "+key, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return errs.NewStorageError("failed to write "+key, err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return errs.NewStorageError("failed to close "+key, closeErr)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errs.NewStorageError("failed to rename temporary file for "+key, err)
	}

	s.logger.DebugWithFields("artifact written", map[string]interface{}{
		"key":   key,
		"bytes": len(data),
	})

	return nil
}

// Exists reports whether a regular file exists for key
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.NewStorageError("failed to stat "+key, err)
	}
	return info.Mode().IsRegular(), nil
}

// Read returns the stored bytes for key
func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, errs.NewStorageError("failed to read "+key, err)
	}
	return data, nil
}
