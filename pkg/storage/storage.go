package storage

import (
	"context"
	"mime"
	"path"
	"strings"

	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

// Store persists artifacts under forward-slash logical keys. Writing a key
// twice keeps the second value. Exists only reports completed writes.
type Store interface {
	SaveJSON(ctx context.Context, key string, v any) error
	SaveBytes(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// New builds the Store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Store, error) {
	log = logger.OrGlobal(log)

	switch strings.ToLower(cfg.Backend) {
	case config.BackendLocal:
		return NewLocalStore(cfg.LocalPath, log)
	case config.BackendS3, config.BackendGCS:
		return NewObjectStore(ctx, cfg, log)
	default:
		return nil, errs.NewConfigError("unsupported storage backend: " + cfg.Backend)
	}
}

// contentTypeFor guesses a content type from the key's extension
func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
