// Package storage persists the whole catalog to a single backing file.
package storage

import (
	"context"
	"errors"
	"fmt"

	"catalog-manager/internal/config"
	"catalog-manager/internal/domain"

	"go.uber.org/zap"
)

// ErrCorruptStorage is returned by Load when the backing file exists but
// cannot be decoded. Callers must not fall back to an empty catalog.
var ErrCorruptStorage = errors.New("corrupt catalog storage")

// Backend loads and saves the full catalog.
//
// Load returns the products in their persisted order. A missing backing file
// yields an empty result and no error. Save replaces the persisted catalog
// with products, in order.
type Backend interface {
	Load(ctx context.Context) ([]domain.Product, error)
	Save(ctx context.Context, products []domain.Product) error
	Close() error
}

// Open creates the backend selected by cfg
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Format {
	case config.FormatJSON, "":
		return NewFileBackend(cfg.Path, JSONCodec{}, logger), nil
	case config.FormatYAML:
		return NewFileBackend(cfg.Path, YAMLCodec{}, logger), nil
	case config.FormatSQLite:
		return NewSQLiteBackend(ctx, cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported storage format %q", cfg.Format)
	}
}

func corrupt(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptStorage, path, err)
}
