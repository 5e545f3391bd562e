package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"catalog-manager/internal/domain"

	"go.uber.org/zap"
)

// FileBackend keeps the catalog in one human-readable file. The file is read
// in full on Load and rewritten in full on every Save.
type FileBackend struct {
	path   string
	codec  Codec
	logger *zap.Logger
}

// NewFileBackend creates a file backend; nothing is read until Load
func NewFileBackend(path string, codec Codec, logger *zap.Logger) *FileBackend {
	return &FileBackend{
		path:   path,
		codec:  codec,
		logger: logger,
	}
}

// Path returns the backing file location
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Info("Catalog file not found, starting with an empty catalog", zap.String("path", b.path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", b.path, err)
	}

	products, err := b.codec.Unmarshal(data)
	if err != nil {
		b.logger.Error("Catalog file is corrupt", zap.String("path", b.path), zap.Error(err))
		return nil, corrupt(b.path, err)
	}

	b.logger.Info("Catalog loaded", zap.String("path", b.path), zap.Int("products", len(products)))
	return products, nil
}

func (b *FileBackend) Save(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.codec.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := writeFileAtomic(b.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file %s: %w", b.path, err)
	}

	b.logger.Debug("Catalog saved", zap.String("path", b.path), zap.Int("products", len(products)))
	return nil
}

func (b *FileBackend) Close() error { return nil }

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so a crash mid-write leaves the previous catalog intact.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
