package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"catalog-manager/internal/domain"
	"catalog-manager/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStoreClosed     = errors.New("catalog store is closed")
)

// ProductRepository is the catalog store: an in-memory map of products
// flushed in full to its storage backend after every mutation.
//
// Mutations change memory first and then save. When a save fails the error
// is returned and memory and disk disagree until the next successful save.
type ProductRepository interface {
	// AddProduct inserts or overwrites the product with the same id
	AddProduct(ctx context.Context, product domain.Product) error
	// UpdateProduct overwrites an existing product; it reports false and
	// does nothing when the id is unknown
	UpdateProduct(ctx context.Context, product domain.Product) (bool, error)
	// RemoveProduct deletes a product, reporting whether it existed
	RemoveProduct(ctx context.Context, id string) (bool, error)
	// AddReview appends a review to an existing product
	AddReview(ctx context.Context, id string, review domain.Review) error
	GetProductByID(id string) (domain.Product, bool)
	Exists(id string) bool
	// GetAll returns a deep copy of the catalog in insertion order
	GetAll() []domain.Product
	Count() int
	// Close waits for an in-flight mutation to finish and releases the
	// backend; later mutations fail with ErrStoreClosed
	Close() error
}

type productRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
	backend  storage.Backend
	closed   bool
	logger   *zap.Logger
}

// NewProductRepository creates the store and loads the persisted catalog.
// A corrupt backing file is returned as an error wrapping
// storage.ErrCorruptStorage; the store is never started empty in that case.
func NewProductRepository(ctx context.Context, backend storage.Backend, logger *zap.Logger) (ProductRepository, error) {
	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	r := &productRepository{
		products: make(map[string]domain.Product, len(loaded)),
		order:    make([]string, 0, len(loaded)),
		backend:  backend,
		logger:   logger,
	}
	for _, p := range loaded {
		r.put(p)
	}

	return r, nil
}

// AddProduct upserts by id. Duplicate rejection is the caller's policy.
func (r *productRepository) AddProduct(ctx context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	r.put(product.Clone())
	r.logger.Info("Product added", zap.String("product_id", product.ID))

	return r.save(ctx)
}

func (r *productRepository) UpdateProduct(ctx context.Context, product domain.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrStoreClosed
	}

	if _, ok := r.products[product.ID]; !ok {
		return false, nil
	}

	r.products[product.ID] = product.Clone()
	r.logger.Info("Product updated", zap.String("product_id", product.ID))

	return true, r.save(ctx)
}

func (r *productRepository) RemoveProduct(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrStoreClosed
	}

	if _, ok := r.products[id]; !ok {
		return false, nil
	}

	delete(r.products, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("Product removed", zap.String("product_id", id))

	return true, r.save(ctx)
}

func (r *productRepository) AddReview(ctx context.Context, id string, review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	product, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}

	// clone so no snapshot shares the grown backing array
	product = product.Clone()
	product.AddReview(review)
	r.products[id] = product
	r.logger.Info("Review added",
		zap.String("product_id", id),
		zap.Int("rating", review.Rating),
		zap.Int("reviews", len(product.Reviews)),
	)

	return r.save(ctx)
}

func (r *productRepository) GetProductByID(id string) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, false
	}
	return p.Clone(), true
}

func (r *productRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok
}

func (r *productRepository) GetAll() []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot()
}

func (r *productRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.products)
}

// put inserts or replaces; a replaced product keeps its position
func (r *productRepository) put(p domain.Product) {
	if _, exists := r.products[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.products[p.ID] = p
}

func (r *productRepository) snapshot() []domain.Product {
	out := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.products[id].Clone())
	}
	return out
}

func (r *productRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.backend.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

// save must be called with the write lock held
func (r *productRepository) save(ctx context.Context) error {
	if err := r.backend.Save(ctx, r.snapshot()); err != nil {
		r.logger.Error("Failed to persist catalog", zap.Error(err))
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}
