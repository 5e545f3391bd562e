package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-manager/internal/domain"
	"catalog-manager/internal/query"
	"catalog-manager/internal/repository"
	"catalog-manager/internal/spreadsheet"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrProductAlreadyExists = errors.New("product already exists")
)

// ProductInput carries the editable fields of a product
type ProductInput struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	Category    string
}

type ReviewInput struct {
	User    string
	Rating  int
	Comment string
}

// ImportResult summarises a spreadsheet import
type ImportResult struct {
	Added   int
	Updated int
	Skipped []spreadsheet.RowError
}

// CatalogService defines the catalog operations offered to the console
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, input ProductInput) (domain.Product, error)
	RemoveProduct(ctx context.Context, id string) error
	GetProduct(id string) (domain.Product, bool)
	ProductExists(id string) bool
	ListProducts(sortBy string, page, pageSize int) (query.Page[domain.Product], error)
	SearchProducts(keyword string) []domain.Product
	AddReview(ctx context.Context, productID string, input ReviewInput) (domain.Review, error)
	GetReviews(productID string) ([]domain.Review, query.RatingSummary, error)
	ImportProducts(ctx context.Context, path string) (ImportResult, error)
	ExportProducts(path string) (int, error)
}

type catalogService struct {
	repo     repository.ProductRepository
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(repo repository.ProductRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:     repo,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateProduct validates and adds a new product. A blank id is replaced by
// a generated one; an id already in the catalog is rejected.
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	product := s.toProduct(input)
	if product.ID == "" {
		product.ID = s.newID()
	}

	if err := s.validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	if s.repo.Exists(product.ID) {
		return domain.Product{}, ErrProductAlreadyExists
	}

	if err := s.repo.AddProduct(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct replaces the editable fields of an existing product; its
// reviews are kept
func (s *catalogService) UpdateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	product := s.toProduct(input)

	existing, ok := s.repo.GetProductByID(product.ID)
	if !ok {
		return domain.Product{}, repository.ErrProductNotFound
	}
	product.Reviews = existing.Reviews

	if err := s.validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	if !updated {
		return domain.Product{}, repository.ErrProductNotFound
	}

	return product, nil
}

func (s *catalogService) RemoveProduct(ctx context.Context, id string) error {
	removed, err := s.repo.RemoveProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}
	if !removed {
		return repository.ErrProductNotFound
	}
	return nil
}

func (s *catalogService) GetProduct(id string) (domain.Product, bool) {
	return s.repo.GetProductByID(strings.TrimSpace(id))
}

func (s *catalogService) ProductExists(id string) bool {
	return s.repo.Exists(strings.TrimSpace(id))
}

// ListProducts sorts the catalog by sortBy and returns the requested page.
// query.ErrInvalidPage comes back with TotalPages filled in.
func (s *catalogService) ListProducts(sortBy string, page, pageSize int) (query.Page[domain.Product], error) {
	sorted := query.Sort(s.repo.GetAll(), query.ParseSortField(sortBy))
	return query.Paginate(sorted, page, pageSize)
}

func (s *catalogService) SearchProducts(keyword string) []domain.Product {
	return query.Search(s.repo.GetAll(), strings.TrimSpace(keyword))
}

// AddReview stamps the review with the current time and appends it
func (s *catalogService) AddReview(ctx context.Context, productID string, input ReviewInput) (domain.Review, error) {
	review := domain.NewReview(
		strings.TrimSpace(input.User),
		input.Rating,
		strings.TrimSpace(input.Comment),
		s.now(),
	)

	if err := s.validate.Struct(review); err != nil {
		return domain.Review{}, formatValidationErrors(err)
	}

	if err := s.repo.AddReview(ctx, strings.TrimSpace(productID), review); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return domain.Review{}, err
		}
		return domain.Review{}, fmt.Errorf("failed to add review: %w", err)
	}

	return review, nil
}

// GetReviews returns a product's reviews in the order they were written
func (s *catalogService) GetReviews(productID string) ([]domain.Review, query.RatingSummary, error) {
	product, ok := s.repo.GetProductByID(strings.TrimSpace(productID))
	if !ok {
		return nil, query.RatingSummary{}, repository.ErrProductNotFound
	}
	return product.Reviews, query.Summarize(product.Reviews), nil
}

// ImportProducts upserts every valid product row of the workbook. Existing
// products keep their reviews. Invalid rows are skipped and reported; a
// persistence failure stops the import.
func (s *catalogService) ImportProducts(ctx context.Context, path string) (ImportResult, error) {
	rows, skipped, err := spreadsheet.Import(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read workbook: %w", err)
	}

	result := ImportResult{Skipped: skipped}
	for _, row := range rows {
		product := s.toProduct(ProductInput{
			ID:          row.Product.ID,
			Name:        row.Product.Name,
			Price:       row.Product.Price,
			Description: row.Product.Description,
			Category:    row.Product.Category,
		})
		if product.ID == "" {
			product.ID = s.newID()
		}

		if err := s.validateProduct(product); err != nil {
			result.Skipped = append(result.Skipped, spreadsheet.RowError{Row: row.Number, Reason: err.Error()})
			continue
		}

		if existing, ok := s.repo.GetProductByID(product.ID); ok {
			product.Reviews = existing.Reviews
			if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
				return result, fmt.Errorf("failed to import product %q: %w", product.ID, err)
			}
			result.Updated++
			continue
		}

		if err := s.repo.AddProduct(ctx, product); err != nil {
			return result, fmt.Errorf("failed to import product %q: %w", product.ID, err)
		}
		result.Added++
	}

	s.logger.Info("Products imported",
		zap.String("path", path),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)),
	)

	return result, nil
}

// ExportProducts writes the catalog, in catalog order, to a workbook
func (s *catalogService) ExportProducts(path string) (int, error) {
	products := s.repo.GetAll()
	if err := spreadsheet.Export(products, path); err != nil {
		return 0, fmt.Errorf("failed to export products: %w", err)
	}

	s.logger.Info("Products exported", zap.String("path", path), zap.Int("products", len(products)))
	return len(products), nil
}

func (s *catalogService) toProduct(input ProductInput) domain.Product {
	return domain.Product{
		ID:          strings.TrimSpace(input.ID),
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
	}
}

func (s *catalogService) validateProduct(product domain.Product) error {
	err := s.validate.Struct(product)
	if err == nil {
		if product.Price.IsNegative() {
			return ValidationErrors{negativePriceError()}
		}
		return nil
	}

	formatted := formatValidationErrors(err)
	verrs, ok := formatted.(ValidationErrors)
	if !ok || !product.Price.IsNegative() {
		return formatted
	}
	for _, v := range verrs {
		if v.Field == "Price" {
			return verrs
		}
	}
	return append(verrs, negativePriceError())
}
