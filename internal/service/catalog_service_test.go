package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"catalog-manager/internal/domain"
	"catalog-manager/internal/query"
	"catalog-manager/internal/repository"
	"catalog-manager/internal/spreadsheet"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock repository for testing
type mockProductRepository struct {
	products map[string]domain.Product
	order    []string
	saveErr  error
}

func newMockProductRepository(products ...domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[string]domain.Product)}
	for _, p := range products {
		m.put(p)
	}
	return m
}

func (m *mockProductRepository) put(p domain.Product) {
	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p.Clone()
}

func (m *mockProductRepository) AddProduct(ctx context.Context, product domain.Product) error {
	m.put(product)
	return m.saveErr
}

func (m *mockProductRepository) UpdateProduct(ctx context.Context, product domain.Product) (bool, error) {
	if _, ok := m.products[product.ID]; !ok {
		return false, nil
	}
	m.put(product)
	return true, m.saveErr
}

func (m *mockProductRepository) RemoveProduct(ctx context.Context, id string) (bool, error) {
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, m.saveErr
}

func (m *mockProductRepository) AddReview(ctx context.Context, id string, review domain.Review) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p = p.Clone()
	p.AddReview(review)
	m.products[id] = p
	return m.saveErr
}

func (m *mockProductRepository) GetProductByID(id string) (domain.Product, bool) {
	p, ok := m.products[id]
	return p.Clone(), ok
}

func (m *mockProductRepository) Exists(id string) bool {
	_, ok := m.products[id]
	return ok
}

func (m *mockProductRepository) GetAll() []domain.Product {
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.products[id].Clone())
	}
	return out
}

func (m *mockProductRepository) Count() int {
	return len(m.products)
}

func (m *mockProductRepository) Close() error {
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo repository.ProductRepository) *catalogService {
	s := NewCatalogService(repo, zap.NewNop()).(*catalogService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func widgetInput() ProductInput {
	return ProductInput{
		ID:          "W-1",
		Name:        "Widget",
		Price:       decimal.RequireFromString("9.99"),
		Description: "A widget",
		Category:    "Tools",
	}
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	return fields
}

// Property: a created product is retrievable with the same trimmed fields
func TestProperty_CreatedProductIsRetrievable(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("create then get returns the product", prop.ForAll(
		func(id, name, category string, cents int64) bool {
			svc := newTestService(newMockProductRepository())
			input := ProductInput{
				ID:          "  " + id + " ",
				Name:        name,
				Price:       decimal.New(cents, -2),
				Description: "Description of " + name,
				Category:    category,
			}

			created, err := svc.CreateProduct(context.Background(), input)
			if err != nil {
				t.Logf("FAIL: create rejected valid input: %v", err)
				return false
			}

			got, ok := svc.GetProduct(id)
			if !ok {
				t.Logf("FAIL: product %q not found after create", id)
				return false
			}

			return got.ID == id && got.Name == created.Name && got.Price.Equal(input.Price) &&
				got.Category == category
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
		gen.Int64Range(0, 1000000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: ratings outside 1..5 are always rejected, ratings inside accepted
func TestProperty_ReviewRatingRange(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rating validation matches the star range", prop.ForAll(
		func(rating int) bool {
			repo := newMockProductRepository(domain.Product{ID: "p", Name: "n", Description: "d", Category: "c"})
			svc := newTestService(repo)

			_, err := svc.AddReview(context.Background(), "p", ReviewInput{User: "ann", Rating: rating, Comment: "ok"})
			if domain.ValidRating(rating) {
				return err == nil
			}
			var verrs ValidationErrors
			return errors.As(err, &verrs)
		},
		gen.IntRange(-3, 9),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCreateProductRejectsDuplicate(t *testing.T) {
	svc := newTestService(newMockProductRepository())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, widgetInput())
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, widgetInput())
	assert.ErrorIs(t, err, ErrProductAlreadyExists)
}

func TestCreateProductGeneratesBlankID(t *testing.T) {
	svc := newTestService(newMockProductRepository())
	svc.newID = func() string { return "generated-1" }

	input := widgetInput()
	input.ID = "   "
	created, err := svc.CreateProduct(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "generated-1", created.ID)
	assert.True(t, svc.ProductExists("generated-1"))
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(newMockProductRepository())

	input := widgetInput()
	input.Name = "  "
	input.Category = ""
	input.Price = decimal.RequireFromString("-0.01")

	_, err := svc.CreateProduct(context.Background(), input)
	assert.ElementsMatch(t, []string{"Name", "Category", "Price"}, validationFields(t, err))
	assert.False(t, svc.ProductExists("W-1"))
}

func TestCreateProductAllowsZeroPrice(t *testing.T) {
	svc := newTestService(newMockProductRepository())

	input := widgetInput()
	input.Price = decimal.Zero
	_, err := svc.CreateProduct(context.Background(), input)
	assert.NoError(t, err)
}

func TestCreateProductRejectsTinyNegativePrice(t *testing.T) {
	svc := newTestService(newMockProductRepository())

	input := widgetInput()
	input.Price = decimal.RequireFromString("-1e-400")
	_, err := svc.CreateProduct(context.Background(), input)
	assert.Equal(t, []string{"Price"}, validationFields(t, err))
	assert.False(t, svc.ProductExists("W-1"))

	input.Name = ""
	_, err = svc.CreateProduct(context.Background(), input)
	assert.ElementsMatch(t, []string{"Name", "Price"}, validationFields(t, err))
}

func TestCreateProductPersistenceFailure(t *testing.T) {
	repo := newMockProductRepository()
	repo.saveErr = errors.New("disk full")
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), widgetInput())
	assert.ErrorIs(t, err, repo.saveErr)
}

func TestUpdateProductKeepsReviews(t *testing.T) {
	existing := domain.Product{ID: "W-1", Name: "Old", Description: "d", Category: "c",
		Reviews: []domain.Review{domain.NewReview("ann", 5, "great", fixedNow)}}
	svc := newTestService(newMockProductRepository(existing))

	input := widgetInput()
	input.Name = "New"
	updated, err := svc.UpdateProduct(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	got, ok := svc.GetProduct("W-1")
	require.True(t, ok)
	assert.Equal(t, "New", got.Name)
	assert.Len(t, got.Reviews, 1)
}

func TestUpdateProductNotFound(t *testing.T) {
	svc := newTestService(newMockProductRepository())

	_, err := svc.UpdateProduct(context.Background(), widgetInput())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.False(t, svc.ProductExists("W-1"))
}

func TestRemoveProduct(t *testing.T) {
	svc := newTestService(newMockProductRepository(domain.Product{ID: "W-1"}))
	ctx := context.Background()

	require.NoError(t, svc.RemoveProduct(ctx, " W-1 "))
	assert.False(t, svc.ProductExists("W-1"))
	assert.ErrorIs(t, svc.RemoveProduct(ctx, "W-1"), repository.ErrProductNotFound)
}

func TestAddReviewStampsDate(t *testing.T) {
	svc := newTestService(newMockProductRepository(domain.Product{ID: "W-1"}))

	review, err := svc.AddReview(context.Background(), "W-1", ReviewInput{User: " ann ", Rating: 4, Comment: "nice"})
	require.NoError(t, err)
	assert.Equal(t, "ann", review.User)
	assert.Equal(t, fixedNow, review.Date)

	reviews, summary, err := svc.GetReviews("W-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Review{review}, reviews)
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 1e-9)
}

func TestAddReviewValidation(t *testing.T) {
	svc := newTestService(newMockProductRepository(domain.Product{ID: "W-1"}))

	_, err := svc.AddReview(context.Background(), "W-1", ReviewInput{User: "", Rating: 6, Comment: ""})
	assert.ElementsMatch(t, []string{"User", "Rating", "Comment"}, validationFields(t, err))
}

func TestAddReviewUnknownProduct(t *testing.T) {
	svc := newTestService(newMockProductRepository())

	_, err := svc.AddReview(context.Background(), "ghost", ReviewInput{User: "ann", Rating: 3, Comment: "hm"})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, _, err = svc.GetReviews("ghost")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	repo := newMockProductRepository()
	for _, p := range []struct{ id, price string }{
		{"a", "30"}, {"b", "10"}, {"c", "20"}, {"d", "5"}, {"e", "15"}, {"f", "25"}, {"g", "1"},
	} {
		repo.put(domain.Product{ID: p.id, Name: p.id, Price: decimal.RequireFromString(p.price)})
	}
	svc := newTestService(repo)

	page, err := svc.ListProducts("price", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "f", page.Items[0].ID)
	assert.Equal(t, "a", page.Items[1].ID)

	page, err = svc.ListProducts("unknown", 3, 5)
	assert.ErrorIs(t, err, query.ErrInvalidPage)
	assert.Equal(t, 2, page.TotalPages)
}

func TestSearchProducts(t *testing.T) {
	svc := newTestService(newMockProductRepository(
		domain.Product{ID: "1", Name: "Widget"},
		domain.Product{ID: "2", Name: "Gadget"},
	))

	found := svc.SearchProducts("  wid ")
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)
}

func TestImportProducts(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "import.xlsx")

	require.NoError(t, spreadsheet.Export([]domain.Product{
		{ID: "W-1", Name: "Widget v2", Price: decimal.RequireFromString("11"), Description: "d", Category: "Tools"},
		{ID: "N-1", Name: "New", Price: decimal.RequireFromString("3"), Description: "d", Category: "Toys"},
		{ID: "X-1", Name: "", Price: decimal.RequireFromString("1"), Description: "d", Category: "Toys"},
	}, workbook))

	existing := domain.Product{ID: "W-1", Name: "Widget", Description: "d", Category: "Tools",
		Reviews: []domain.Review{domain.NewReview("ann", 5, "great", fixedNow)}}
	repo := newMockProductRepository(existing)
	svc := newTestService(repo)

	result, err := svc.ImportProducts(context.Background(), workbook)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 4, result.Skipped[0].Row)

	w, ok := svc.GetProduct("W-1")
	require.True(t, ok)
	assert.Equal(t, "Widget v2", w.Name)
	assert.Len(t, w.Reviews, 1, "import keeps existing reviews")
	assert.True(t, svc.ProductExists("N-1"))
	assert.False(t, svc.ProductExists("X-1"))
}

func TestExportProducts(t *testing.T) {
	svc := newTestService(newMockProductRepository(
		domain.Product{ID: "1", Name: "Widget", Price: decimal.RequireFromString("1"), Description: "d", Category: "c"},
	))
	path := filepath.Join(t.TempDir(), "out.xlsx")

	n, err := svc.ExportProducts(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, _, err := spreadsheet.Import(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Widget", rows[0].Product.Name)
}
