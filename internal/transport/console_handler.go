package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalog-manager/internal/domain"
	"catalog-manager/internal/query"
	"catalog-manager/internal/repository"
	"catalog-manager/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCancelled is returned by a prompt when the user types "back"
var ErrCancelled = errors.New("cancelled by user")

const (
	backKeyword     = "back"
	timestampLayout = "2006-01-02 15:04"
	defaultWorkbook = "products.xlsx"
	menuSeparator   = "============================="
)

// ConsoleHandler runs the interactive catalog menu over a line-based reader
// and writer
type ConsoleHandler struct {
	catalog  service.CatalogService
	in       *bufio.Scanner
	out      io.Writer
	pageSize int
	logger   *zap.Logger
}

// NewConsoleHandler creates a new ConsoleHandler
func NewConsoleHandler(catalog service.CatalogService, in io.Reader, out io.Writer, pageSize int, logger *zap.Logger) *ConsoleHandler {
	return &ConsoleHandler{
		catalog:  catalog,
		in:       bufio.NewScanner(in),
		out:      out,
		pageSize: pageSize,
		logger:   logger,
	}
}

type menuItem struct {
	label  string
	action func(ctx context.Context) error
}

func (h *ConsoleHandler) menu() []menuItem {
	return []menuItem{
		{"View all products", h.ViewProducts},
		{"Add a product", h.AddProduct},
		{"Update a product", h.UpdateProduct},
		{"Remove a product", h.RemoveProduct},
		{"Search products", h.SearchProducts},
		{"Add a review", h.AddReview},
		{"View reviews", h.ViewReviews},
		{"Import products from a spreadsheet", h.ImportProducts},
		{"Export products to a spreadsheet", h.ExportProducts},
	}
}

// Run shows the main menu until the user exits, the input ends or ctx is
// cancelled
func (h *ConsoleHandler) Run(ctx context.Context) error {
	items := h.menu()
	exitChoice := len(items) + 1

	h.println("Welcome to the Catalog Manager!")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		h.println("")
		h.println("========= Main Menu =========")
		for i, item := range items {
			h.printf("%d. %s\n", i+1, item.label)
		}
		h.printf("%d. Exit\n", exitChoice)
		h.println(menuSeparator)

		input, err := h.readLine("Please choose an option: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > exitChoice {
			h.println("Invalid choice. Please try again.")
			continue
		}
		if choice == exitChoice {
			h.println("Thank you for using the Catalog Manager! Goodbye.")
			return nil
		}

		if err := h.handle(ctx, items[choice-1].action); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handle runs one menu action and reports its outcome. Only input failures
// and context cancellation are returned.
func (h *ConsoleHandler) handle(ctx context.Context, action func(ctx context.Context) error) (result error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic recovered", zap.Any("panic", r), zap.Stack("stack"))
			h.println("An unexpected error occurred. Please try again.")
			result = nil
		}
	}()

	err := action(ctx)

	var verrs service.ValidationErrors
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrCancelled):
		h.println("Returning to main menu...")
		h.logger.Info("Action cancelled by user")
	case errors.As(err, &verrs):
		for _, v := range verrs {
			h.printf("Invalid %s: %s\n", v.Field, v.Message)
		}
	default:
		h.printf("An error occurred: %v\n", err)
		h.logger.Error("Menu action failed", zap.Error(err))
	}
	return nil
}

// ViewProducts lists the catalog page by page with next, previous and jump
// navigation
func (h *ConsoleHandler) ViewProducts(ctx context.Context) error {
	sortBy, err := h.readLine("Sort by (name/price/category) [name]: ")
	if err != nil {
		return err
	}
	field := query.ParseSortField(sortBy)

	page := 1
	for {
		result, err := h.catalog.ListProducts(string(field), page, h.pageSize)
		if err != nil {
			if errors.Is(err, query.ErrInvalidPage) {
				h.println("Invalid page number")
				return nil
			}
			return err
		}

		if len(result.Items) == 0 {
			h.println("No products available in the catalog.")
			return nil
		}

		h.printf("Product Catalog (Page %d/%d, sorted by %s):\n", result.Number, result.TotalPages, field)
		for _, p := range result.Items {
			h.printProduct(p)
		}

		next, done, err := h.navigate(result)
		if err != nil || done {
			return err
		}
		page = next
	}
}

// navigate asks for the next page to show; done is true when the user leaves
func (h *ConsoleHandler) navigate(current query.Page[domain.Product]) (next int, done bool, err error) {
	for {
		input, err := h.readLine("Navigation: (N)ext, (P)revious, a page number, or (B)ack: ")
		if err != nil {
			return 0, true, err
		}

		switch strings.ToLower(input) {
		case "", "b", backKeyword:
			return 0, true, nil
		case "n":
			if current.HasNext() {
				return current.Number + 1, false, nil
			}
			h.println("Already on the last page.")
			continue
		case "p":
			if current.HasPrevious() {
				return current.Number - 1, false, nil
			}
			h.println("Already on the first page.")
			continue
		}

		n, convErr := strconv.Atoi(input)
		if convErr != nil {
			h.println("Invalid input.")
			continue
		}
		if n < 1 || n > current.TotalPages {
			h.println("Invalid page number")
			continue
		}
		return n, false, nil
	}
}

func (h *ConsoleHandler) AddProduct(ctx context.Context) error {
	h.println("")
	h.println("=== Add a New Product ===")

	id, err := h.readNewProductID()
	if err != nil {
		return err
	}

	input, err := h.readProductFields(id, domain.Product{})
	if err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(ctx, input)
	if err != nil {
		return err
	}

	h.printf("Product %s added successfully!\n", product.ID)
	return nil
}

func (h *ConsoleHandler) UpdateProduct(ctx context.Context) error {
	h.println("")
	h.println("=== Update an Existing Product ===")

	current, err := h.readExistingProduct("Enter Product ID to update: ")
	if err != nil {
		return err
	}
	h.printf("Current Product: %s - $%s (%s) [Category: %s]\n",
		current.Name, current.Price.StringFixed(2), current.Description, current.Category)
	h.println("Leave a field blank to keep its current value.")

	input, err := h.readProductFields(current.ID, current)
	if err != nil {
		return err
	}

	if _, err := h.catalog.UpdateProduct(ctx, input); err != nil {
		return err
	}

	h.printf("Product %s updated successfully.\n", current.ID)
	return nil
}

func (h *ConsoleHandler) RemoveProduct(ctx context.Context) error {
	h.println("")
	h.println("=== Remove a Product ===")

	id, err := h.readRequired("Enter Product ID to remove: ", "")
	if err != nil {
		return err
	}

	if err := h.catalog.RemoveProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.notifyNotFound(id)
			return nil
		}
		return err
	}

	h.printf("Product %s removed successfully.\n", id)
	return nil
}

func (h *ConsoleHandler) SearchProducts(ctx context.Context) error {
	h.println("")
	h.println("=== Search Products ===")

	keyword, err := h.readLine("Enter a keyword (Product ID or Name): ")
	if err != nil {
		return err
	}
	if strings.EqualFold(keyword, backKeyword) {
		return ErrCancelled
	}

	results := h.catalog.SearchProducts(keyword)
	if len(results) == 0 {
		h.println("No products found matching your search criteria.")
		return nil
	}

	h.printf("Search Results (%d):\n", len(results))
	for _, p := range results {
		h.printProduct(p)
	}
	return nil
}

func (h *ConsoleHandler) AddReview(ctx context.Context) error {
	product, err := h.readExistingProduct("Enter Product ID to review: ")
	if err != nil {
		return err
	}

	user, err := h.readRequired("Enter your name: ", "")
	if err != nil {
		return err
	}
	rating, err := h.readRating()
	if err != nil {
		return err
	}
	comment, err := h.readRequired("Enter your review comment: ", "")
	if err != nil {
		return err
	}

	_, err = h.catalog.AddReview(ctx, product.ID, service.ReviewInput{User: user, Rating: rating, Comment: comment})
	if err != nil {
		return err
	}

	h.println("Review added successfully!")
	return nil
}

func (h *ConsoleHandler) ViewReviews(ctx context.Context) error {
	product, err := h.readExistingProduct("Enter Product ID to view reviews: ")
	if err != nil {
		return err
	}

	reviews, summary, err := h.catalog.GetReviews(product.ID)
	if err != nil {
		return err
	}

	h.printf("Reviews for %s:\n", product.Name)
	if len(reviews) == 0 {
		h.println("No reviews for this product yet.")
		return nil
	}

	h.printf("Average rating: %.2f/5 from %d review(s)\n", summary.Average, summary.Count)
	for stars := domain.MaxRating; stars >= domain.MinRating; stars-- {
		h.printf("  %d stars: %d\n", stars, summary.Distribution[stars-domain.MinRating])
	}
	for _, r := range reviews {
		h.printf("- %s rated %d/5: %s (on %s)\n", r.User, r.Rating, r.Comment, r.Date.Local().Format(timestampLayout))
	}
	return nil
}

func (h *ConsoleHandler) ImportProducts(ctx context.Context) error {
	path, err := h.readRequired(fmt.Sprintf("Workbook to import [%s]: ", defaultWorkbook), defaultWorkbook)
	if err != nil {
		return err
	}

	result, err := h.catalog.ImportProducts(ctx, path)
	if err != nil {
		return err
	}

	h.printf("Imported %d new and %d updated product(s).\n", result.Added, result.Updated)
	for _, skipped := range result.Skipped {
		h.printf("Skipped %v\n", skipped)
	}
	return nil
}

func (h *ConsoleHandler) ExportProducts(ctx context.Context) error {
	path, err := h.readRequired(fmt.Sprintf("Workbook to write [%s]: ", defaultWorkbook), defaultWorkbook)
	if err != nil {
		return err
	}

	n, err := h.catalog.ExportProducts(path)
	if err != nil {
		return err
	}

	h.printf("Exported %d product(s) to %s.\n", n, path)
	return nil
}

// readNewProductID asks for an id that is not in the catalog yet; a blank
// answer lets the service generate one
func (h *ConsoleHandler) readNewProductID() (string, error) {
	for {
		id, err := h.readLine("Enter Product ID (blank to generate, 'back' to return): ")
		if err != nil {
			return "", err
		}
		if strings.EqualFold(id, backKeyword) {
			return "", ErrCancelled
		}
		if id != "" && h.catalog.ProductExists(id) {
			h.printf("Product with ID %s already exists.\n", id)
			h.logger.Warn("Duplicate product id entered", zap.String("product_id", id))
			continue
		}
		return id, nil
	}
}

// readExistingProduct asks for an id until it names a product in the catalog
func (h *ConsoleHandler) readExistingProduct(prompt string) (domain.Product, error) {
	for {
		id, err := h.readRequired(prompt, "")
		if err != nil {
			return domain.Product{}, err
		}
		if product, ok := h.catalog.GetProduct(id); ok {
			return product, nil
		}
		h.notifyNotFound(id)
	}
}

// readProductFields reads the editable fields, falling back to current's
// values on blank input
func (h *ConsoleHandler) readProductFields(id string, current domain.Product) (service.ProductInput, error) {
	input := service.ProductInput{ID: id}
	var err error

	if input.Name, err = h.readRequired("Enter Product Name: ", current.Name); err != nil {
		return input, err
	}
	if input.Price, err = h.readPrice(current); err != nil {
		return input, err
	}
	if input.Description, err = h.readRequired("Enter Product Description: ", current.Description); err != nil {
		return input, err
	}
	if input.Category, err = h.readRequired("Enter Product Category: ", current.Category); err != nil {
		return input, err
	}
	return input, nil
}

func (h *ConsoleHandler) readPrice(current domain.Product) (decimal.Decimal, error) {
	fallback := ""
	if current.ID != "" {
		fallback = current.Price.String()
	}

	for {
		input, err := h.readRequired("Enter Product Price: ", fallback)
		if err != nil {
			return decimal.Decimal{}, err
		}
		price, err := decimal.NewFromString(input)
		if err != nil || price.IsNegative() {
			h.println("Invalid price. Please enter a non-negative decimal number.")
			continue
		}
		return price, nil
	}
}

func (h *ConsoleHandler) readRating() (int, error) {
	for {
		input, err := h.readRequired(fmt.Sprintf("Enter your rating (%d-%d): ", domain.MinRating, domain.MaxRating), "")
		if err != nil {
			return 0, err
		}
		rating, err := strconv.Atoi(input)
		if err != nil || !domain.ValidRating(rating) {
			h.printf("Invalid rating. Please enter a number between %d and %d.\n", domain.MinRating, domain.MaxRating)
			continue
		}
		return rating, nil
	}
}

// readRequired re-prompts until the answer is non-empty. A blank answer
// takes fallback when one is given; "back" returns ErrCancelled.
func (h *ConsoleHandler) readRequired(prompt, fallback string) (string, error) {
	for {
		input, err := h.readLine(prompt)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(input, backKeyword) {
			return "", ErrCancelled
		}
		if input == "" {
			input = fallback
		}
		if input != "" {
			return input, nil
		}
		label := strings.TrimSuffix(strings.TrimSpace(prompt), ":")
		h.printf("%s cannot be empty.\n", strings.TrimPrefix(label, "Enter "))
	}
}

// readLine writes prompt and returns the next trimmed line; io.EOF when the
// input is exhausted
func (h *ConsoleHandler) readLine(prompt string) (string, error) {
	fmt.Fprint(h.out, prompt)
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(h.in.Text()), nil
}

func (h *ConsoleHandler) printProduct(p domain.Product) {
	h.printf("%s: %s - $%s (%s) [Category: %s]\n", p.ID, p.Name, p.Price.StringFixed(2), p.Description, p.Category)
}

func (h *ConsoleHandler) notifyNotFound(id string) {
	h.printf("Product with ID %s not found.\n", id)
}

func (h *ConsoleHandler) println(s string) {
	fmt.Fprintln(h.out, s)
}

func (h *ConsoleHandler) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.out, format, args...)
}
