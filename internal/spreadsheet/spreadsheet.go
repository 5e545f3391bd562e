// Package spreadsheet moves the catalog in and out of .xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-manager/internal/domain"
	"catalog-manager/internal/query"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ProductsSheet = "Products"
	ReviewsSheet  = "Reviews"
)

var (
	ErrMissingSheet  = errors.New("workbook has no Products sheet")
	ErrMissingHeader = errors.New("products sheet is missing a required column")
)

var productHeader = []string{"ID", "Name", "Price", "Description", "Category", "Reviews", "Average Rating"}

var reviewHeader = []string{"Product ID", "User", "Rating", "Comment", "Date"}

// Row is a product read from a numbered worksheet row
type Row struct {
	Number  int
	Product domain.Product
}

// RowError describes a products row that could not be read
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Export writes the products and their reviews to a new workbook at path
func Export(products []domain.Product, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProductsSheet); err != nil {
		return fmt.Errorf("failed to name products sheet: %w", err)
	}
	if _, err := f.NewSheet(ReviewsSheet); err != nil {
		return fmt.Errorf("failed to create reviews sheet: %w", err)
	}

	if err := writeRow(f, ProductsSheet, 1, toCells(productHeader)); err != nil {
		return err
	}
	if err := writeRow(f, ReviewsSheet, 1, toCells(reviewHeader)); err != nil {
		return err
	}

	reviewRow := 2
	for i, p := range products {
		row := []interface{}{
			p.ID,
			p.Name,
			p.Price.String(),
			p.Description,
			p.Category,
			len(p.Reviews),
			query.AverageRating(p.Reviews),
		}
		if err := writeRow(f, ProductsSheet, i+2, row); err != nil {
			return err
		}

		for _, r := range p.Reviews {
			row := []interface{}{p.ID, r.User, r.Rating, r.Comment, r.Date.Format(time.RFC3339)}
			if err := writeRow(f, ReviewsSheet, reviewRow, row); err != nil {
				return err
			}
			reviewRow++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// Import reads products from the Products sheet of the workbook at path.
// Columns are located by header name; reviews are not imported. Rows that
// cannot be parsed are reported and skipped, blank rows are ignored.
func Import(path string) ([]Row, []RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(ProductsSheet); err != nil || idx < 0 {
		return nil, nil, ErrMissingSheet
	}

	rows, err := f.GetRows(ProductsSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet is empty", ErrMissingHeader)
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var (
		products []Row
		skipped  []RowError
	)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		// worksheet rows are 1-based and include the header
		p, err := parseRow(row, columns)
		if err != nil {
			skipped = append(skipped, RowError{Row: i + 1, Reason: err.Error()})
			continue
		}
		products = append(products, Row{Number: i + 1, Product: p})
	}

	return products, skipped, nil
}

type columnMap struct {
	id, name, price, description, category int
}

// mapColumns finds the required columns in the header row, ignoring case
func mapColumns(header []string) (columnMap, error) {
	found := make(map[string]int, len(header))
	for i, col := range header {
		found[strings.ToLower(strings.TrimSpace(col))] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := found[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingHeader, name)
		}
		return i, nil
	}

	var (
		m   columnMap
		err error
	)
	if m.id, err = lookup("id"); err != nil {
		return m, err
	}
	if m.name, err = lookup("name"); err != nil {
		return m, err
	}
	if m.price, err = lookup("price"); err != nil {
		return m, err
	}
	if m.description, err = lookup("description"); err != nil {
		return m, err
	}
	if m.category, err = lookup("category"); err != nil {
		return m, err
	}
	return m, nil
}

func parseRow(row []string, columns columnMap) (domain.Product, error) {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	priceStr := cell(columns.price)
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q", priceStr)
	}

	return domain.Product{
		ID:          cell(columns.id),
		Name:        cell(columns.name),
		Price:       price,
		Description: cell(columns.description),
		Category:    cell(columns.category),
	}, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
