package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"catalog-manager/internal/database"
	"catalog-manager/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SQLiteBackend keeps the catalog in a local SQLite database file. Save
// replaces every row inside one transaction.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteBackend opens (or creates) the database at path and applies
// pending migrations. An existing file that is not a usable catalog
// database is reported as ErrCorruptStorage.
func NewSQLiteBackend(ctx context.Context, path string, logger *zap.Logger) (*SQLiteBackend, error) {
	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// go-sqlite3 leaves foreign keys off unless asked; reviews cascade with
	// their product
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err == nil {
		err = database.RunMigrations(db, logger)
	}
	if err != nil {
		_ = db.Close()
		if existed {
			return nil, corrupt(path, err)
		}
		return nil, fmt.Errorf("failed to initialize sqlite database %s: %w", path, err)
	}

	version, err := database.SchemaVersion(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("SQLite catalog ready", zap.String("path", path), zap.Int64("schema_version", version))

	return &SQLiteBackend{db: db, path: path, logger: logger}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]domain.Product, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, name, price, description, category
		FROM products
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	index := map[string]int{}
	for rows.Next() {
		var (
			p     domain.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Description, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, corrupt(b.path, fmt.Errorf("product %q: invalid price %q: %w", p.ID, price, err))
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if err := b.loadReviews(ctx, products, index); err != nil {
		return nil, err
	}

	b.logger.Info("Catalog loaded", zap.String("path", b.path), zap.Int("products", len(products)))
	return products, nil
}

func (b *SQLiteBackend) loadReviews(ctx context.Context, products []domain.Product, index map[string]int) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT product_id, user_name, rating, comment, created_at
		FROM reviews
		ORDER BY product_id, position ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			r         domain.Review
			createdAt string
		)
		if err := rows.Scan(&productID, &r.User, &r.Rating, &r.Comment, &createdAt); err != nil {
			return fmt.Errorf("failed to scan review: %w", err)
		}
		r.Date, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return corrupt(b.path, fmt.Errorf("review for %q: invalid date %q: %w", productID, createdAt, err))
		}

		i, ok := index[productID]
		if !ok {
			return corrupt(b.path, fmt.Errorf("review references unknown product %q", productID))
		}
		products[i].Reviews = append(products[i].Reviews, r)
	}
	return rows.Err()
}

func (b *SQLiteBackend) Save(ctx context.Context, products []domain.Product) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews`); err != nil {
		return fmt.Errorf("failed to clear reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}

	insertProduct, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, position, name, price, description, category)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer insertProduct.Close()

	insertReview, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (product_id, position, user_name, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare review insert: %w", err)
	}
	defer insertReview.Close()

	for pos, p := range products {
		_, err := insertProduct.ExecContext(ctx, p.ID, pos, p.Name, p.Price.String(), p.Description, p.Category)
		if err != nil {
			return fmt.Errorf("failed to save product %q: %w", p.ID, err)
		}
		for rpos, r := range p.Reviews {
			_, err := insertReview.ExecContext(ctx, p.ID, rpos, r.User, r.Rating, r.Comment, r.Date.Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("failed to save review for %q: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}

	b.logger.Debug("Catalog saved", zap.String("path", b.path), zap.Int("products", len(products)))
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
