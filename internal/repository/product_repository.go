package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dimmer-site/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateSKU is returned when an insert collides on the sku unique index.
	ErrDuplicateSKU = errors.New("product with this sku already exists")
	// ErrDuplicateProduct is returned when an insert collides on the
	// (name, model, positions, color) identity index.
	ErrDuplicateProduct = errors.New("product with these attributes already exists")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter holds the optional exact-match catalog filters.
type ProductFilter struct {
	Model     *string
	Color     *string
	Positions *int
	InStock   *bool
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	CreateBulk(ctx context.Context, products []*domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// mapProductConflict translates a Postgres unique violation into the matching
// sentinel error, keyed by the constraint that fired. Uniqueness is enforced
// here at the storage layer, not by the SKU derivation.
func mapProductConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "products_identity_idx":
		return ErrDuplicateProduct
	default:
		return ErrDuplicateSKU
	}
}

const productColumns = `id, sku, name, model, positions, color, price, features, image_url, in_stock, created_at, updated_at`

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	features, err := json.Marshal(product.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Model,
		product.Positions,
		product.Color,
		product.Price,
		features,
		product.ImageURL,
		product.InStock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if conflict := mapProductConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// CreateBulk inserts all products inside a single transaction so a mid-batch
// failure leaves the catalog unchanged.
func (r *productRepository) CreateBulk(ctx context.Context, products []*domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, product := range products {
		features, err := json.Marshal(product.Features)
		if err != nil {
			return fmt.Errorf("failed to encode features: %w", err)
		}

		_, err = tx.ExecContext(
			ctx,
			query,
			product.ID,
			product.SKU,
			product.Name,
			product.Model,
			product.Positions,
			product.Color,
			product.Price,
			features,
			product.ImageURL,
			product.InStock,
			product.CreatedAt,
			product.UpdatedAt,
		)
		if err != nil {
			if conflict := mapProductConflict(err); conflict != nil {
				return conflict
			}
			return fmt.Errorf("failed to bulk insert product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk insert: %w", err)
	}

	return nil
}

// Update updates an existing product. The sku column is deliberately excluded:
// the SKU is frozen at creation and attribute edits never recompute it.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, model = $3, positions = $4, color = $5, price = $6,
		    features = $7, image_url = $8, in_stock = $9, updated_at = $10
		WHERE id = $1
	`

	features, err := json.Marshal(product.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Model,
		product.Positions,
		product.Color,
		product.Price,
		features,
		product.ImageURL,
		product.InStock,
		product.UpdatedAt,
	)

	if err != nil {
		if conflict := mapProductConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products matching the exact-match filters, cheapest first.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	addFilter := func(column string, value interface{}) {
		if whereClause == "" {
			whereClause = "WHERE "
		} else {
			whereClause += " AND "
		}
		whereClause += fmt.Sprintf("%s = $%d", column, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.Model != nil {
		addFilter("model", *filter.Model)
	}
	if filter.Color != nil {
		addFilter("color", *filter.Color)
	}
	if filter.Positions != nil {
		addFilter("positions", *filter.Positions)
	}
	if filter.InStock != nil {
		addFilter("in_stock", *filter.InStock)
	}

	query := fmt.Sprintf(`
		SELECT `+productColumns+`
		FROM products
		%s
		ORDER BY price ASC
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var features []byte

	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Model,
		&product.Positions,
		&product.Color,
		&product.Price,
		&features,
		&product.ImageURL,
		&product.InStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(features) > 0 {
		if err := json.Unmarshal(features, &product.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
	}
	if product.Features == nil {
		product.Features = []string{}
	}

	return product, nil
}
