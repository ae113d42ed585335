package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saveup/marketplace/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, supermarket_id, name, category, original_price, discount_price,
			quantity, expiration_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		product.ID, product.SupermarketID, product.Name, product.Category,
		product.OriginalPrice, product.DiscountPrice, product.Quantity,
		product.ExpirationDate, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductAlreadyExists
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, supermarket_id, name, category, original_price, discount_price,
		       quantity, expiration_date, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.SupermarketID, &product.Name, &product.Category,
		&product.OriginalPrice, &product.DiscountPrice, &product.Quantity,
		&product.ExpirationDate, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

// ListBySupermarket отдаёт витрину супермаркета: ближайший срок годности
// первым, чтобы персонал видел, что пора продавать со скидкой.
func (r *productRepository) ListBySupermarket(supermarketID string, limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, supermarket_id, name, category, original_price, discount_price,
		       quantity, expiration_date, created_at, updated_at
		FROM products
		WHERE supermarket_id = $1
		ORDER BY expiration_date ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", supermarketID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, supermarketID)
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.SupermarketID, &product.Name, &product.Category,
			&product.OriginalPrice, &product.DiscountPrice, &product.Quantity,
			&product.ExpirationDate, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (r *productRepository) Save(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    category = $2,
		    original_price = $3,
		    discount_price = $4,
		    quantity = $5,
		    expiration_date = $6,
		    updated_at = $7
		WHERE id = $8
	`,
		product.Name, product.Category, product.OriginalPrice, product.DiscountPrice,
		product.Quantity, product.ExpirationDate, product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
