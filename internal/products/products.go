package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates a reserve request exceeds the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	query := `
		INSERT INTO products (name, description, price, stock, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, description, price, stock, category_id, created_at, updated_at
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, np.Name, np.Description, np.Price, np.Stock, np.CategoryID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (c *Conf) GetProductByID(ctx context.Context, productID int64) (Product, error) {
	query := `
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, productID)
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, productID int64, np NewProduct) (Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING id, name, description, price, stock, category_id, created_at, updated_at
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, np.Name, np.Description, np.Price, np.Stock, np.CategoryID, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, productID)
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (c *Conf) DeleteProduct(ctx context.Context, productID int64) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, productID)
	}
	return nil
}

// ListProducts supports optional name/category filters plus pagination. Sort
// columns are whitelisted so caller input never reaches the query verbatim.
func (c *Conf) ListProducts(ctx context.Context, nameFilter string, categoryID *int64, limit, offset int, sort, order string) ([]Product, error) {
	sortColumns := map[string]string{"name": "name", "price": "price", "stock": "stock", "created_at": "created_at"}
	sortColumn, ok := sortColumns[sort]
	if !ok {
		sortColumn = "name"
	}
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, price, stock, category_id, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%%' || $1 || '%%')
		  AND ($2::BIGINT IS NULL OR category_id = $2)
		ORDER BY %s %s
		LIMIT $3 OFFSET $4
	`, sortColumn, direction)

	rows, err := c.db.QueryContext(ctx, query, nameFilter, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return list, nil
}

// ReserveStock decrements a product's stock on the caller's transaction. The
// row is locked with FOR UPDATE so concurrent reservations against the same
// product serialize on the database. Nothing is committed here; the caller
// owns the unit of work.
func (c *Conf) ReserveStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (Product, error) {
	queryStock := `
		SELECT id, name, price, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`
	var p Product
	err := tx.QueryRowContext(ctx, queryStock, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, productID)
		}
		return Product{}, fmt.Errorf("failed to query stock: %w", err)
	}

	if quantity > p.Stock {
		return Product{}, fmt.Errorf("%w for product %q: requested %d, available %d",
			ErrInsufficientStock, p.Name, quantity, p.Stock)
	}

	queryDecrement := `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := tx.ExecContext(ctx, queryDecrement, quantity, productID); err != nil {
		return Product{}, fmt.Errorf("failed to decrement stock: %w", err)
	}

	p.Stock -= quantity
	return p, nil
}

// ReleaseStock returns a previously reserved quantity to the product's stock
// on the caller's transaction. A quantity released can never exceed what was
// reserved from the same pool, so there is no upper bound check. Returns
// false when the product no longer exists.
func (c *Conf) ReleaseStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (bool, error) {
	queryIncrement := `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.ExecContext(ctx, queryIncrement, quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}
