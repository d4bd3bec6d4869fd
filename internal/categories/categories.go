package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound indicates the category does not exist.
var ErrNotFound = errors.New("category not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertCategory(ctx context.Context, nc NewCategory) (Category, error) {
	query := `
		INSERT INTO categories (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, name, created_at, updated_at
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM categories
		ORDER BY name ASC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		list = append(list, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return list, nil
}

func (c *Conf) UpdateCategory(ctx context.Context, categoryID int64, nc NewCategory) (Category, error) {
	query := `
		UPDATE categories
		SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, created_at, updated_at
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name, categoryID).Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, fmt.Errorf("%w: id %d", ErrNotFound, categoryID)
		}
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return cat, nil
}

// DeleteCategory removes the category; the products FK sets category_id to
// NULL on its rows, so products survive the deletion unattached.
func (c *Conf) DeleteCategory(ctx context.Context, categoryID int64) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, categoryID)
	}
	return nil
}
