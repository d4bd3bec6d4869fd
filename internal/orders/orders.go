package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CristhianMazon/ecommerce-api-main/internal/products"
)

var (
	// ErrInvalidRequest indicates a malformed placement request; the caller
	// must fix the input, nothing is retried.
	ErrInvalidRequest = errors.New("invalid order request")
	// ErrNotFound indicates no order matched the (order, user) pair. An order
	// owned by another user is reported identically to a missing one.
	ErrNotFound = errors.New("order not found")
)

type Conf struct {
	db     *sql.DB
	ledger *products.Conf
}

func NewConf(db *sql.DB, ledger *products.Conf) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	return &Conf{db: db, ledger: ledger}, nil
}

// PlaceOrder creates the order header and its line items in one transaction,
// reserving stock for every line. Lines are processed strictly in submission
// order: a second line for the same product is checked against the stock the
// first line already decremented. Any failure rolls the whole order back.
func (c *Conf) PlaceOrder(ctx context.Context, userID string, lines []LineRequest) (int64, error) {
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: at least one line item is required", ErrInvalidRequest)
	}
	for i := range lines {
		if lines[i].Quantity == 0 {
			lines[i].Quantity = 1
		}
		if lines[i].Quantity < 0 {
			return 0, fmt.Errorf("%w: quantity for product %d must be positive", ErrInvalidRequest, lines[i].ProductID)
		}
	}

	var orderID int64
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryCreateOrder := `
			INSERT INTO orders (user_id, created_at)
			VALUES ($1, NOW())
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, queryCreateOrder, userID).Scan(&orderID); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range lines {
			if _, err := c.ledger.ReserveStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}

			queryAddItem := `
				INSERT INTO order_items (order_id, product_id, quantity)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, queryAddItem, orderID, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("failed to add order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// CancelOrder removes the order and its items in one transaction, restoring
// the stock each line had reserved. Lines whose product was deleted after
// placement are skipped: their stock pool no longer exists.
func (c *Conf) CancelOrder(ctx context.Context, userID string, orderID int64) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		queryOrder := `
			SELECT id
			FROM orders
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`
		var id int64
		err := tx.QueryRowContext(ctx, queryOrder, orderID, userID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: id %d", ErrNotFound, orderID)
			}
			return fmt.Errorf("failed to query order: %w", err)
		}

		queryItems := `
			SELECT product_id, quantity
			FROM order_items
			WHERE order_id = $1
		`
		rows, err := tx.QueryContext(ctx, queryItems, orderID)
		if err != nil {
			return fmt.Errorf("failed to query order items: %w", err)
		}
		var items []OrderItem
		for rows.Next() {
			var item OrderItem
			if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan order item: %w", err)
			}
			items = append(items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating order items: %w", err)
		}

		for _, item := range items {
			if _, err := c.ledger.ReleaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		// Explicit cascade: items first, then the header.
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
}

// ListOrders returns every order owned by the user, lines included. Lines
// keep their quantity even when the referenced product has since been
// deleted; the snapshot fields are zero-valued in that case.
func (c *Conf) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	query := `
		SELECT o.id, o.user_id, o.created_at,
		       oi.product_id, COALESCE(p.name, ''), COALESCE(p.price, 0), oi.quantity
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC, oi.id ASC
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	index := make(map[int64]int)
	for rows.Next() {
		var (
			order Order
			item  OrderItem
		)
		if err := rows.Scan(&order.ID, &order.UserID, &order.CreatedAt,
			&item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		i, ok := index[order.ID]
		if !ok {
			i = len(list)
			index[order.ID] = i
			list = append(list, order)
		}
		list[i].Items = append(list[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return list, nil
}

// GetOrder returns one order scoped to its owner.
func (c *Conf) GetOrder(ctx context.Context, userID string, orderID int64) (Order, error) {
	queryOrder := `
		SELECT id, user_id, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	var order Order
	err := c.db.QueryRowContext(ctx, queryOrder, orderID, userID).Scan(&order.ID, &order.UserID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: id %d", ErrNotFound, orderID)
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	queryItems := `
		SELECT oi.product_id, COALESCE(p.name, ''), COALESCE(p.price, 0), oi.quantity
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC
	`
	rows, err := c.db.QueryContext(ctx, queryItems, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return Order{}, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("error iterating order items: %w", err)
	}
	return order, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
