package orders

import "time"

// Order is the aggregate root: a header plus the line items created with it.
// Orders are immutable once placed; cancellation removes the whole aggregate.
type Order struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"user_id"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"items"`
}

// OrderItem joins an order to a product. ProductName and Price are snapshot
// fields read from the products table at query time.
type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// LineRequest is one requested line of a placement call. Quantity defaults
// to 1 when absent.
type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
