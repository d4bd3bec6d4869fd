package kafka

import "time"

const (
	TopicOrderPlaced    = `ecommerce-api.order-placed`
	TopicOrderCancelled = `ecommerce-api.order-cancelled`
)

// OrderPlacedEvent is published once per line item after an order commits.
type OrderPlacedEvent struct {
	OrderId   int64     `json:"order_id"`
	UserId    string    `json:"user_id"`
	ProductId int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderCancelledEvent is published after a cancellation commits and the
// stock has been restored.
type OrderCancelledEvent struct {
	OrderId     int64     `json:"order_id"`
	UserId      string    `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
