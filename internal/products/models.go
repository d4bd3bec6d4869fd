package products

import "time"

// Product represents a product entity in the database
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`       // Price per unit
	Stock       int       `json:"stock"`       // Available stock, never negative
	CategoryID  *int64    `json:"category_id"` // Nulled when the category is deleted
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewProduct struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	CategoryID  *int64  `json:"category_id"`
}
