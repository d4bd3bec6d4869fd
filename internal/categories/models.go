package categories

import "time"

// Category groups products; deleting one detaches its products rather than
// removing them.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewCategory struct {
	Name string `json:"name" validate:"required"`
}
