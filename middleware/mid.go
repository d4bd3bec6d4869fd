package middleware

import (
	"errors"

	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"
)

// Mid holds the dependencies the route middleware needs.
type Mid struct {
	keys *auth.Keys
}

func NewMid(keys *auth.Keys) (*Mid, error) {
	if keys == nil {
		return nil, errors.New("auth keys are required")
	}
	return &Mid{keys: keys}, nil
}
