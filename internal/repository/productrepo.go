package repository

import (
	"context"

	"github.com/and161185/storefront/internal/model"
)

// ProductRepository provides catalog storage.
type ProductRepository interface {
	// List returns one page of products whose name contains q (case-insensitive; blank q matches all).
	List(ctx context.Context, page, limit int, q string) (model.ProductPage, error)
	// Get returns a product by ID or errs.ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Product, error)
	// Create assigns the next ID and persists the product.
	Create(ctx context.Context, p model.NewProduct) (*model.Product, error)
	// Update applies patch or returns errs.ErrNotFound.
	Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	// Remove deletes a product or returns errs.ErrNotFound.
	Remove(ctx context.Context, id int64) error
	// Reset empties the catalog.
	Reset(ctx context.Context) error
}
