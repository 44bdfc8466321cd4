package jsonfile

import (
	"context"
	"slices"
	"strings"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/filestore"
	"github.com/and161185/storefront/internal/model"
)

// ProductRepo implements ProductRepository on a single JSON document.
type ProductRepo struct {
	doc *filestore.Document[model.Product]
	now clock
}

// NewProductRepo constructs a product repository backed by the file at path.
func NewProductRepo(path string) *ProductRepo {
	return &ProductRepo{doc: filestore.Open[model.Product](path), now: utcNow}
}

// List filters by name substring and slices out the requested page.
// page and limit below 1 are treated as 1; total counts filtered items.
func (r *ProductRepo) List(ctx context.Context, page, limit int, q string) (model.ProductPage, error) {
	page, limit = max(page, 1), max(limit, 1)
	out := model.ProductPage{
		Meta:  model.PageMeta{Page: page, Limit: limit},
		Items: []model.Product{},
	}
	err := r.doc.View(ctx, func(items []model.Product) error {
		if s := strings.TrimSpace(q); s != "" {
			s = strings.ToLower(s)
			items = slices.DeleteFunc(items, func(p model.Product) bool {
				return !strings.Contains(strings.ToLower(p.Name), s)
			})
		}
		out.Meta.Total = len(items)
		// compare by division so huge page or limit cannot overflow the offset
		if len(items) == 0 || page-1 > (len(items)-1)/limit {
			return nil
		}
		start := (page - 1) * limit
		end := start + min(limit, len(items)-start)
		out.Items = append(out.Items, items[start:end]...)
		return nil
	})
	return out, err
}

// Get returns the product with the given ID.
func (r *ProductRepo) Get(ctx context.Context, id int64) (*model.Product, error) {
	var found *model.Product
	err := r.doc.View(ctx, func(items []model.Product) error {
		i := productIndex(items, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		found = &items[i]
		return nil
	})
	return found, err
}

// Create appends a product with ID max+1.
func (r *ProductRepo) Create(ctx context.Context, in model.NewProduct) (*model.Product, error) {
	var created model.Product
	err := r.doc.Update(ctx, func(items []model.Product) ([]model.Product, bool, error) {
		var maxID int64
		for _, p := range items {
			maxID = max(maxID, p.ID)
		}
		now := r.now()
		created = model.Product{
			ID:        maxID + 1,
			Name:      in.Name,
			Price:     in.Price,
			Stock:     in.Stock,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(items, created), true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies the non-nil fields of patch.
func (r *ProductRepo) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	var updated model.Product
	err := r.doc.Update(ctx, func(items []model.Product) ([]model.Product, bool, error) {
		i := productIndex(items, id)
		if i < 0 {
			return nil, false, errs.ErrNotFound
		}
		p := &items[i]
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		p.UpdatedAt = r.now()
		updated = *p
		return items, true, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove deletes the product with the given ID.
func (r *ProductRepo) Remove(ctx context.Context, id int64) error {
	return r.doc.Update(ctx, func(items []model.Product) ([]model.Product, bool, error) {
		i := productIndex(items, id)
		if i < 0 {
			return nil, false, errs.ErrNotFound
		}
		return slices.Delete(items, i, i+1), true, nil
	})
}

// Reset empties the products document.
func (r *ProductRepo) Reset(ctx context.Context) error {
	return r.doc.Replace(ctx, nil)
}

func productIndex(items []model.Product, id int64) int {
	return slices.IndexFunc(items, func(p model.Product) bool { return p.ID == id })
}
