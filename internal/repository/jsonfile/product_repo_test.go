package jsonfile

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

func newProductRepo(t *testing.T) *ProductRepo {
	t.Helper()
	return NewProductRepo(ProductsPath(t.TempDir()))
}

func seedProducts(t *testing.T, r *ProductRepo, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := r.Create(context.Background(), model.NewProduct{Name: n, Price: 10, Stock: 1})
		require.NoError(t, err)
	}
}

func TestProductRepo_ListPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newProductRepo(t)
	for i := 1; i <= 7; i++ {
		seedProducts(t, r, fmt.Sprintf("item-%d", i))
	}

	p, err := r.List(ctx, 2, 3, "")
	require.NoError(t, err)
	assert.Equal(t, model.PageMeta{Page: 2, Limit: 3, Total: 7}, p.Meta)
	require.Len(t, p.Items, 3)
	assert.Equal(t, int64(4), p.Items[0].ID)

	p, err = r.List(ctx, 3, 3, "")
	require.NoError(t, err)
	require.Len(t, p.Items, 1)

	p, err = r.List(ctx, 9, 3, "")
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)

	p, err = r.List(ctx, 0, -5, "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Meta.Page)
	assert.Equal(t, 1, p.Meta.Limit)
	require.Len(t, p.Items, 1)
}

func TestProductRepo_ListHugePageAndLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newProductRepo(t)
	seedProducts(t, r, "only")

	tests := []struct {
		page, limit int
		want        int
	}{
		{3, math.MaxInt64/2 + 1, 0},
		{1, math.MaxInt64, 1},
		{math.MaxInt64, math.MaxInt64, 0},
		{math.MaxInt64, 1, 0},
	}
	for _, tt := range tests {
		p, err := r.List(ctx, tt.page, tt.limit, "")
		require.NoError(t, err)
		assert.Len(t, p.Items, tt.want, "page=%d limit=%d", tt.page, tt.limit)
		assert.Equal(t, 1, p.Meta.Total)
	}

	empty := newProductRepo(t)
	p, err := empty.List(ctx, math.MaxInt64, math.MaxInt64, "")
	require.NoError(t, err)
	assert.Empty(t, p.Items)
}

func TestProductRepo_ListSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newProductRepo(t)
	seedProducts(t, r, "Keyboard", "Mouse", "Mechanical KEYBOARD")

	p, err := r.List(ctx, 1, 10, "key")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Meta.Total)

	p, err = r.List(ctx, 1, 10, "   ")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Meta.Total)
}

func TestProductRepo_GetUpdateRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newProductRepo(t)
	seedProducts(t, r, "Keyboard")

	got, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", got.Name)

	price := 14.9
	upd, err := r.Update(ctx, 1, model.ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", upd.Name)
	assert.Equal(t, 14.9, upd.Price)
	assert.False(t, upd.UpdatedAt.Before(upd.CreatedAt))

	_, err = r.Update(ctx, 2, model.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, r.Remove(ctx, 1))
	assert.ErrorIs(t, r.Remove(ctx, 1), errs.ErrNotFound)
	_, err = r.Get(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProductRepo_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newProductRepo(t)
	seedProducts(t, r, "a", "b")
	require.NoError(t, r.Reset(ctx))

	p, err := r.List(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Zero(t, p.Meta.Total)
}
