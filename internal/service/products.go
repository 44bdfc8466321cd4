package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
)

// Listing and seeding bounds.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	DefaultSeedCount = 20
	MaxSeedCount     = 1000
)

// ProductService defines catalog operations.
type ProductService interface {
	Create(ctx context.Context, in model.NewProduct) (*model.Product, error)
	List(ctx context.Context, page, limit int, q string) (model.ProductPage, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	Remove(ctx context.Context, id int64) error
	// Seed replaces the catalog with count fake products and returns how many were inserted.
	Seed(ctx context.Context, count int) (int, error)
	Reset(ctx context.Context) error
}

type ProductServiceImpl struct {
	repo  repository.ProductRepository
	faker func() *gofakeit.Faker
}

// NewProductService constructs ProductService backed by repo.
func NewProductService(repo repository.ProductRepository) *ProductServiceImpl {
	return &ProductServiceImpl{
		repo:  repo,
		faker: func() *gofakeit.Faker { return gofakeit.New(0) },
	}
}

// Create validates and stores a new product.
func (s *ProductServiceImpl) Create(ctx context.Context, in model.NewProduct) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: empty name", errs.ErrValidation)
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: negative stock", errs.ErrValidation)
	}
	return s.repo.Create(ctx, in)
}

// List returns one page; non-positive page or limit fall back to 1 and
// DefaultPageLimit, and limit is capped at MaxPageLimit.
func (s *ProductServiceImpl) List(ctx context.Context, page, limit int, q string) (model.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	return s.repo.List(ctx, page, limit, q)
}

func (s *ProductServiceImpl) Get(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a partial update. Supplied fields are validated like Create.
func (s *ProductServiceImpl) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", errs.ErrValidation)
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, fmt.Errorf("%w: negative stock", errs.ErrValidation)
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *ProductServiceImpl) Remove(ctx context.Context, id int64) error {
	return s.repo.Remove(ctx, id)
}

// Seed resets the catalog and inserts count generated products.
func (s *ProductServiceImpl) Seed(ctx context.Context, count int) (int, error) {
	if count < 1 || count > MaxSeedCount {
		return 0, fmt.Errorf("%w: count must be within 1..%d", errs.ErrValidation, MaxSeedCount)
	}
	if err := s.repo.Reset(ctx); err != nil {
		return 0, err
	}
	f := s.faker()
	for i := range count {
		if _, err := s.repo.Create(ctx, FakeProduct(f)); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *ProductServiceImpl) Reset(ctx context.Context) error {
	return s.repo.Reset(ctx)
}

// FakeProduct draws a product with a price in 10.00..999.99 and stock in 0..200.
func FakeProduct(f *gofakeit.Faker) model.NewProduct {
	return model.NewProduct{
		Name:  f.ProductName(),
		Price: math.Round(f.Price(10, 999.99)*100) / 100,
		Stock: f.IntRange(0, 200),
	}
}

func checkPrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return fmt.Errorf("%w: price must be a non-negative number", errs.ErrValidation)
	}
	return nil
}
