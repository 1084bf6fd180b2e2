// Package catalog is the read side of the storefront: product and
// category browsing as thin wrappers over the backend endpoints.
package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
)

type Backend interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ProductByID(ctx context.Context, productID int64) (*domain.ProductDetail, error)
	ProductsBySubcategory(ctx context.Context, subcategoryID int64) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type Service struct {
	backend Backend
	sfg     singleflight.Group // collapses concurrent identical reads
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do("all", func() (interface{}, error) {
		return s.backend.Products(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) ProductByID(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	key := fmt.Sprintf("product:%d", productID)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		return s.backend.ProductByID(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ProductDetail), nil
}

func (s *Service) ProductsBySubcategory(ctx context.Context, subcategoryID int64) ([]domain.Product, error) {
	key := fmt.Sprintf("sub:%d", subcategoryID)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		return s.backend.ProductsBySubcategory(ctx, subcategoryID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	v, err, _ := s.sfg.Do("categories", func() (interface{}, error) {
		return s.backend.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Category), nil
}
