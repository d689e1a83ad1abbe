package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/es"
	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type CatalogService struct {
	Repo     *repo.GormRepo
	Indexer  *es.Indexer
	Producer *mykafka.Producer
	// PublicDir is the static root; image URLs like /images/x.png resolve
	// beneath it when a soft delete cleans up files.
	PublicDir string
}

func (s *CatalogService) publish(ctx context.Context, event map[string]any) {
	if err := s.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "product_events", "error", err)
	}
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if err := s.Indexer.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Error("es index failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetActiveProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// ListProducts runs catalog filtering. A free-text query goes through the
// search cluster first when one is configured; the SQL substring fallback
// covers everything else.
func (s *CatalogService) ListProducts(ctx context.Context, f transport.ProductFilters, offset, limit int) (int64, []models.Product, error) {
	if f.Search != "" && s.Indexer.Enabled() {
		ids, err := s.Indexer.SearchIDs(ctx, f.Search, 200)
		if err != nil {
			logging.FromContext(ctx).Error("es search failed, falling back to sql", "error", err)
		} else if len(ids) == 0 {
			return 0, []models.Product{}, nil
		} else {
			f.IDs = ids
		}
	}
	return s.Repo.ListProducts(ctx, f, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	currency := req.Currency
	if currency == "" {
		currency = "cny"
	}

	prod := &models.Product{
		Name:          req.Name,
		NameEn:        req.NameEn,
		Description:   req.Description,
		DescriptionEn: req.DescriptionEn,
		Price:         req.Price,
		Currency:      strings.ToLower(currency),
		Discount:      req.Discount,
		Stock:         req.Stock,
		IsDigital:     req.IsDigital,
		IsActive:      true,
		IsFeatured:    req.IsFeatured,
		Category:      req.Category,
		Element:       req.Element,
		Tags:          req.Tags,
		Images:        req.Images,
	}

	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	s.publish(ctx, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if req.Discount != nil && (*req.Discount < 0 || *req.Discount > 100) {
		return nil, fmt.Errorf("%w: discount must be between 0 and 100", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}

	s.index(ctx, prod)
	s.publish(ctx, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})
	return prod, nil
}

// DeleteProduct is a soft delete: the row survives so order snapshots keep a
// valid reference. Uploaded image files are removed best-effort.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	prod, err := s.Repo.SoftDeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return err
	}

	l := logging.FromContext(ctx)
	for _, img := range prod.Images {
		p := s.imagePath(img)
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.Error("image cleanup failed", "product_id", id, "file", p, "error", err)
		}
	}

	if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
		l.Error("es deindex failed", "product_id", id, "error", err)
	}

	s.publish(ctx, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

// imagePath maps an /images/<name> URL onto the public directory. Anything
// else (external URLs, traversal attempts) is skipped.
func (s *CatalogService) imagePath(url string) string {
	const prefix = "/images/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	name := filepath.Base(strings.TrimPrefix(url, prefix))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return filepath.Join(s.PublicDir, "images", name)
}
