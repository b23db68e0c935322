package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/money"
	"github.com/Skotchmaster/shop_orders/internal/mykafka"
)

type Indexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Weight      float64         `json:"weight"`

	Brand         *string `json:"brand,omitempty"`
	WarrantyYears *int    `json:"warranty_years,omitempty"`
	Author        *string `json:"author,omitempty"`
	PageCount     *int    `json:"page_count,omitempty"`
	Size          *string `json:"size,omitempty"`
}

// PatchInput changes catalog state only; order lines keep their prices.
type PatchInput struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Weight      *float64         `json:"weight,omitempty"`

	Brand         *string `json:"brand,omitempty"`
	WarrantyYears *int    `json:"warranty_years,omitempty"`
	Author        *string `json:"author,omitempty"`
	PageCount     *int    `json:"page_count,omitempty"`
	Size          *string `json:"size,omitempty"`
}

type Service struct {
	Repo   *GormRepo
	Index  Indexer
	Events mykafka.Publisher
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	return s.Repo.Product(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	return s.Repo.List(ctx, f)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Category:      in.Category,
		Price:         in.Price,
		Weight:        in.Weight,
		Brand:         in.Brand,
		WarrantyYears: in.WarrantyYears,
		Author:        in.Author,
		PageCount:     in.PageCount,
		Size:          in.Size,
	}
	if err := Validate(p); err != nil {
		return nil, err
	}

	if err := s.Repo.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}

	s.afterWrite(ctx, mykafka.EventProductCreated, p, false)
	return &p, nil
}

func (s *Service) Patch(ctx context.Context, id uint, in PatchInput) (*models.Product, error) {
	var p models.Product
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := (&GormRepo{DB: tx, lockRows: true}).Product(ctx, id)
		if err != nil {
			return err
		}
		p = *cur
		applyPatch(&p, in)
		if err := Validate(p); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, mykafka.EventProductUpdated, p, false)
	return &p, nil
}

// Delete soft-deletes: the row stays for order history and invoices.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.Repo.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}

	s.afterWrite(ctx, mykafka.EventProductDeleted, models.Product{ID: id}, true)
	return nil
}

func applyPatch(p *models.Product, in PatchInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Weight != nil {
		p.Weight = *in.Weight
	}
	if in.Brand != nil {
		p.Brand = in.Brand
	}
	if in.WarrantyYears != nil {
		p.WarrantyYears = in.WarrantyYears
	}
	if in.Author != nil {
		p.Author = in.Author
	}
	if in.PageCount != nil {
		p.PageCount = in.PageCount
	}
	if in.Size != nil {
		p.Size = in.Size
	}
}

// afterWrite keeps the search index and event stream in step. Both are
// best effort: the database row is already committed.
func (s *Service) afterWrite(ctx context.Context, eventType string, p models.Product, deleted bool) {
	l := logging.FromContext(ctx).With("svc", "catalog", "product_id", p.ID)

	if s.Index != nil {
		var err error
		if deleted {
			err = s.Index.DeleteProduct(ctx, p.ID)
		} else {
			err = s.Index.IndexProduct(ctx, p)
		}
		if err != nil {
			l.Warn("search_index_failed", "event", eventType, "error", err)
		}
	}

	if s.Events == nil {
		return
	}
	payload := map[string]any{"product_id": p.ID}
	if !deleted {
		payload["name"] = p.Name
		payload["price"] = money.Format(p.Price)
	}
	key := strconv.FormatUint(uint64(p.ID), 10)
	env, err := mykafka.NewEnvelope(eventType, key, payload)
	if err == nil {
		err = s.Events.PublishEvent(ctx, mykafka.TopicProductEvents, key, env)
	}
	if err != nil {
		l.Warn("publish_failed", "event", eventType, "error", err)
	}
}

// Validate checks the product and its category payload.
func Validate(p models.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if err := money.ValidatePrice(p.Price); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Weight < 0 {
		return fmt.Errorf("%w: weight must be >= 0", ErrValidation)
	}

	switch p.Category {
	case models.CategoryElectronics:
		if blank(p.Brand) {
			return fmt.Errorf("%w: electronics require brand", ErrValidation)
		}
		if p.WarrantyYears != nil && *p.WarrantyYears < 0 {
			return fmt.Errorf("%w: warranty_years must be >= 0", ErrValidation)
		}
		return only(p, "brand", "warranty_years")
	case models.CategoryBooks:
		if blank(p.Author) {
			return fmt.Errorf("%w: books require author", ErrValidation)
		}
		if p.PageCount != nil && *p.PageCount <= 0 {
			return fmt.Errorf("%w: page_count must be > 0", ErrValidation)
		}
		return only(p, "author", "page_count")
	case models.CategoryClothing:
		if blank(p.Size) {
			return fmt.Errorf("%w: clothing requires size", ErrValidation)
		}
		return only(p, "size")
	default:
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	}
}

func blank(s *string) bool { return s == nil || strings.TrimSpace(*s) == "" }

func only(p models.Product, allowed ...string) error {
	set := map[string]bool{
		"brand":          p.Brand != nil,
		"warranty_years": p.WarrantyYears != nil,
		"author":         p.Author != nil,
		"page_count":     p.PageCount != nil,
		"size":           p.Size != nil,
	}
	for _, a := range allowed {
		delete(set, a)
	}
	for field, present := range set {
		if present {
			return fmt.Errorf("%w: %s not valid for %s", ErrValidation, field, p.Category)
		}
	}
	return nil
}
