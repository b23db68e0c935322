package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

type Filter struct {
	Search       string
	Category     models.Category
	Brand        string
	Author       string
	ClothingSize string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal

	Sort string
	Dir  string

	Page     int
	PageSize int
}

type Page struct {
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Items []models.Product `json:"items"`
}

var sortColumns = map[string]string{
	"id":       "products.id",
	"name":     "products.name",
	"category": "products.category",
	"price":    "products.price",
	"rating":   "avg_rating",
}

func (f Filter) orderBy() (string, error) {
	key := f.Sort
	if key == "" {
		key = "id"
	}
	col, ok := sortColumns[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort %q", ErrValidation, f.Sort)
	}

	dir := strings.ToLower(f.Dir)
	switch dir {
	case "", "asc":
		dir = "ASC"
	case "desc":
		dir = "DESC"
	default:
		return "", fmt.Errorf("%w: unknown direction %q", ErrValidation, f.Dir)
	}

	if col == "products.id" {
		return col + " " + dir, nil
	}
	return col + " " + dir + ", products.id ASC", nil
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("products.category = ?", f.Category)
	}
	if f.Brand != "" {
		q = q.Where("products.brand = ?", f.Brand)
	}
	if f.Author != "" {
		q = q.Where("products.author = ?", f.Author)
	}
	if f.ClothingSize != "" {
		q = q.Where("products.size = ?", f.ClothingSize)
	}
	if f.MinPrice != nil {
		q = q.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.price <= ?", *f.MaxPrice)
	}
	return q
}

func (r *GormRepo) List(ctx context.Context, f Filter) (*Page, error) {
	orderBy, err := f.orderBy()
	if err != nil {
		return nil, err
	}
	from, limit := util.Calculate(f.Page, f.PageSize)

	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]models.Product, 0, limit)
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).
		Select("products.*, COALESCE(ratings.avg_rating, 0) AS avg_rating").
		Joins("LEFT JOIN (SELECT product_id, AVG(rating) AS avg_rating FROM reviews GROUP BY product_id) ratings ON ratings.product_id = products.id").
		Order(orderBy).
		Offset(from).
		Limit(limit)
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}

	return &Page{Total: total, Page: from/limit + 1, Size: limit, Items: items}, nil
}
