package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerKind string

const (
	KindPrivate CustomerKind = "private"
	KindCompany CustomerKind = "company"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Customer is a tagged variant on Kind: Birthdate belongs to private
// customers, CompanyNumber to companies.
type Customer struct {
	ID            uint         `gorm:"primaryKey"                        json:"id"`
	Kind          CustomerKind `gorm:"size:16;not null;default:private"  json:"kind"`
	Name          string       `gorm:"not null"                          json:"name"`
	Email         string       `gorm:"size:255;uniqueIndex;not null"     json:"email"`
	Address       string       `                                         json:"address"`
	Phone         string       `                                         json:"phone"`
	PasswordHash  string       `gorm:"not null"                          json:"-"`
	Role          string       `gorm:"size:16;not null;default:user"     json:"role"`
	Birthdate     *time.Time   `                                         json:"birthdate,omitempty"`
	CompanyNumber *string      `gorm:"size:64"                           json:"company_number,omitempty"`
	CreatedAt     time.Time    `                                         json:"created_at"`
}

func (c Customer) IsCompany() bool { return c.Kind == KindCompany }

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryBooks       Category = "books"
	CategoryClothing    Category = "clothing"
)

// Product carries the category payload inline; only the columns of its
// own category are set.
type Product struct {
	ID          uint            `gorm:"primaryKey"                   json:"id"`
	Name        string          `gorm:"not null"                     json:"name"`
	Description string          `                                    json:"description"`
	Category    Category        `gorm:"size:32;index;not null"       json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"price"`
	Weight      float64         `gorm:"not null;default:0"           json:"weight"`

	Brand         *string `gorm:"size:128;index" json:"brand,omitempty"`
	WarrantyYears *int    `                      json:"warranty_years,omitempty"`
	Author        *string `gorm:"size:255;index" json:"author,omitempty"`
	PageCount     *int    `                      json:"page_count,omitempty"`
	Size          *string `gorm:"size:16;index"  json:"size,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Order struct {
	ID             uint            `gorm:"primaryKey"                   json:"id"`
	CustomerID     uint            `gorm:"index;not null"               json:"customer_id"`
	Customer       Customer        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	OrderDate      time.Time       `gorm:"not null"                     json:"order_date"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total"`
	IsCompany      bool            `gorm:"not null;default:false"       json:"is_company"`
	IdempotencyKey *string         `gorm:"size:64;uniqueIndex"          json:"-"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE"  json:"items,omitempty"`
}

// OrderItem.Price is the unit price captured at commit and never re-derived.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                                  json:"id"`
	OrderID   uint            `gorm:"not null;uniqueIndex:idx_order_items_product" json:"order_id"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_order_items_product;index" json:"product_id"`
	Product   Product         `gorm:"constraint:OnDelete:RESTRICT"                json:"-"`
	Quantity  int             `gorm:"not null;check:quantity > 0"                 json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"                 json:"price"`
}

type Review struct {
	ID         uint      `gorm:"primaryKey"                                           json:"id"`
	CustomerID uint      `gorm:"not null;uniqueIndex:idx_reviews_customer_product"    json:"customer_id"`
	Customer   Customer  `gorm:"constraint:OnDelete:CASCADE"                          json:"-"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_reviews_customer_product;index" json:"product_id"`
	Product    Product   `gorm:"constraint:OnDelete:CASCADE"                          json:"-"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5"           json:"rating"`
	Comment    string    `                                                            json:"comment"`
	CreatedAt  time.Time `                                                            json:"created_at"`
}

// All lists the models in migration order.
func All() []any {
	return []any{&Customer{}, &Product{}, &Order{}, &OrderItem{}, &Review{}}
}
