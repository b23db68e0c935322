package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/money"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

type ReceiptLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Receipt is a committed order with its derived amounts. Total is the
// stored amount of record; Subtotal comes from the frozen line prices.
type Receipt struct {
	OrderID    uint            `json:"order_id"`
	CustomerID uint            `json:"customer_id"`
	OrderDate  time.Time       `json:"order_date"`
	IsCompany  bool            `json:"is_company"`
	Lines      []ReceiptLine   `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Dropped    []uint          `json:"dropped,omitempty"`
	Existed    bool            `json:"existed,omitempty"`
}

// Repo reads committed orders. It never consults current catalog prices.
type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Get(ctx context.Context, orderID uint) (*Receipt, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Where("id = ?", orderID).
		Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	recs, err := r.receipts(ctx, []models.Order{o})
	if err != nil {
		return nil, err
	}
	return &recs[0], nil
}

// GetForCustomer hides orders of other customers behind ErrOrderNotFound.
func (r *Repo) GetForCustomer(ctx context.Context, customerID, orderID uint) (*Receipt, error) {
	rec, err := r.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rec.CustomerID != customerID {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	return rec, nil
}

func (r *Repo) ListOrders(ctx context.Context, customerID uint, page, size int) (int64, []models.Order, error) {
	offset, limit := util.Calculate(page, size)
	base := func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var out []models.Order
	if err := base().Order("order_date DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return 0, nil, err
	}
	return total, out, nil
}

type History struct {
	Orders   []Receipt       `json:"orders"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// History lists every order of a customer, newest first, with per-order
// and overall subtotal, discount and total.
func (r *Repo) History(ctx context.Context, customerID uint) (*History, error) {
	var list []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Where("customer_id = ?", customerID).
		Order("order_date DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	recs, err := r.receipts(ctx, list)
	if err != nil {
		return nil, err
	}

	h := &History{
		Orders:   recs,
		Count:    len(recs),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, rec := range recs {
		h.Subtotal = h.Subtotal.Add(rec.Subtotal)
		h.Discount = h.Discount.Add(rec.Discount)
		h.Total = h.Total.Add(rec.Total)
	}
	return h, nil
}

func (r *Repo) receipts(ctx context.Context, list []models.Order) ([]Receipt, error) {
	var ids []uint
	for _, o := range list {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	names, err := catalog.NewGormRepo(r.DB).ProductNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Receipt, 0, len(list))
	for _, o := range list {
		rec := Receipt{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			OrderDate:  o.OrderDate,
			IsCompany:  o.IsCompany,
			Lines:      make([]ReceiptLine, 0, len(o.Items)),
			Subtotal:   decimal.Zero,
			Total:      o.Total,
		}
		for _, it := range o.Items {
			lt := money.LineTotal(it.Price, it.Quantity)
			rec.Lines = append(rec.Lines, ReceiptLine{
				ProductID: it.ProductID,
				Name:      names[it.ProductID],
				Quantity:  it.Quantity,
				UnitPrice: it.Price,
				LineTotal: lt,
			})
			rec.Subtotal = rec.Subtotal.Add(lt)
		}
		rec.Discount = decimal.Zero
		if o.IsCompany {
			rec.Discount = money.Discount(rec.Subtotal, o.Total)
		}
		out = append(out, rec)
	}
	return out, nil
}
