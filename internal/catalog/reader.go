package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_orders/internal/models"
)

var (
	ErrValidation      = errors.New("validation")
	ErrProductNotFound = errors.New("product not found")
)

// Reader resolves a product id to its current catalog state. Soft-deleted
// products do not resolve.
type Reader interface {
	Product(ctx context.Context, id uint) (*models.Product, error)
}

type GormRepo struct {
	DB *gorm.DB

	// lockRows reads with FOR SHARE; set on transaction-bound readers.
	lockRows bool
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// WithTx binds the reader to tx so that each price is read once under a
// share lock inside the caller's transaction.
func (r *GormRepo) WithTx(tx *gorm.DB) Reader {
	return &GormRepo{DB: tx, lockRows: true}
}

func (r *GormRepo) Product(ctx context.Context, id uint) (*models.Product, error) {
	q := r.DB.WithContext(ctx)
	if r.lockRows {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
	}

	var p models.Product
	if err := q.Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// Products resolves many ids at once; missing ids are absent from the map.
func (r *GormRepo) Products(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	out := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// ProductNames includes soft-deleted products, for rendering history.
func (r *GormRepo) ProductNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ID   uint
		Name string
	}
	if err := r.DB.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}
