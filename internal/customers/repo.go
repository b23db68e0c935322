package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/models"
)

var (
	ErrValidation         = errors.New("validation")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Create(ctx context.Context, c *models.Customer) error {
	err := r.DB.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrEmailTaken, c.Email)
	}
	return err
}

// UpdateContact writes name, email, address and phone only.
func (r *GormRepo) UpdateContact(ctx context.Context, c *models.Customer) error {
	res := r.DB.WithContext(ctx).Model(c).
		Select("name", "email", "address", "phone").
		Updates(c)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrEmailTaken, c.Email)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrCustomerNotFound, c.ID)
	}
	return nil
}

func (r *GormRepo) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var c models.Customer
	err := r.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
