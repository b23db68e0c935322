package cart

import (
	"context"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
)

// Service applies cart operations against a Store. Products are checked
// against the catalog when added.
type Service struct {
	Store   Store
	Catalog catalog.Reader
}

func (s *Service) Get(ctx context.Context, customerID uint) (*Cart, error) {
	return s.Store.Load(ctx, customerID)
}

func (s *Service) Add(ctx context.Context, customerID, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.Catalog.Product(ctx, productID); err != nil {
		return nil, err
	}

	c, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SetQuantity(ctx context.Context, customerID, productID uint, quantity int) (*Cart, error) {
	if quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	c, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if quantity > 0 {
		if _, err := s.Catalog.Product(ctx, productID); err != nil {
			return nil, err
		}
	}
	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove reports whether the line existed; a missing line is not an error.
func (s *Service) Remove(ctx context.Context, customerID, productID uint) (bool, *Cart, error) {
	c, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return false, nil, err
	}
	removed := c.Remove(productID)
	if !removed {
		return false, c, nil
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return false, nil, err
	}
	return true, c, nil
}

func (s *Service) Clear(ctx context.Context, customerID uint) error {
	return s.Store.Delete(ctx, customerID)
}

// RemoveOrdered drops what a committed order took from the cart and deletes
// the stored cart once nothing is left.
func (s *Service) RemoveOrdered(ctx context.Context, customerID uint, lines []Line) error {
	c, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return err
	}
	c.Subtract(lines)
	if c.Len() == 0 {
		return s.Store.Delete(ctx, customerID)
	}
	return s.Store.Save(ctx, c)
}

func (s *Service) Preview(ctx context.Context, customerID uint, isCompany bool) (*Preview, error) {
	c, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.IsCompany = isCompany
	return c.ComputeTotal(ctx, s.Catalog)
}
