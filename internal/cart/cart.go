package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/money"
)

// MaxQuantity caps a single line.
const MaxQuantity = 10_000

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 10000")

// Cart maps product id to a positive quantity. A product missing from
// Lines has quantity zero.
type Cart struct {
	CustomerID uint         `json:"customer_id,omitempty"`
	IsCompany  bool         `json:"is_company"`
	Lines      map[uint]int `json:"lines"`

	// ComputedTotal caches the last preview and is never used for charging.
	ComputedTotal decimal.Decimal `json:"computed_total"`
}

func New(customerID uint) *Cart {
	return &Cart{CustomerID: customerID, Lines: map[uint]int{}}
}

func (c *Cart) Add(productID uint, quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if c.Lines == nil {
		c.Lines = map[uint]int{}
	}
	if have := c.Lines[productID]; have > MaxQuantity-quantity {
		return fmt.Errorf("%w: %d in cart, adding %d", ErrInvalidQuantity, have, quantity)
	}
	c.Lines[productID] += quantity
	return nil
}

// Remove reports whether the product was in the cart.
func (c *Cart) Remove(productID uint) bool {
	if _, ok := c.Lines[productID]; !ok {
		return false
	}
	delete(c.Lines, productID)
	return true
}

// SetQuantity replaces the quantity; zero or less removes the line.
func (c *Cart) SetQuantity(productID uint, quantity int) error {
	if quantity <= 0 {
		c.Remove(productID)
		return nil
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if c.Lines == nil {
		c.Lines = map[uint]int{}
	}
	c.Lines[productID] = quantity
	return nil
}

// Subtract takes ordered quantities out of the cart. Units added after the
// snapshot was taken stay.
func (c *Cart) Subtract(lines []Line) {
	for _, line := range lines {
		have, ok := c.Lines[line.ProductID]
		if !ok {
			continue
		}
		if have <= line.Quantity {
			delete(c.Lines, line.ProductID)
			continue
		}
		c.Lines[line.ProductID] = have - line.Quantity
	}
}

func (c *Cart) Clear() {
	c.Lines = map[uint]int{}
	c.ComputedTotal = decimal.Zero
}

func (c *Cart) Len() int { return len(c.Lines) }

type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Snapshot is what checkout hands to the order writer. Prices are
// resolved again at commit.
type Snapshot struct {
	CustomerID uint   `json:"customer_id"`
	IsCompany  bool   `json:"is_company"`
	Lines      []Line `json:"lines"`
}

func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		CustomerID: c.CustomerID,
		IsCompany:  c.IsCompany,
		Lines:      c.sortedLines(),
	}
}

func (c *Cart) sortedLines() []Line {
	lines := make([]Line, 0, len(c.Lines))
	for id, qty := range c.Lines {
		lines = append(lines, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

type PreviewLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Preview struct {
	Lines    []PreviewLine   `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	// Missing lists products that no longer resolve; they are excluded.
	Missing []uint `json:"missing,omitempty"`
}

// ComputeTotal prices the cart at current catalog prices. Products that no
// longer resolve are skipped with a warning.
func (c *Cart) ComputeTotal(ctx context.Context, r catalog.Reader) (*Preview, error) {
	l := logging.FromContext(ctx).With("svc", "cart.compute_total", "customer_id", c.CustomerID)

	p := &Preview{Lines: []PreviewLine{}, Subtotal: decimal.Zero}
	for _, line := range c.sortedLines() {
		prod, err := r.Product(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			l.Warn("cart_line_skipped", "product_id", line.ProductID, "reason", "product not in catalog")
			p.Missing = append(p.Missing, line.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}

		lt := money.LineTotal(prod.Price, line.Quantity)
		p.Lines = append(p.Lines, PreviewLine{
			ProductID: line.ProductID,
			Name:      prod.Name,
			Quantity:  line.Quantity,
			UnitPrice: prod.Price,
			LineTotal: lt,
		})
		p.Subtotal = p.Subtotal.Add(lt)
	}

	p.Total = money.Total(p.Subtotal, c.IsCompany)
	p.Discount = money.Discount(p.Subtotal, p.Total)
	c.ComputedTotal = p.Total
	return p, nil
}
