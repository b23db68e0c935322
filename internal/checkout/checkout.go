package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/invoice"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/mykafka"
	"github.com/Skotchmaster/shop_orders/internal/orders"
)

type CustomerLookup interface {
	Get(ctx context.Context, id uint) (*models.Customer, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, snap cart.Snapshot, idemKey string) (*orders.Receipt, error)
}

type InvoiceGenerator interface {
	Generate(ctx context.Context, orderID uint) (invoice.Document, error)
}

type OrderCreated struct {
	OrderID    uint                 `json:"order_id"`
	CustomerID uint                 `json:"customer_id"`
	OrderDate  time.Time            `json:"order_date"`
	IsCompany  bool                 `json:"is_company"`
	Total      decimal.Decimal      `json:"total"`
	Lines      []orders.ReceiptLine `json:"lines"`
}

type Result struct {
	Receipt  *orders.Receipt   `json:"receipt"`
	Invoice  *invoice.Document `json:"invoice,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Service runs cart -> order -> invoice -> cleared cart -> event. Only the
// order commit can fail a checkout; the later steps degrade to warnings.
type Service struct {
	Carts     *cart.Service
	Customers CustomerLookup
	Orders    OrderPlacer
	Invoices  InvoiceGenerator
	Events    mykafka.Publisher
	Topic     string
}

func (s *Service) Checkout(ctx context.Context, customerID uint, idemKey string) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "customer_id", customerID)

	cust, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c, err := s.Carts.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c.IsCompany = cust.IsCompany()

	snap := c.Snapshot()
	rec, err := s.Orders.PlaceOrder(ctx, snap, idemKey)
	if err != nil {
		l.Warn("checkout_failed", "error", err)
		return nil, err
	}

	res := &Result{Receipt: rec}
	for _, id := range rec.Dropped {
		res.Warnings = append(res.Warnings, fmt.Sprintf("product %d is no longer available and was not ordered", id))
	}

	if s.Invoices != nil {
		doc, err := s.Invoices.Generate(ctx, rec.OrderID)
		switch {
		case err != nil:
			l.Warn("invoice_failed", "order_id", rec.OrderID, "error", err)
			res.Warnings = append(res.Warnings, "invoice could not be generated; it can be requested again later")
		default:
			res.Invoice = &doc
			if doc.WriteErr != nil {
				res.Warnings = append(res.Warnings, "invoice could not be stored; it can be requested again later")
			}
		}
	}

	if rec.Existed {
		l.Info("checkout_replayed", "order_id", rec.OrderID)
		return res, nil
	}

	if err := s.Carts.RemoveOrdered(ctx, customerID, snap.Lines); err != nil {
		l.Warn("cart_clear_failed", "order_id", rec.OrderID, "error", err)
		res.Warnings = append(res.Warnings, "cart could not be cleared")
	}
	s.publish(ctx, rec)

	l.Info("checkout_completed", "order_id", rec.OrderID, "warnings", len(res.Warnings))
	return res, nil
}

func (s *Service) publish(ctx context.Context, rec *orders.Receipt) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = mykafka.TopicOrderEvents
	}

	key := strconv.FormatUint(uint64(rec.CustomerID), 10)
	env, err := mykafka.NewEnvelope(mykafka.EventOrderCreated, strconv.FormatUint(uint64(rec.OrderID), 10), OrderCreated{
		OrderID:    rec.OrderID,
		CustomerID: rec.CustomerID,
		OrderDate:  rec.OrderDate,
		IsCompany:  rec.IsCompany,
		Total:      rec.Total,
		Lines:      rec.Lines,
	})
	if err == nil {
		err = s.Events.PublishEvent(ctx, topic, key, env)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "event", mykafka.EventOrderCreated, "order_id", rec.OrderID, "error", err)
	}
}

// Preview prices the cart with the discount of the customer's kind.
func (s *Service) Preview(ctx context.Context, customerID uint) (*cart.Preview, error) {
	cust, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.Carts.Preview(ctx, customerID, cust.IsCompany())
}

// Retryable reports whether a failed checkout may be retried unchanged.
func Retryable(err error) bool {
	return errors.Is(err, orders.ErrTransient)
}
