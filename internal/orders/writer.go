package orders

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/money"
)

const maxIdempotencyKeyLen = 128

// TxCatalog hands out readers bound to the order transaction.
type TxCatalog interface {
	WithTx(tx *gorm.DB) catalog.Reader
}

// IdempotencyCache is a fast path in front of the unique key on orders.
type IdempotencyCache interface {
	Lookup(ctx context.Context, key string) (uint, bool, error)
	Remember(ctx context.Context, key string, orderID uint) error
}

type Writer struct {
	DB      *gorm.DB
	Catalog TxCatalog
	Idem    IdempotencyCache
	Now     func() time.Time
}

// PlaceOrder turns a cart snapshot into one order header and its lines in a
// single transaction. Prices come from the catalog at this moment; lines
// whose product no longer resolves are dropped and reported in
// Receipt.Dropped. A repeated idemKey returns the first order unchanged.
func (w *Writer) PlaceOrder(ctx context.Context, snap cart.Snapshot, idemKey string) (*Receipt, error) {
	l := logging.FromContext(ctx).With("svc", "orders.place_order", "customer_id", snap.CustomerID)

	// without a key there is nothing to replay, so the cart is checked first
	if idemKey == "" && len(snap.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if snap.CustomerID == 0 {
		return nil, ErrMissingCustomer
	}
	if len(idemKey) > maxIdempotencyKeyLen {
		return nil, fmt.Errorf("%w: idempotency key longer than %d", ErrValidation, maxIdempotencyKeyLen)
	}

	// a replay is answered before the cart is looked at; the cart of a
	// completed checkout is usually empty by then
	var digest *string
	if idemKey != "" {
		d := idempotencyDigest(snap.CustomerID, idemKey)
		digest = &d

		rec, err := w.existing(ctx, l, d)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			l.Info("order_replayed", "order_id", rec.OrderID)
			return rec, nil
		}
	}

	if err := validateLines(snap.Lines); err != nil {
		return nil, err
	}

	var rec *Receipt
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := w.commit(ctx, tx, l, snap, digest)
		if err != nil {
			return err
		}
		rec = r
		return nil
	}, w.txOptions()...)
	if err != nil {
		if errors.Is(err, ErrNoValidItems) {
			l.Warn("place_order_rejected", "reason", "no valid items", "error", err)
			return nil, err
		}
		if digest != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent attempt with the same key committed first
			if prev, lookupErr := w.existingFromDB(ctx, *digest); lookupErr == nil && prev != nil {
				l.Info("order_replayed", "order_id", prev.OrderID, "reason", "concurrent duplicate")
				return prev, nil
			}
		}

		cerr := classify("commit", err)
		var ce *CommitError
		errors.As(cerr, &ce)
		l.Error("place_order_failed", "retryable", ce.Retryable, "error", err)
		return nil, cerr
	}

	if w.Idem != nil && digest != nil {
		if err := w.Idem.Remember(ctx, *digest, rec.OrderID); err != nil {
			l.Warn("idempotency_cache_write_failed", "order_id", rec.OrderID, "error", err)
		}
	}

	l.Info("order_committed",
		"order_id", rec.OrderID,
		"lines", len(rec.Lines),
		"dropped", len(rec.Dropped),
		"total", money.Format(rec.Total),
	)
	return rec, nil
}

func validateLines(lines []cart.Line) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}

	seen := make(map[uint]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 || line.Quantity > cart.MaxQuantity {
			return fmt.Errorf("%w: product %d has quantity %d", ErrValidation, line.ProductID, line.Quantity)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: product %d listed twice", ErrValidation, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func (w *Writer) commit(ctx context.Context, tx *gorm.DB, l *slog.Logger, snap cart.Snapshot, digest *string) (*Receipt, error) {
	reader := w.Catalog.WithTx(tx)

	rec := &Receipt{
		CustomerID: snap.CustomerID,
		IsCompany:  snap.IsCompany,
		Subtotal:   decimal.Zero,
	}
	items := make([]models.OrderItem, 0, len(snap.Lines))

	for _, line := range snap.Lines {
		p, err := reader.Product(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			l.Warn("order_line_dropped", "product_id", line.ProductID, "reason", "product not in catalog")
			rec.Dropped = append(rec.Dropped, line.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}

		lt := money.LineTotal(p.Price, line.Quantity)
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
		rec.Lines = append(rec.Lines, ReceiptLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			LineTotal: lt,
		})
		rec.Subtotal = rec.Subtotal.Add(lt)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: dropped %v", ErrNoValidItems, rec.Dropped)
	}

	rec.Total = money.Total(rec.Subtotal, snap.IsCompany)
	rec.Discount = money.Discount(rec.Subtotal, rec.Total)
	rec.OrderDate = w.now()

	order := models.Order{
		CustomerID:     snap.CustomerID,
		OrderDate:      rec.OrderDate,
		Total:          rec.Total,
		IsCompany:      snap.IsCompany,
		IdempotencyKey: digest,
	}
	if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, err
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		return nil, err
	}

	rec.OrderID = order.ID
	return rec, nil
}

func (w *Writer) existing(ctx context.Context, l *slog.Logger, digest string) (*Receipt, error) {
	if w.Idem != nil {
		id, ok, err := w.Idem.Lookup(ctx, digest)
		switch {
		case err != nil:
			l.Warn("idempotency_cache_read_failed", "error", err)
		case ok:
			rec, err := (&Repo{DB: w.DB}).Get(ctx, id)
			if err == nil {
				rec.Existed = true
				return rec, nil
			}
			l.Warn("idempotency_cache_stale", "order_id", id, "error", err)
		}
	}
	return w.existingFromDB(ctx, digest)
}

func (w *Writer) existingFromDB(ctx context.Context, digest string) (*Receipt, error) {
	var o models.Order
	err := w.DB.WithContext(ctx).Select("id").Where("idempotency_key = ?", digest).Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("idempotency lookup", err)
	}

	rec, err := (&Repo{DB: w.DB}).Get(ctx, o.ID)
	if err != nil {
		return nil, classify("idempotency lookup", err)
	}
	rec.Existed = true
	return rec, nil
}

func (w *Writer) txOptions() []*sql.TxOptions {
	if w.DB.Dialector.Name() == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelReadCommitted}}
	}
	return nil
}

func (w *Writer) now() time.Time {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	// postgres keeps microseconds
	return now().UTC().Truncate(time.Microsecond)
}

// idempotencyDigest scopes a client key to its customer.
func idempotencyDigest(customerID uint, key string) string {
	sum := sha256.Sum256([]byte(strconv.FormatUint(uint64(customerID), 10) + ":" + key))
	return hex.EncodeToString(sum[:])
}
