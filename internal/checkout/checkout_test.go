package checkout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/customers"
	"github.com/Skotchmaster/shop_orders/internal/db/dbtest"
	"github.com/Skotchmaster/shop_orders/internal/invoice"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/mykafka"
	"github.com/Skotchmaster/shop_orders/internal/mykafka/kafkatest"
	"github.com/Skotchmaster/shop_orders/internal/orders"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	events  *kafkatest.Recorder
	gen     *invoice.Generator
	company models.Customer
	private models.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	dbtest.ProductWithID(t, gdb, 2, "Two", "10.00")
	dbtest.ProductWithID(t, gdb, 5, "Five", "25.00")

	cat := catalog.NewGormRepo(gdb)
	custRepo := &customers.GormRepo{DB: gdb}
	gen := &invoice.Generator{Orders: &orders.Repo{DB: gdb}, Customers: custRepo, Dir: t.TempDir()}
	events := &kafkatest.Recorder{}

	return &fixture{
		db:     gdb,
		events: events,
		gen:    gen,
		svc: &Service{
			Carts:     &cart.Service{Store: cart.NewMemoryStore(), Catalog: cat},
			Customers: custRepo,
			Orders:    &orders.Writer{DB: gdb, Catalog: cat},
			Invoices:  gen,
			Events:    events,
		},
		company: dbtest.Customer(t, gdb, "acme@example.com", models.KindCompany),
		private: dbtest.Customer(t, gdb, "jane@example.com", models.KindPrivate),
	}
}

func (f *fixture) fill(t *testing.T, customerID uint, lines map[uint]int) {
	t.Helper()
	for pid, qty := range lines {
		_, err := f.svc.Carts.Add(context.Background(), customerID, pid, qty)
		require.NoError(t, err)
	}
}

func TestCheckout_Company(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, f.company.ID, map[uint]int{2: 3, 5: 1})

	preview, err := f.svc.Preview(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "52.25", preview.Total.StringFixed(2))

	res, err := f.svc.Checkout(ctx, f.company.ID, "")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "52.25", res.Receipt.Total.StringFixed(2))
	assert.True(t, res.Receipt.IsCompany)

	require.NotNil(t, res.Invoice)
	assert.Equal(t, "55.00", res.Invoice.Invoice.Subtotal.StringFixed(2))
	assert.Equal(t, "2.75", res.Invoice.Invoice.Discount.StringFixed(2))
	assert.FileExists(t, res.Invoice.Path)

	c, err := f.svc.Carts.Get(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Zero(t, c.Len(), "cart cleared after commit")

	msgs := f.events.Messages(mykafka.TopicOrderEvents)
	require.Len(t, msgs, 1)
	assert.Equal(t, mykafka.EventOrderCreated, msgs[0].Envelope.EventType)
	payload, err := mykafka.UnwrapPayload[OrderCreated](msgs[0].Envelope)
	require.NoError(t, err)
	assert.Equal(t, res.Receipt.OrderID, payload.OrderID)
	assert.Equal(t, "52.25", payload.Total.StringFixed(2))
	assert.Len(t, payload.Lines, 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), f.private.ID, "")
	require.ErrorIs(t, err, orders.ErrEmptyCart)
	assert.Empty(t, f.events.Messages(mykafka.TopicOrderEvents))
}

func TestCheckout_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), 999, "")
	assert.ErrorIs(t, err, customers.ErrCustomerNotFound)
}

type failingPlacer struct{ err error }

func (p failingPlacer) PlaceOrder(context.Context, cart.Snapshot, string) (*orders.Receipt, error) {
	return nil, p.err
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, f.private.ID, map[uint]int{2: 1})
	f.svc.Orders = failingPlacer{err: &orders.CommitError{Op: "commit", Retryable: true, Err: errors.New("connection reset")}}

	_, err := f.svc.Checkout(ctx, f.private.ID, "")
	require.Error(t, err)
	assert.True(t, Retryable(err))

	c, err := f.svc.Carts.Get(ctx, f.private.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Empty(t, f.events.Messages(mykafka.TopicOrderEvents))
}

func TestCheckout_Replay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, f.private.ID, map[uint]int{2: 1})

	first, err := f.svc.Checkout(ctx, f.private.ID, "click")
	require.NoError(t, err)

	// the customer starts a new cart before the retry arrives
	f.fill(t, f.private.ID, map[uint]int{5: 2})

	again, err := f.svc.Checkout(ctx, f.private.ID, "click")
	require.NoError(t, err)
	assert.True(t, again.Receipt.Existed)
	assert.Equal(t, first.Receipt.OrderID, again.Receipt.OrderID)

	c, err := f.svc.Carts.Get(ctx, f.private.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(), "new cart survives a replay")
	assert.Len(t, f.events.Messages(mykafka.TopicOrderEvents), 1)
}

func TestCheckout_DegradedSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, f.private.ID, map[uint]int{2: 1, 5: 1})
	require.NoError(t, f.db.Delete(&models.Product{}, 5).Error)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.gen.Dir = blocker
	f.events.Err = errors.New("broker down")

	res, err := f.svc.Checkout(ctx, f.private.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, res.Receipt.Dropped)
	assert.Len(t, res.Warnings, 2)
	require.NotNil(t, res.Invoice)
	assert.Error(t, res.Invoice.WriteErr)

	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	c, err := f.svc.Carts.Get(ctx, f.private.ID)
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

// placerFunc lets a test act between the snapshot and the cart cleanup.
type placerFunc func(context.Context, cart.Snapshot, string) (*orders.Receipt, error)

func (f placerFunc) PlaceOrder(ctx context.Context, snap cart.Snapshot, key string) (*orders.Receipt, error) {
	return f(ctx, snap, key)
}

func TestCheckout_KeepsItemsAddedDuringCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, f.private.ID, map[uint]int{2: 1})

	writer := f.svc.Orders
	f.svc.Orders = placerFunc(func(ctx context.Context, snap cart.Snapshot, key string) (*orders.Receipt, error) {
		// another tab edits the cart while the order commits
		f.fill(t, f.private.ID, map[uint]int{2: 2, 5: 1})
		return writer.PlaceOrder(ctx, snap, key)
	})

	res, err := f.svc.Checkout(ctx, f.private.ID, "")
	require.NoError(t, err)
	require.Len(t, res.Receipt.Lines, 1)
	assert.Equal(t, 1, res.Receipt.Lines[0].Quantity)

	c, err := f.svc.Carts.Get(ctx, f.private.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{2: 2, 5: 1}, c.Lines)
}
