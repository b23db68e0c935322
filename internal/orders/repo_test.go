package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/models"
)

func TestRepo_GetForCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.writer.PlaceOrder(ctx, f.snapshot(f.private, cart.Line{ProductID: 5, Quantity: 2}), "")
	require.NoError(t, err)

	got, err := f.repo.GetForCustomer(ctx, f.private.ID, rec.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Five", got.Lines[0].Name)
	assert.Equal(t, "50.00", got.Lines[0].LineTotal.StringFixed(2))

	_, err = f.repo.GetForCustomer(ctx, f.company.ID, rec.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.repo.Get(ctx, 4242)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepo_NamesSurviveProductDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.writer.PlaceOrder(ctx, f.snapshot(f.private, cart.Line{ProductID: 2, Quantity: 1}), "")
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&models.Product{}, 2).Error)

	got, err := f.repo.Get(ctx, rec.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Two", got.Lines[0].Name)
}

func TestRepo_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.writer.Now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	first, err := f.writer.PlaceOrder(ctx, f.snapshot(f.company, cart.Line{ProductID: 2, Quantity: 3}, cart.Line{ProductID: 5, Quantity: 1}), "")
	require.NoError(t, err)
	second, err := f.writer.PlaceOrder(ctx, f.snapshot(f.company, cart.Line{ProductID: 2, Quantity: 1}), "")
	require.NoError(t, err)
	_, err = f.writer.PlaceOrder(ctx, f.snapshot(f.private, cart.Line{ProductID: 2, Quantity: 1}), "")
	require.NoError(t, err)

	h, err := f.repo.History(ctx, f.company.ID)
	require.NoError(t, err)

	require.Equal(t, 2, h.Count)
	assert.Equal(t, second.OrderID, h.Orders[0].OrderID, "newest first")
	assert.Equal(t, first.OrderID, h.Orders[1].OrderID)
	assert.Equal(t, "65.00", h.Subtotal.StringFixed(2))
	assert.Equal(t, "61.75", h.Total.StringFixed(2))
	assert.Equal(t, "3.25", h.Discount.StringFixed(2))

	empty, err := f.repo.History(ctx, 777)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.True(t, empty.Total.IsZero())
}

func TestRepo_ListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.writer.PlaceOrder(ctx, f.snapshot(f.private, cart.Line{ProductID: 2, Quantity: i + 1}), fmt.Sprintf("k-%d", i))
		require.NoError(t, err)
	}

	total, list, err := f.repo.ListOrders(ctx, f.private.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)

	_, list, err = f.repo.ListOrders(ctx, f.private.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"not null violation", &pgconn.PgError{Code: "23502"}, false},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"numeric overflow", &pgconn.PgError{Code: "22003"}, false},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, false},
		{"with check option", &pgconn.PgError{Code: "44000"}, false},
		{"internal error", &pgconn.PgError{Code: "XX000"}, false},
		{"foreign key", fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated), false},
		{"check constraint", gorm.ErrCheckConstraintViolated, false},
		{"product vanished", catalog.ErrProductNotFound, false},
		{"unknown", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("commit", tt.err)

			var ce *CommitError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.retryable, ce.Retryable)
			assert.ErrorIs(t, err, tt.err)
			if tt.retryable {
				assert.ErrorIs(t, err, ErrTransient)
			} else {
				assert.ErrorIs(t, err, ErrStructural)
			}
		})
	}

	assert.NoError(t, classify("commit", nil))
	wrapped := classify("commit", errors.New("x"))
	assert.Same(t, wrapped, classify("again", wrapped))
}
