package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/db/dbtest"
	"github.com/Skotchmaster/shop_orders/internal/models"
)

func TestService_Flow(t *testing.T) {
	gdb := dbtest.New(t)
	svc := &Service{Store: NewMemoryStore(), Catalog: catalog.NewGormRepo(gdb)}
	ctx := context.Background()

	p2 := dbtest.Product(t, gdb, "Two", "10.00")
	p5 := dbtest.Product(t, gdb, "Five", "25.00")

	_, err := svc.Add(ctx, 1, p2.ID, 3)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, p5.ID, 1)
	require.NoError(t, err)

	_, err = svc.Add(ctx, 1, 404, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, err = svc.Add(ctx, 1, p2.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Add(ctx, 1, p2.ID, MaxQuantity)
	assert.ErrorIs(t, err, ErrInvalidQuantity, "3 already in cart")
	_, err = svc.SetQuantity(ctx, 1, p2.ID, MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	preview, err := svc.Preview(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, "55.00", preview.Subtotal.StringFixed(2))
	assert.Equal(t, "52.25", preview.Total.StringFixed(2))
	assert.Equal(t, "2.75", preview.Discount.StringFixed(2))

	// product deleted after it was added
	require.NoError(t, gdb.Delete(&models.Product{}, p5.ID).Error)
	preview, err = svc.Preview(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "30.00", preview.Total.StringFixed(2))
	assert.Equal(t, []uint{p5.ID}, preview.Missing)

	removed, c, err := svc.Remove(ctx, 1, p5.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, c.Len())

	removed, _, err = svc.Remove(ctx, 1, p5.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	c, err = svc.SetQuantity(ctx, 1, p2.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	_, err = svc.Add(ctx, 1, p2.ID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, 1))
	c, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestService_RemoveOrdered(t *testing.T) {
	gdb := dbtest.New(t)
	store := NewMemoryStore()
	svc := &Service{Store: store, Catalog: catalog.NewGormRepo(gdb)}
	ctx := context.Background()
	p2 := dbtest.Product(t, gdb, "Two", "10.00")

	_, err := svc.Add(ctx, 1, p2.ID, 3)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveOrdered(ctx, 1, []Line{{ProductID: p2.ID, Quantity: 1}}))
	c, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Lines[p2.ID])

	require.NoError(t, svc.RemoveOrdered(ctx, 1, []Line{{ProductID: p2.ID, Quantity: 2}}))
	c, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}
