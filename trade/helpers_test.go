package trade_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cocoatrade/purchase-engine/store/sqlstore"
	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	eng   *trade.Engine
	store *sqlstore.Store
	clock *testClock
	ctx   context.Context
}

// testClock advances one second per call so created_at ordering is
// deterministic. jump moves it to another point in time.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) jump(to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = to
}

func newFixture(t *testing.T) *fixture {
	return newFixtureAt(t, time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC))
}

func newFixtureAt(t *testing.T, start time.Time) *fixture {
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: start}
	return &fixture{
		eng:   trade.NewEngine(store, trade.WithClock(clock.Now)),
		store: store,
		clock: clock,
		ctx:   context.Background(),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

var docSeq int

// nextDocument returns a fresh 11-digit CPF-shaped document.
func nextDocument() string {
	docSeq++
	return fmt.Sprintf("%011d", docSeq)
}

func (f *fixture) supplier(t *testing.T) *trade.Supplier {
	t.Helper()
	sup, err := f.eng.Suppliers.Create(f.ctx, trade.SupplierInput{
		Name:        "Fazenda Boa Vista",
		TaxDocument: nextDocument(),
	})
	require.NoError(t, err)
	return sup
}

func (f *fixture) ticket(t *testing.T, supplierID string, gross, net string) *trade.Ticket {
	t.Helper()
	tk, err := f.eng.Tickets.Create(f.ctx, trade.TicketInput{
		SupplierID:  supplierID,
		GrossWeight: dec(gross),
		NetWeight:   dec(net),
	})
	require.NoError(t, err)
	return tk
}

// purchase converts a fresh 120/115 kg ticket at the given price per arroba.
func (f *fixture) purchase(t *testing.T, supplierID, pricePerArroba string) *trade.Purchase {
	t.Helper()
	tk := f.ticket(t, supplierID, "120", "115")
	p, err := f.eng.Purchases.Convert(f.ctx, trade.ConvertInput{
		TicketID: tk.ID,
		Price:    dec(pricePerArroba),
		Unit:     trade.UnitArroba,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) pay(t *testing.T, purchaseID, amount string) *trade.Payment {
	t.Helper()
	pay, _, err := f.eng.Payments.Create(f.ctx, trade.PaymentInput{
		PurchaseID: purchaseID,
		Amount:     dec(amount),
		Method:     trade.MethodPix,
	})
	require.NoError(t, err)
	return pay
}

func (f *fixture) balance(t *testing.T, supplierID string) decimal.Decimal {
	t.Helper()
	sup, err := f.eng.Suppliers.Get(f.ctx, supplierID)
	require.NoError(t, err)
	return sup.Balance
}
