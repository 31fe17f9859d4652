/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Suppliers, tickets and purchases are created
	- Payment statuses and supplier balances match the story
	- Loading twice starts from a clean database

These tests also act as integration tests for the trade engine.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_HarvestWeek(t *testing.T) {
	// GIVEN: The harvest-week scenario
	// WHEN: Loading it
	// THEN: One purchase of each payment status and two tickets awaiting a price
	ts := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.h.loadHarvestWeekScenario(ctx))

	d, err := ts.h.Engine.Reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Suppliers)
	assert.Equal(t, 2, d.TicketsPending)
	assert.Equal(t, 3, d.TicketsConverted)
	assert.Equal(t, 1, d.PurchasesByStatus[trade.PaymentPaid])
	assert.Equal(t, 1, d.PurchasesByStatus[trade.PaymentPartial])
	assert.Equal(t, 1, d.PurchasesByStatus[trade.PaymentPending])
	// 12000 + 5671.50 + 29000
	assertDec(t, "46671.5", d.TotalPurchased)
	assertDec(t, "15500", d.TotalPaid)
	assertDec(t, "31171.5", d.SupplierBalance)

	available, err := ts.h.Engine.Tickets.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)
}

func TestScenario_OpeningBalances(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.h.loadOpeningBalancesScenario(ctx))

	suppliers, _, err := ts.h.Engine.Suppliers.List(ctx, trade.SupplierFilter{Search: "almeida"})
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	// 3250 after the correction, plus 200 kg at 295/@
	assertDec(t, "7183.33", suppliers[0].Balance)

	st, err := ts.h.Engine.Suppliers.Statement(ctx, suppliers[0].ID)
	require.NoError(t, err)
	require.Len(t, st.Lines, 3)
	assert.Equal(t, trade.EntryOpening, st.Lines[0].Entry.Kind)
	assert.Equal(t, trade.EntryAdjustment, st.Lines[1].Entry.Kind)
	assertDec(t, "-250", st.Lines[1].Entry.Delta)

	// repriced from 292.50/@ to 310/@ before the first payment
	partial, _, err := ts.h.Engine.Purchases.List(ctx, trade.PurchaseFilter{PaymentStatus: trade.PaymentPartial})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assertDec(t, "8266.67", partial[0].TotalValue)
	assertDec(t, "4266.67", partial[0].Remaining())
}

func TestScenario_SettledSeason(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.h.loadSettledSeasonScenario(ctx))

	d, err := ts.h.Engine.Reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.PurchasesByStatus[trade.PaymentPaid])
	assertDec(t, "0", d.TotalOutstanding)
	assertDec(t, "0", d.SupplierBalance)

	runs, err := ts.h.Engine.Reconciler.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].StatusesRepaired)
	assert.Zero(t, runs[0].BalancesRepaired)
}

func TestScenario_LoadViaAPIResetsFirst(t *testing.T) {
	// GIVEN: A database that already holds data
	// WHEN: Loading the same scenario twice through the API
	// THEN: The second load replaces the first instead of conflicting
	ts := setupTestServer(t)
	ts.supplier(t, "98765432000198")

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "harvest-week"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	page := decode[ListResponse[SupplierDTO]](t, ts.do(t, http.MethodGet, "/api/fornecedores", nil))
	assert.Equal(t, 3, page.Pagination.Total)

	current := decode[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "harvest-week", current.ID)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_RefusedInProduction(t *testing.T) {
	ts := setupTestServer(t)
	ts.h.Production = true

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "harvest-week"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
