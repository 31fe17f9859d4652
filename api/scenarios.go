/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	cocoa-buying data for demos and frontend development. Every record goes
	through the trade engine, so balances, ledger entries and payment
	statuses are exactly what real usage would produce.

AVAILABLE SCENARIOS:

	harvest-week:     Three suppliers mid-harvest: one purchase paid, one
	                  partially paid, one unpaid, two tickets still on the scale
	opening-balances: Suppliers migrated with balances owed, a manual
	                  adjustment, and a purchase repriced before payment
	settled-season:   Every purchase paid off in installments, followed by
	                  a clean reconciliation run

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create suppliers
 3. Record tickets
 4. Convert tickets into purchases
 5. Record payments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "harvest-week"}

NOTE:

	Scenarios reset the database. They are refused when APP_ENV=production.

SEE ALSO:
  - handlers.go: Handler
  - trade/engine.go: Services used by the loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "harvest-week",
		Name:        "Harvest Week",
		Description: "Three suppliers with paid, partial and unpaid purchases plus tickets awaiting a price",
	},
	{
		ID:          "opening-balances",
		Name:        "Opening Balances",
		Description: "Suppliers carried over with amounts owed, a manual adjustment and a repriced purchase",
	},
	{
		ID:          "settled-season",
		Name:        "Settled Season",
		Description: "All purchases paid in installments, followed by a clean reconciliation run",
	},
}

var scenarioLoaders = map[string]func(*Handler, context.Context) error{
	"harvest-week":     (*Handler).loadHarvestWeekScenario,
	"opening-balances": (*Handler).loadOpeningBalancesScenario,
	"settled-season":   (*Handler).loadSettledSeasonScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Production {
		writeError(w, http.StatusForbidden, "Scenarios are disabled in production", nil)
		return
	}

	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.DB.Reset(ctx); err != nil {
		h.fail(w, r, fmt.Errorf("reset database: %w", err))
		return
	}
	if err := load(h, ctx); err != nil {
		h.fail(w, r, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Production {
		writeError(w, http.StatusForbidden, "Reset is disabled in production", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.DB.Reset(r.Context()); err != nil {
		h.fail(w, r, fmt.Errorf("reset database: %w", err))
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadHarvestWeekScenario(ctx context.Context) error {
	s := &seeder{ctx: ctx, eng: h.Engine}

	boaVista := s.supplier("Fazenda Boa Vista", "12.345.678/0001-90", "Ilhéus", "0")
	saoJorge := s.supplier("Sítio São Jorge", "529.982.247-25", "Uruçuca", "0")
	coop := s.supplier("Cooperativa Vale do Jequiriçá", "11.222.333/0001-81", "Mutuípe", "0")

	// 600 kg at 300/@ = 12000, settled by PIX
	p1 := s.convert(s.ticket(boaVista, "620", "600"), "300")
	s.pay(p1, "12000", trade.MethodPix)

	// 298.5 kg at 285/@ = 5671.50, two installments so far
	p2 := s.convert(s.ticket(saoJorge, "310", "298.5"), "285")
	s.pay(p2, "2000", trade.MethodCash)
	s.pay(p2, "1500", trade.MethodPix)

	// 1500 kg at 290/@ = 29000, unpaid
	s.convert(s.ticket(coop, "1540", "1500"), "290")

	// still on the scale, waiting for a price
	s.ticket(coop, "820", "800")
	s.ticket(saoJorge, "150", "146")

	return s.err
}

func (h *Handler) loadOpeningBalancesScenario(ctx context.Context) error {
	s := &seeder{ctx: ctx, eng: h.Engine}

	almeida := s.supplier("Almeida & Filhos", "45.723.174/0001-10", "Itabuna", "3500")
	santana := s.supplier("Roça Santana", "111.444.777-35", "Camacan", "0")

	// owed amount corrected after a paper ledger was found
	s.setBalance(almeida, "3250")

	// priced per kg on the scale, then renegotiated per arroba before any payment
	p := s.convertByKg(s.ticket(santana, "415", "400"), "19.5")
	s.reprice(p, "310")
	s.pay(p, "4000", trade.MethodTransfer)

	s.convert(s.ticket(almeida, "205", "200"), "295")

	return s.err
}

func (h *Handler) loadSettledSeasonScenario(ctx context.Context) error {
	s := &seeder{ctx: ctx, eng: h.Engine}

	oliveira := s.supplier("Fazenda Oliveira", "04.252.011/0001-10", "Gandu", "0")
	pereira := s.supplier("Sítio Pereira", "390.533.447-05", "Ibirapitanga", "0")

	// 450 kg at 300/@ = 9000
	p1 := s.convert(s.ticket(oliveira, "470", "450"), "300")
	s.pay(p1, "3000", trade.MethodPix)
	s.pay(p1, "3000", trade.MethodPix)
	s.pay(p1, "3000", trade.MethodTransfer)

	// 225 kg at 280/@ = 4200
	p2 := s.convert(s.ticket(pereira, "232", "225"), "280")
	s.pay(p2, "1200", trade.MethodCash)
	s.pay(p2, "3000", trade.MethodCheck)

	if s.err != nil {
		return s.err
	}
	_, err := h.Engine.Reconciler.Reconcile(ctx)
	return err
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder drives the engine for the loaders. After the first failure every
// call is a no-op and err holds the cause.
type seeder struct {
	ctx context.Context
	eng *trade.Engine
	err error
}

func (s *seeder) supplier(name, doc, city, opening string) *trade.Supplier {
	if s.err != nil {
		return nil
	}
	sup, err := s.eng.Suppliers.Create(s.ctx, trade.SupplierInput{
		Name:           name,
		TaxDocument:    doc,
		Address:        &trade.Address{City: city, State: "BA"},
		OpeningBalance: decimal.RequireFromString(opening),
	})
	s.err = err
	return sup
}

func (s *seeder) setBalance(sup *trade.Supplier, balance string) {
	if s.err != nil {
		return
	}
	b := decimal.RequireFromString(balance)
	_, s.err = s.eng.Suppliers.Update(s.ctx, sup.ID, trade.SupplierUpdate{Balance: &b})
}

func (s *seeder) ticket(sup *trade.Supplier, gross, net string) *trade.Ticket {
	if s.err != nil {
		return nil
	}
	t, err := s.eng.Tickets.Create(s.ctx, trade.TicketInput{
		SupplierID:  sup.ID,
		GrossWeight: decimal.RequireFromString(gross),
		NetWeight:   decimal.RequireFromString(net),
	})
	s.err = err
	return t
}

func (s *seeder) convert(t *trade.Ticket, perArroba string) *trade.Purchase {
	if s.err != nil {
		return nil
	}
	p, err := s.eng.Purchases.Convert(s.ctx, trade.ConvertInput{
		TicketID: t.ID,
		Price:    decimal.RequireFromString(perArroba),
		Unit:     trade.UnitArroba,
	})
	s.err = err
	return p
}

func (s *seeder) convertByKg(t *trade.Ticket, perKg string) *trade.Purchase {
	if s.err != nil {
		return nil
	}
	p, err := s.eng.Tickets.Convert(s.ctx, t.ID, decimal.RequireFromString(perKg), trade.UnitKg, "")
	s.err = err
	return p
}

func (s *seeder) reprice(p *trade.Purchase, perArroba string) {
	if s.err != nil {
		return
	}
	price := decimal.RequireFromString(perArroba)
	_, s.err = s.eng.Purchases.Update(s.ctx, p.ID, trade.PurchaseUpdate{PricePerArroba: &price})
}

func (s *seeder) pay(p *trade.Purchase, amount string, method trade.PaymentMethod) {
	if s.err != nil {
		return
	}
	_, _, s.err = s.eng.Payments.Create(s.ctx, trade.PaymentInput{
		PurchaseID: p.ID,
		Amount:     decimal.RequireFromString(amount),
		Method:     method,
	})
}
