/*
purchases.go - Purchase reconciliation engine

PURPOSE:
  Converts a PENDING ticket into a purchase at a given price, keeps the
  derived totals in step with the price, and guards the purchase once money
  has been paid against it.

PRICE UNITS:
  Prices arrive either per arroba (15 kg) or per kg. Convert takes an
  explicit unit and normalises at the boundary:

    pricePerKg = pricePerArroba / 15
    totalValue = round2(netWeight * pricePerArroba / 15)

  Example: net 115 kg at 300/arroba -> 20/kg -> total 2300.00

STATUS DERIVATION (ComputePaymentStatus):
  paid >= total      -> PAID
  0 < paid < total   -> PARTIAL
  paid == 0          -> PENDING

ATOMICITY:
  Every mutation (convert, reprice, delete) runs in a single WithTx call:
  purchase row, ticket status and supplier ledger commit together or not at
  all. There are no compensating deletes.

SEE ALSO:
  - payments.go: The only writer of PaymentStatus after creation
  - tickets.go:  Ticket side of the conversion
*/
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseEngine owns conversion, repricing and deletion of purchases.
type PurchaseEngine struct {
	*base
}

// ConvertInput is the single conversion entry point. Price is quoted in Unit.
type ConvertInput struct {
	TicketID string
	Price    decimal.Decimal
	Unit     PriceUnit
	Notes    string
}

// PurchaseUpdate applies only non-nil fields. At most one price field may be set.
// Fixed names any other fields the caller sent; they are always rejected.
type PurchaseUpdate struct {
	Notes          *string
	PricePerArroba *decimal.Decimal
	PricePerKg     *decimal.Decimal
	Fixed          []string
}

func (u PurchaseUpdate) touchesPrice() bool {
	return u.PricePerArroba != nil || u.PricePerKg != nil
}

// locked reports every field other than notes.
func (u PurchaseUpdate) locked(code string) Violations {
	v := Violations{}
	if u.PricePerArroba != nil {
		v.add("pricePerArroba", code)
	}
	if u.PricePerKg != nil {
		v.add("pricePerKg", code)
	}
	for _, f := range u.Fixed {
		v.add(f, code)
	}
	return v
}

// =============================================================================
// PURE CALCULATIONS
// =============================================================================

// NormalizePrice returns the price per arroba and per kg for a quoted price.
func NormalizePrice(price decimal.Decimal, unit PriceUnit) (perArroba, perKg decimal.Decimal, err error) {
	v := Violations{}
	Positive("price", price, v)
	if unit == "" {
		v.add("unit", CodeRequired)
	}
	OneOf("unit", unit, []PriceUnit{UnitArroba, UnitKg}, v)
	if err := v.Err("invalid price"); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	switch unit {
	case UnitKg:
		return price.Mul(KgPerArroba), price, nil
	default:
		return price, price.Div(KgPerArroba).Round(6), nil
	}
}

// TotalValue prices a net weight, rounded to cents.
func TotalValue(netWeight, pricePerArroba decimal.Decimal) decimal.Decimal {
	return netWeight.Mul(pricePerArroba).Div(KgPerArroba).Round(2)
}

// ComputePaymentStatus derives the payment status from the amount paid.
func ComputePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// =============================================================================
// CONVERSION
// =============================================================================

// Convert turns a PENDING ticket into a purchase and flips the ticket to
// CONVERTED. The supplier balance grows by the purchase total.
func (e *PurchaseEngine) Convert(ctx context.Context, in ConvertInput) (*Purchase, error) {
	if err := CheckID("ticketId", in.TicketID); err != nil {
		return nil, err
	}
	perArroba, perKg, err := NormalizePrice(in.Price, in.Unit)
	if err != nil {
		return nil, err
	}
	nv := Violations{}
	MaxLen("notes", in.Notes, MaxNotesLen, nv)
	if err := nv.Err("invalid purchase"); err != nil {
		return nil, err
	}

	var p *Purchase
	err = e.store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTicket(ctx, in.TicketID)
		if err != nil {
			return fmt.Errorf("load ticket: %w", err)
		}
		if t == nil {
			return notFound("ticket", in.TicketID)
		}
		existing, err := s.GetPurchaseByTicket(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("load ticket purchase: %w", err)
		}
		if existing != nil || t.Status == TicketConverted {
			return conflict("ticket", t.ID, "ticket already converted")
		}

		total := TotalValue(t.NetWeight, perArroba)
		if !total.IsPositive() {
			return invalid("total value must be positive")
		}

		now := e.now()
		p = &Purchase{
			ID:             newID(),
			TicketID:       t.ID,
			SupplierID:     t.SupplierID,
			PricePerArroba: perArroba,
			PricePerKg:     perKg,
			TotalValue:     total,
			PaymentStatus:  PaymentPending,
			Notes:          in.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.InsertPurchase(ctx, p); err != nil {
			if IsConflict(err) {
				return conflict("ticket", t.ID, "ticket already converted")
			}
			return fmt.Errorf("insert purchase: %w", err)
		}

		t.Status = TicketConverted
		t.UpdatedAt = now
		if err := s.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("mark ticket converted: %w", err)
		}

		if err := e.adjustBalance(ctx, s, t.SupplierID, EntryPurchaseCreated, total, p.ID, "ticket converted"); err != nil {
			return err
		}

		ts := t.Summary()
		p.Ticket = &ts
		p.Supplier = t.Supplier
		p.Payments = []Payment{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("ticket converted",
		zap.String("ticket_id", p.TicketID),
		zap.String("purchase_id", p.ID),
		zap.String("price_per_kg", p.PricePerKg.String()),
		zap.String("total_value", p.TotalValue.String()),
	)
	return p, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns the purchase with supplier, ticket and payments.
func (e *PurchaseEngine) Get(ctx context.Context, id string) (*Purchase, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	return e.load(ctx, e.store, id)
}

func (e *PurchaseEngine) load(ctx context.Context, s Store, id string) (*Purchase, error) {
	p, err := s.GetPurchase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		return nil, notFound("purchase", id)
	}
	payments, err := s.ListPaymentsByPurchase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	p.Payments = payments
	return p, nil
}

func (e *PurchaseEngine) List(ctx context.Context, f PurchaseFilter) ([]Purchase, Page, error) {
	v := Violations{}
	if f.SupplierID != "" {
		ValidUUID("supplierId", f.SupplierID, v)
	}
	OneOf("paymentStatus", f.PaymentStatus, []PaymentStatus{PaymentPending, PaymentPartial, PaymentPaid}, v)
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		v.add("dateTo", "before_date_from")
	}
	if err := v.Err("invalid purchase filter"); err != nil {
		return nil, Page{}, err
	}

	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := e.store.ListPurchases(ctx, f)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list purchases: %w", err)
	}
	if err := attachPayments(ctx, e.store, items); err != nil {
		return nil, Page{}, err
	}
	return items, NewPage(f.PageRequest, total), nil
}

func attachPayments(ctx context.Context, s Store, items []Purchase) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	byPurchase, err := s.ListPaymentsForPurchases(ctx, ids)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	for i := range items {
		items[i].Payments = byPurchase[items[i].ID]
		if items[i].Payments == nil {
			items[i].Payments = []Payment{}
		}
	}
	return nil
}

// PaymentStatusView answers "how much is left on this purchase".
type PaymentStatusView struct {
	PurchaseID       string
	TotalValue       decimal.Decimal
	TotalPaid        decimal.Decimal
	PaymentStatus    PaymentStatus
	RemainingBalance decimal.Decimal
}

func (e *PurchaseEngine) PaymentStatusOf(ctx context.Context, id string) (*PaymentStatusView, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	paid := p.TotalPaid()
	return &PaymentStatusView{
		PurchaseID:       p.ID,
		TotalValue:       p.TotalValue,
		TotalPaid:        paid,
		PaymentStatus:    ComputePaymentStatus(p.TotalValue, paid),
		RemainingBalance: p.TotalValue.Sub(paid),
	}, nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// Update edits a purchase. Once a payment exists only Notes may change, and
// any field in Fixed fails regardless.
// A changed price recomputes PricePerKg and TotalValue from the ticket.
func (e *PurchaseEngine) Update(ctx context.Context, id string, in PurchaseUpdate) (*Purchase, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	v := Violations{}
	if in.Notes != nil {
		MaxLen("notes", *in.Notes, MaxNotesLen, v)
	}
	if in.PricePerArroba != nil && in.PricePerKg != nil {
		v.add("pricePerKg", "conflicts_with_price_per_arroba")
	}
	if err := v.Err("invalid purchase"); err != nil {
		return nil, err
	}

	var out *Purchase
	err := e.store.WithTx(ctx, func(s Store) error {
		p, err := e.load(ctx, s, id)
		if err != nil {
			return err
		}

		if len(p.Payments) > 0 {
			if err := in.locked(CodeLockedByPayments).Err("only notes editable once the purchase has payments"); err != nil {
				return err
			}
		}
		if len(in.Fixed) > 0 {
			fixed := PurchaseUpdate{Fixed: in.Fixed}
			return fixed.locked(CodeNotEditable).Err("only notes and price are editable")
		}

		if in.touchesPrice() {
			price, unit := in.PricePerArroba, UnitArroba
			if in.PricePerKg != nil {
				price, unit = in.PricePerKg, UnitKg
			}
			perArroba, perKg, err := NormalizePrice(*price, unit)
			if err != nil {
				return err
			}
			if !perArroba.Equal(p.PricePerArroba) {
				if err := e.reprice(ctx, s, p, perArroba, perKg); err != nil {
					return err
				}
			}
		}

		if in.Notes != nil {
			p.Notes = *in.Notes
		}
		p.UpdatedAt = e.now()
		if err := s.UpdatePurchase(ctx, p); err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *PurchaseEngine) reprice(ctx context.Context, s Store, p *Purchase, perArroba, perKg decimal.Decimal) error {
	t, err := s.GetTicket(ctx, p.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket: %w", err)
	}
	if t == nil {
		return notFound("ticket", p.TicketID)
	}
	total := TotalValue(t.NetWeight, perArroba)
	if !total.IsPositive() {
		return invalid("total value must be positive")
	}

	delta := total.Sub(p.TotalValue)
	p.PricePerArroba = perArroba
	p.PricePerKg = perKg
	p.TotalValue = total

	e.log.Info("purchase repriced",
		zap.String("purchase_id", p.ID),
		zap.String("total_value", total.String()),
	)
	return e.adjustBalance(ctx, s, p.SupplierID, EntryPurchaseRepriced, delta, p.ID, "purchase repriced")
}

// Delete removes a purchase without payments and returns its ticket to PENDING.
func (e *PurchaseEngine) Delete(ctx context.Context, id string) error {
	if err := CheckID("id", id); err != nil {
		return err
	}
	err := e.store.WithTx(ctx, func(s Store) error {
		p, err := e.load(ctx, s, id)
		if err != nil {
			return err
		}
		if len(p.Payments) > 0 {
			return conflict("purchase", id, "cannot delete purchase with associated payments")
		}

		if err := s.DeletePurchase(ctx, id); err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}

		t, err := s.GetTicket(ctx, p.TicketID)
		if err != nil {
			return fmt.Errorf("load ticket: %w", err)
		}
		if t != nil {
			t.Status = TicketPending
			t.UpdatedAt = e.now()
			if err := s.UpdateTicket(ctx, t); err != nil {
				return fmt.Errorf("revert ticket: %w", err)
			}
		}

		return e.adjustBalance(ctx, s, p.SupplierID, EntryPurchaseDeleted, p.TotalValue.Neg(), p.ID, "purchase deleted")
	})
	if err != nil {
		return err
	}

	e.log.Info("purchase deleted", zap.String("purchase_id", id))
	return nil
}
