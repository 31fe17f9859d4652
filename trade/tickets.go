/*
tickets.go - Ticket lifecycle manager

PURPOSE:
  A ticket is a weighing event: gross and net weight of cocoa delivered by
  a supplier. It stays PENDING and editable until it is converted into a
  purchase, after which it is frozen.

INVARIANTS:
  1. NetWeight <= GrossWeight, both positive (checked on create and on the
     merged values of every update)
  2. A CONVERTED ticket cannot be edited or deleted
  3. PENDING implies "no purchase": conversion flips the status in the same
     transaction that inserts the purchase, and purchases.ticket_id is
     UNIQUE, so ListAvailable needs no second filter

SEE ALSO:
  - purchases.go: Convert (owns the conversion itself)
*/
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TicketManager handles weighing records.
type TicketManager struct {
	*base
	purchases *PurchaseEngine
}

type TicketInput struct {
	SupplierID  string
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
	Notes       string
}

// TicketUpdate applies only non-nil fields.
type TicketUpdate struct {
	SupplierID  *string
	GrossWeight *decimal.Decimal
	NetWeight   *decimal.Decimal
	Notes       *string
}

func (m *TicketManager) Create(ctx context.Context, in TicketInput) (*Ticket, error) {
	v := Violations{}
	ValidUUID("supplierId", in.SupplierID, v)
	WeightPair(in.GrossWeight, in.NetWeight, v)
	MaxLen("notes", in.Notes, MaxNotesLen, v)
	if err := v.Err("invalid ticket"); err != nil {
		return nil, err
	}

	now := m.now()
	t := &Ticket{
		ID:          newID(),
		SupplierID:  in.SupplierID,
		GrossWeight: in.GrossWeight,
		NetWeight:   in.NetWeight,
		Notes:       in.Notes,
		Status:      TicketPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := m.store.WithTx(ctx, func(s Store) error {
		sup, err := s.GetSupplier(ctx, in.SupplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}
		if sup == nil {
			return notFound("supplier", in.SupplierID)
		}
		if err := s.InsertTicket(ctx, t); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		summary := sup.Summary()
		t.Supplier = &summary
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("ticket created",
		zap.String("ticket_id", t.ID),
		zap.String("supplier_id", t.SupplierID),
		zap.String("net_weight", t.NetWeight.String()),
	)
	return t, nil
}

func (m *TicketManager) Get(ctx context.Context, id string) (*Ticket, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	t, err := m.store.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if t == nil {
		return nil, notFound("ticket", id)
	}
	return t, nil
}

func (m *TicketManager) List(ctx context.Context, f TicketFilter) ([]Ticket, Page, error) {
	v := Violations{}
	if f.SupplierID != "" {
		ValidUUID("supplierId", f.SupplierID, v)
	}
	OneOf("status", f.Status, []TicketStatus{TicketPending, TicketConverted}, v)
	if err := v.Err("invalid ticket filter"); err != nil {
		return nil, Page{}, err
	}

	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := m.store.ListTickets(ctx, f)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list tickets: %w", err)
	}
	return items, NewPage(f.PageRequest, total), nil
}

// ListAvailable returns every ticket that can still be converted.
func (m *TicketManager) ListAvailable(ctx context.Context) ([]Ticket, error) {
	items, _, err := m.store.ListTickets(ctx, TicketFilter{Status: TicketPending})
	if err != nil {
		return nil, fmt.Errorf("list available tickets: %w", err)
	}
	return items, nil
}

func (m *TicketManager) Update(ctx context.Context, id string, in TicketUpdate) (*Ticket, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	v := Violations{}
	if in.SupplierID != nil {
		ValidUUID("supplierId", *in.SupplierID, v)
	}
	if in.Notes != nil {
		MaxLen("notes", *in.Notes, MaxNotesLen, v)
	}
	if err := v.Err("invalid ticket"); err != nil {
		return nil, err
	}

	var out *Ticket
	err := m.store.WithTx(ctx, func(s Store) error {
		t, err := m.loadMutable(ctx, s, id)
		if err != nil {
			return err
		}

		gross, net := t.GrossWeight, t.NetWeight
		if in.GrossWeight != nil {
			gross = *in.GrossWeight
		}
		if in.NetWeight != nil {
			net = *in.NetWeight
		}
		wv := Violations{}
		WeightPair(gross, net, wv)
		if err := wv.Err("invalid ticket"); err != nil {
			return err
		}
		t.GrossWeight, t.NetWeight = gross, net

		if in.SupplierID != nil && *in.SupplierID != t.SupplierID {
			sup, err := s.GetSupplier(ctx, *in.SupplierID)
			if err != nil {
				return fmt.Errorf("load supplier: %w", err)
			}
			if sup == nil {
				return notFound("supplier", *in.SupplierID)
			}
			t.SupplierID = sup.ID
			summary := sup.Summary()
			t.Supplier = &summary
		}
		if in.Notes != nil {
			t.Notes = *in.Notes
		}
		t.UpdatedAt = m.now()

		if err := s.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *TicketManager) Delete(ctx context.Context, id string) error {
	if err := CheckID("id", id); err != nil {
		return err
	}
	return m.store.WithTx(ctx, func(s Store) error {
		if _, err := m.loadMutable(ctx, s, id); err != nil {
			return err
		}
		if err := s.DeleteTicket(ctx, id); err != nil {
			return fmt.Errorf("delete ticket: %w", err)
		}
		return nil
	})
}

// Convert prices a ticket into a purchase. See PurchaseEngine.Convert.
func (m *TicketManager) Convert(ctx context.Context, ticketID string, price decimal.Decimal, unit PriceUnit, notes string) (*Purchase, error) {
	return m.purchases.Convert(ctx, ConvertInput{TicketID: ticketID, Price: price, Unit: unit, Notes: notes})
}

// loadMutable loads a ticket that has not been converted yet.
func (m *TicketManager) loadMutable(ctx context.Context, s Store, id string) (*Ticket, error) {
	t, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if t == nil {
		return nil, notFound("ticket", id)
	}
	if t.Status == TicketConverted {
		return nil, conflict("ticket", id, "ticket already converted")
	}
	p, err := s.GetPurchaseByTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ticket purchase: %w", err)
	}
	if p != nil {
		return nil, conflict("ticket", id, "ticket already converted")
	}
	return t, nil
}
