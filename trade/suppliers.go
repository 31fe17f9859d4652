package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplierRegistry manages supplier records and their balance ledger.
type SupplierRegistry struct {
	*base
}

type SupplierInput struct {
	Name           string
	TaxDocument    string
	Contact        *Contact
	Address        *Address
	Notes          string
	OpeningBalance decimal.Decimal
}

// SupplierUpdate applies only non-nil fields.
type SupplierUpdate struct {
	Name        *string
	TaxDocument *string
	Contact     *Contact
	Address     *Address
	Notes       *string
	Balance     *decimal.Decimal
}

func (r *SupplierRegistry) Create(ctx context.Context, in SupplierInput) (*Supplier, error) {
	v := Violations{}
	Required("name", in.Name, v)
	MaxLen("name", in.Name, 200, v)
	TaxDocument("taxDocument", in.TaxDocument, v)
	MaxLen("notes", in.Notes, MaxNotesLen, v)
	if err := v.Err("invalid supplier"); err != nil {
		return nil, err
	}

	now := r.now()
	sup := &Supplier{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		TaxDocument: NormalizeDocument(in.TaxDocument),
		Contact:     in.Contact,
		Address:     in.Address,
		Balance:     decimal.Zero,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.store.WithTx(ctx, func(s Store) error {
		existing, err := s.FindSupplierByDocument(ctx, sup.TaxDocument)
		if err != nil {
			return fmt.Errorf("check tax document: %w", err)
		}
		if existing != nil {
			return conflict("supplier", existing.ID, "tax document already registered")
		}
		if err := s.InsertSupplier(ctx, sup); err != nil {
			return fmt.Errorf("insert supplier: %w", err)
		}
		if err := r.adjustBalance(ctx, s, sup.ID, EntryOpening, in.OpeningBalance, "", "opening balance"); err != nil {
			return err
		}
		sup.Balance = in.OpeningBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("supplier created", zap.String("supplier_id", sup.ID))
	return sup, nil
}

func (r *SupplierRegistry) Get(ctx context.Context, id string) (*Supplier, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	sup, err := r.store.GetSupplier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load supplier: %w", err)
	}
	if sup == nil {
		return nil, notFound("supplier", id)
	}
	return sup, nil
}

func (r *SupplierRegistry) List(ctx context.Context, f SupplierFilter) ([]Supplier, Page, error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := r.store.ListSuppliers(ctx, f)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list suppliers: %w", err)
	}
	return items, NewPage(f.PageRequest, total), nil
}

// Update edits supplier fields. A direct balance edit is recorded as an
// adjustment entry for the difference so the ledger still sums to the balance.
func (r *SupplierRegistry) Update(ctx context.Context, id string, in SupplierUpdate) (*Supplier, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	v := Violations{}
	if in.Name != nil {
		Required("name", *in.Name, v)
		MaxLen("name", *in.Name, 200, v)
	}
	if in.TaxDocument != nil {
		TaxDocument("taxDocument", *in.TaxDocument, v)
	}
	if in.Notes != nil {
		MaxLen("notes", *in.Notes, MaxNotesLen, v)
	}
	if err := v.Err("invalid supplier"); err != nil {
		return nil, err
	}

	var out *Supplier
	err := r.store.WithTx(ctx, func(s Store) error {
		sup, err := s.GetSupplier(ctx, id)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}
		if sup == nil {
			return notFound("supplier", id)
		}

		if in.TaxDocument != nil {
			doc := NormalizeDocument(*in.TaxDocument)
			if doc != sup.TaxDocument {
				existing, err := s.FindSupplierByDocument(ctx, doc)
				if err != nil {
					return fmt.Errorf("check tax document: %w", err)
				}
				if existing != nil && existing.ID != id {
					return conflict("supplier", existing.ID, "tax document already registered")
				}
				sup.TaxDocument = doc
			}
		}
		if in.Name != nil {
			sup.Name = strings.TrimSpace(*in.Name)
		}
		if in.Contact != nil {
			sup.Contact = in.Contact
		}
		if in.Address != nil {
			sup.Address = in.Address
		}
		if in.Notes != nil {
			sup.Notes = *in.Notes
		}
		sup.UpdatedAt = r.now()
		if err := s.UpdateSupplier(ctx, sup); err != nil {
			return fmt.Errorf("update supplier: %w", err)
		}

		if in.Balance != nil {
			delta := in.Balance.Sub(sup.Balance)
			if err := r.adjustBalance(ctx, s, id, EntryAdjustment, delta, "", "manual balance edit"); err != nil {
				return err
			}
			sup.Balance = *in.Balance
		}
		out = sup
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a supplier no ticket or purchase references.
func (r *SupplierRegistry) Delete(ctx context.Context, id string) error {
	if err := CheckID("id", id); err != nil {
		return err
	}
	return r.store.WithTx(ctx, func(s Store) error {
		sup, err := s.GetSupplier(ctx, id)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}
		if sup == nil {
			return notFound("supplier", id)
		}
		tickets, purchases, err := s.CountSupplierReferences(ctx, id)
		if err != nil {
			return fmt.Errorf("count supplier references: %w", err)
		}
		if tickets > 0 || purchases > 0 {
			return conflict("supplier", id,
				fmt.Sprintf("cannot delete supplier with %d tickets and %d purchases", tickets, purchases))
		}
		if err := s.DeleteSupplier(ctx, id); err != nil {
			return fmt.Errorf("delete supplier: %w", err)
		}
		return nil
	})
}

// =============================================================================
// STATEMENT - running balance timeline
// =============================================================================

type StatementLine struct {
	Entry   BalanceEntry
	Balance decimal.Decimal
}

type Statement struct {
	Supplier SupplierSummary
	Balance  decimal.Decimal
	Lines    []StatementLine
}

// Statement replays the supplier ledger in order with the balance after each entry.
func (r *SupplierRegistry) Statement(ctx context.Context, id string) (*Statement, error) {
	sup, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.ListBalanceEntries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list balance entries: %w", err)
	}

	st := &Statement{Supplier: sup.Summary(), Balance: sup.Balance, Lines: make([]StatementLine, 0, len(entries))}
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Delta)
		st.Lines = append(st.Lines, StatementLine{Entry: e, Balance: running})
	}
	return st, nil
}
