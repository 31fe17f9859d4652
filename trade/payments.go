/*
payments.go - Payment ledger

PURPOSE:
  Records installments against a purchase and keeps three things in step
  inside one transaction: the payment rows, the purchase PaymentStatus and
  the supplier balance.

RULES:
  1. amount > 0, in whole cents, and amount <= remaining
     (remaining = total - sum(payments))
  2. Payments are numbered 1..n per purchase (Sequence); only payment n may
     be deleted
  3. After every create/delete, PaymentStatus = ComputePaymentStatus(total, sum)
  4. Creating a payment lowers the supplier balance by amount; deleting one
     restores it

CONCURRENCY:
  The remaining-balance check and the insert run in the same transaction
  and the store serialises writers, so two concurrent payments cannot both
  fit into the same remaining balance.

SEE ALSO:
  - purchases.go: ComputePaymentStatus
*/
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// PaymentLedger records and removes installments.
type PaymentLedger struct {
	*base
}

type PaymentInput struct {
	PurchaseID string
	Amount     decimal.Decimal
	Method     PaymentMethod
	Notes      string
}

// PaymentCheck is the result of checking an amount against a purchase.
type PaymentCheck struct {
	PurchaseID      string
	TotalValue      decimal.Decimal
	AlreadyPaid     decimal.Decimal
	Remaining       decimal.Decimal
	Amount          decimal.Decimal
	NewRemaining    decimal.Decimal
	ResultingStatus PaymentStatus
}

// PaymentSummary aggregates the payments of one purchase.
type PaymentSummary struct {
	Count       int
	TotalPaid   decimal.Decimal
	Remaining   decimal.Decimal
	PercentPaid decimal.Decimal
}

// Receipt is a read-only snapshot of a purchase right after one payment.
type Receipt struct {
	Payment        Payment
	Purchase       *Purchase
	Ordinal        int
	TotalPayments  int
	PaidUntilNow   decimal.Decimal
	RemainingAfter decimal.Decimal
	PercentPaid    decimal.Decimal
}

// PercentOf returns part/total as a percentage rounded to 2 places.
func PercentOf(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total).Round(2)
}

// =============================================================================
// CHECK - shared by Create and Validate
// =============================================================================

func validatePaymentInput(in PaymentInput) error {
	v := Violations{}
	ValidUUID("purchaseId", in.PurchaseID, v)
	Positive("amount", in.Amount, v)
	Cents("amount", in.Amount, v)
	OneOf("method", in.Method, PaymentMethods, v)
	MaxLen("notes", in.Notes, MaxNotesLen, v)
	return v.Err("invalid payment")
}

// loadForPayment returns the purchase with its payments, or NotFound.
func loadForPayment(ctx context.Context, s Store, purchaseID string) (*Purchase, error) {
	p, err := s.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		return nil, notFound("purchase", purchaseID)
	}
	payments, err := s.ListPaymentsByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	p.Payments = payments
	return p, nil
}

func checkAmount(p *Purchase, amount decimal.Decimal) (*PaymentCheck, error) {
	paid := p.TotalPaid()
	remaining := p.TotalValue.Sub(paid)
	if amount.GreaterThan(remaining) {
		return nil, &ValidationError{
			Message: fmt.Sprintf("amount exceeds remaining balance of %s", remaining.StringFixed(2)),
			Details: []FieldViolation{{Field: "amount", Code: "exceeds_remaining"}},
		}
	}
	return &PaymentCheck{
		PurchaseID:      p.ID,
		TotalValue:      p.TotalValue,
		AlreadyPaid:     paid,
		Remaining:       remaining,
		Amount:          amount,
		NewRemaining:    remaining.Sub(amount),
		ResultingStatus: ComputePaymentStatus(p.TotalValue, paid.Add(amount)),
	}, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create records a payment. The returned purchase carries every payment,
// including the new one, and its recomputed status.
func (l *PaymentLedger) Create(ctx context.Context, in PaymentInput) (*Payment, *Purchase, error) {
	if err := validatePaymentInput(in); err != nil {
		return nil, nil, err
	}

	var (
		pay *Payment
		pur *Purchase
	)
	err := l.store.WithTx(ctx, func(s Store) error {
		p, err := loadForPayment(ctx, s, in.PurchaseID)
		if err != nil {
			return err
		}
		check, err := checkAmount(p, in.Amount)
		if err != nil {
			return err
		}

		now := l.now()
		pay = &Payment{
			ID:         newID(),
			PurchaseID: p.ID,
			Amount:     in.Amount,
			Method:     in.Method,
			Notes:      in.Notes,
			Sequence:   len(p.Payments) + 1,
			CreatedAt:  now,
		}
		if err := s.InsertPayment(ctx, pay); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		p.Payments = append(p.Payments, *pay)
		p.PaymentStatus = check.ResultingStatus
		p.UpdatedAt = now
		if err := s.UpdatePurchase(ctx, p); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		if err := l.adjustBalance(ctx, s, p.SupplierID, EntryPaymentCreated, in.Amount.Neg(), pay.ID, "payment recorded"); err != nil {
			return err
		}
		pur = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	l.log.Info("payment recorded",
		zap.String("payment_id", pay.ID),
		zap.String("purchase_id", pur.ID),
		zap.String("amount", pay.Amount.String()),
		zap.String("payment_status", string(pur.PaymentStatus)),
	)
	return pay, pur, nil
}

// Delete removes the most recent payment of a purchase and returns the
// purchase with its recomputed status.
func (l *PaymentLedger) Delete(ctx context.Context, id string) (*Purchase, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}

	var pur *Purchase
	err := l.store.WithTx(ctx, func(s Store) error {
		pay, err := s.GetPayment(ctx, id)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if pay == nil {
			return notFound("payment", id)
		}
		p, err := loadForPayment(ctx, s, pay.PurchaseID)
		if err != nil {
			return err
		}

		last := p.Payments[len(p.Payments)-1]
		if last.ID != pay.ID {
			return &ValidationError{
				Message: "only the most recent payment may be deleted",
				Details: []FieldViolation{{Field: "id", Code: "not_most_recent"}},
			}
		}

		if err := s.DeletePayment(ctx, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		p.Payments = p.Payments[:len(p.Payments)-1]
		p.PaymentStatus = ComputePaymentStatus(p.TotalValue, p.TotalPaid())
		p.UpdatedAt = l.now()
		if err := s.UpdatePurchase(ctx, p); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		if err := l.adjustBalance(ctx, s, p.SupplierID, EntryPaymentDeleted, pay.Amount, pay.ID, "payment deleted"); err != nil {
			return err
		}
		pur = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("payment deleted",
		zap.String("payment_id", id),
		zap.String("purchase_id", pur.ID),
		zap.String("payment_status", string(pur.PaymentStatus)),
	)
	return pur, nil
}

// =============================================================================
// READS
// =============================================================================

// Validate runs the Create checks without writing anything.
func (l *PaymentLedger) Validate(ctx context.Context, purchaseID string, amount decimal.Decimal) (*PaymentCheck, error) {
	if err := validatePaymentInput(PaymentInput{PurchaseID: purchaseID, Amount: amount}); err != nil {
		return nil, err
	}
	p, err := loadForPayment(ctx, l.store, purchaseID)
	if err != nil {
		return nil, err
	}
	return checkAmount(p, amount)
}

// ListByPurchase returns the payments of a purchase in order, with totals.
func (l *PaymentLedger) ListByPurchase(ctx context.Context, purchaseID string) ([]Payment, *PaymentSummary, error) {
	if err := CheckID("purchaseId", purchaseID); err != nil {
		return nil, nil, err
	}
	p, err := loadForPayment(ctx, l.store, purchaseID)
	if err != nil {
		return nil, nil, err
	}
	paid := p.TotalPaid()
	return p.Payments, &PaymentSummary{
		Count:       len(p.Payments),
		TotalPaid:   paid,
		Remaining:   p.TotalValue.Sub(paid),
		PercentPaid: PercentOf(paid, p.TotalValue),
	}, nil
}

func (l *PaymentLedger) List(ctx context.Context, f PaymentFilter) ([]Payment, Page, error) {
	v := Violations{}
	if f.PurchaseID != "" {
		ValidUUID("purchaseId", f.PurchaseID, v)
	}
	if f.SupplierID != "" {
		ValidUUID("supplierId", f.SupplierID, v)
	}
	OneOf("method", f.Method, PaymentMethods, v)
	if err := v.Err("invalid payment filter"); err != nil {
		return nil, Page{}, err
	}

	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := l.store.ListPayments(ctx, f)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list payments: %w", err)
	}
	return items, NewPage(f.PageRequest, total), nil
}

// Receipt numbers a payment among its purchase's payments and snapshots the
// cumulative totals as they stood right after it.
func (l *PaymentLedger) Receipt(ctx context.Context, id string) (*Receipt, error) {
	if err := CheckID("id", id); err != nil {
		return nil, err
	}
	pay, err := l.store.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if pay == nil {
		return nil, notFound("payment", id)
	}
	p, err := loadForPayment(ctx, l.store, pay.PurchaseID)
	if err != nil {
		return nil, err
	}

	r := &Receipt{Payment: *pay, Purchase: p, TotalPayments: len(p.Payments)}
	paid := decimal.Zero
	for i, other := range p.Payments {
		paid = paid.Add(other.Amount)
		if other.ID == pay.ID {
			r.Ordinal = i + 1
			break
		}
	}
	r.PaidUntilNow = paid
	r.RemainingAfter = p.TotalValue.Sub(paid)
	r.PercentPaid = PercentOf(paid, p.TotalValue)
	return r, nil
}
