package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine groups the services that share one store, logger and clock.
type Engine struct {
	Suppliers  *SupplierRegistry
	Tickets    *TicketManager
	Purchases  *PurchaseEngine
	Payments   *PaymentLedger
	Reports    *Reporter
	Reconciler *Reconciler
}

type Option func(*base)

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.clock = now
		}
	}
}

func NewEngine(store TxStore, opts ...Option) *Engine {
	b := &base{store: store, log: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	purchases := &PurchaseEngine{base: b}
	return &Engine{
		Suppliers:  &SupplierRegistry{base: b},
		Tickets:    &TicketManager{base: b, purchases: purchases},
		Purchases:  purchases,
		Payments:   &PaymentLedger{base: b},
		Reports:    &Reporter{base: b},
		Reconciler: &Reconciler{base: b},
	}
}

type base struct {
	store TxStore
	log   *zap.Logger
	clock func() time.Time
}

func (b *base) now() time.Time { return b.clock().UTC() }

func newID() string { return uuid.NewString() }

// adjustBalance moves a supplier balance by delta and records the ledger
// entry. Must run inside WithTx so both writes commit together.
func (b *base) adjustBalance(ctx context.Context, s Store, supplierID string, kind BalanceEntryKind, delta decimal.Decimal, ref, reason string) error {
	if delta.IsZero() {
		return nil
	}
	sup, err := s.GetSupplier(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("load supplier %s: %w", supplierID, err)
	}
	if sup == nil {
		return notFound("supplier", supplierID)
	}

	now := b.now()
	sup.Balance = sup.Balance.Add(delta)
	sup.UpdatedAt = now
	if err := s.UpdateSupplier(ctx, sup); err != nil {
		return fmt.Errorf("update supplier balance: %w", err)
	}

	entry := BalanceEntry{
		ID:          newID(),
		SupplierID:  supplierID,
		Kind:        kind,
		Delta:       delta,
		ReferenceID: ref,
		Reason:      reason,
		CreatedAt:   now,
	}
	if err := s.AppendBalanceEntry(ctx, entry); err != nil {
		return fmt.Errorf("append balance entry: %w", err)
	}

	b.log.Debug("supplier balance adjusted",
		zap.String("supplier_id", supplierID),
		zap.String("kind", string(kind)),
		zap.String("delta", delta.String()),
		zap.String("balance", sup.Balance.String()),
	)
	return nil
}
