/*
store.go - Persistence interface for the purchase engine

PURPOSE:
  Defines the boundary between the business rules and the database.
  Services never talk SQL; they call a Store, and every multi-record
  mutation runs inside TxStore.WithTx so it commits or rolls back as one.

KEY INTERFACES:
  Store:   CRUD + filtered listing for suppliers, tickets, purchases,
           payments, supplier ledger entries and reconciliation runs
  TxStore: Store plus WithTx (atomic multi-table writes)

LOOKUP CONTRACT:
  Get* methods return (nil, nil) when the record does not exist. Deciding
  whether that is an error is the caller's job.

LOCKING:
  Inside WithTx, Get* methods lock the returned row where the dialect
  supports it (SELECT ... FOR UPDATE on PostgreSQL). Implementations also
  serialise writers, so two payments against one purchase cannot both pass
  the remaining-balance check.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite and PostgreSQL via database/sql

SEE ALSO:
  - store/sqlstore/sqlstore.go: Concrete implementation
*/
package trade

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

type SupplierFilter struct {
	PageRequest
	Search string
}

type TicketFilter struct {
	PageRequest
	SupplierID string
	Status     TicketStatus
}

type PurchaseFilter struct {
	PageRequest
	SupplierID    string
	PaymentStatus PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

type PaymentFilter struct {
	PageRequest
	PurchaseID string
	SupplierID string
	Method     PaymentMethod
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Suppliers
	InsertSupplier(ctx context.Context, s *Supplier) error
	GetSupplier(ctx context.Context, id string) (*Supplier, error)
	FindSupplierByDocument(ctx context.Context, taxDocument string) (*Supplier, error)
	ListSuppliers(ctx context.Context, f SupplierFilter) ([]Supplier, int, error)
	UpdateSupplier(ctx context.Context, s *Supplier) error
	DeleteSupplier(ctx context.Context, id string) error
	// CountSupplierReferences returns how many tickets and purchases point at the supplier.
	CountSupplierReferences(ctx context.Context, id string) (tickets int, purchases int, err error)

	// Supplier ledger (append-only)
	AppendBalanceEntry(ctx context.Context, e BalanceEntry) error
	ListBalanceEntries(ctx context.Context, supplierID string) ([]BalanceEntry, error)

	// Tickets. GetTicket and ListTickets fill Ticket.Supplier.
	InsertTicket(ctx context.Context, t *Ticket) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListTickets(ctx context.Context, f TicketFilter) ([]Ticket, int, error)
	UpdateTicket(ctx context.Context, t *Ticket) error
	DeleteTicket(ctx context.Context, id string) error

	// Purchases. Get/List fill Supplier and Ticket, never Payments.
	InsertPurchase(ctx context.Context, p *Purchase) error
	GetPurchase(ctx context.Context, id string) (*Purchase, error)
	GetPurchaseByTicket(ctx context.Context, ticketID string) (*Purchase, error)
	ListPurchases(ctx context.Context, f PurchaseFilter) ([]Purchase, int, error)
	UpdatePurchase(ctx context.Context, p *Purchase) error
	DeletePurchase(ctx context.Context, id string) error

	// Payments, ordered by Sequence ascending.
	InsertPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPaymentsByPurchase(ctx context.Context, purchaseID string) ([]Payment, error)
	ListPaymentsForPurchases(ctx context.Context, purchaseIDs []string) (map[string][]Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, int, error)
	DeletePayment(ctx context.Context, id string) error

	// Reconciliation runs
	SaveReconciliationRun(ctx context.Context, r ReconciliationRun) error
	ListReconciliationRuns(ctx context.Context, limit int) ([]ReconciliationRun, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
