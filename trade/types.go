/*
Package trade implements the cocoa purchase engine.

PURPOSE:
  Owns the business rules of a cocoa-buying operation. Suppliers deliver
  material that is weighed (Ticket), priced (Purchase) and settled in
  installments (Payment). Everything else in the repository - HTTP, SQL,
  scheduling - is plumbing around this package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Supplier:     Counterparty with a running balance (amount owed to them)
  - Ticket:       Weighing record, PENDING until converted into a Purchase
  - Purchase:     Priced ticket; accrues Payments until PAID
  - Payment:      Installment against a Purchase, ordered by Sequence
  - BalanceEntry: Supplier ledger line; balance is the sum of its entries

LIFECYCLE:
  Ticket(PENDING) ──convert──▶ Ticket(CONVERTED) + Purchase(PENDING)
  Purchase(PENDING) ──pay──▶ PARTIAL ──pay──▶ PAID
  PAID/PARTIAL ──delete last payment──▶ PARTIAL/PENDING
  Purchase(no payments) ──delete──▶ Ticket(PENDING)

PRECISION:
  Weights and money use decimal.Decimal. Totals are rounded to cents.

SEE ALSO:
  - store.go:     Persistence interface
  - purchases.go: Conversion and status derivation
  - payments.go:  Payment ledger
*/
package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketConverted TicketStatus = "CONVERTED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodPix      PaymentMethod = "PIX"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCheck    PaymentMethod = "CHECK"
)

// PaymentMethods lists the accepted methods. An empty method is also accepted.
var PaymentMethods = []PaymentMethod{MethodCash, MethodPix, MethodTransfer, MethodCheck}

// PriceUnit tags the unit a conversion price is quoted in.
type PriceUnit string

const (
	UnitArroba PriceUnit = "arroba"
	UnitKg     PriceUnit = "kg"
)

// KgPerArroba is the fixed factor between the two price units.
var KgPerArroba = decimal.NewFromInt(15)

// =============================================================================
// SUPPLIER
// =============================================================================

type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Supplier is the counterparty cocoa is bought from.
// Balance is the outstanding amount owed to the supplier. It only changes
// through BalanceEntry writes, so it always equals the sum of its entries.
type Supplier struct {
	ID          string
	Name        string
	TaxDocument string
	Contact     *Contact
	Address     *Address
	Balance     decimal.Decimal
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SupplierSummary is the subset embedded in tickets and purchases.
type SupplierSummary struct {
	ID          string
	Name        string
	TaxDocument string
}

func (s Supplier) Summary() SupplierSummary {
	return SupplierSummary{ID: s.ID, Name: s.Name, TaxDocument: s.TaxDocument}
}

// =============================================================================
// TICKET
// =============================================================================

// Ticket is a weighing record. NetWeight never exceeds GrossWeight.
type Ticket struct {
	ID          string
	SupplierID  string
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
	Notes       string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Supplier *SupplierSummary
}

// TicketSummary is the subset embedded in purchases.
type TicketSummary struct {
	ID          string
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
	Status      TicketStatus
	CreatedAt   time.Time
}

func (t Ticket) Summary() TicketSummary {
	return TicketSummary{
		ID:          t.ID,
		GrossWeight: t.GrossWeight,
		NetWeight:   t.NetWeight,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

// =============================================================================
// PURCHASE
// =============================================================================

// Purchase is a priced ticket. PaymentStatus is derived from Payments and is
// only written at creation and by the payment ledger.
type Purchase struct {
	ID             string
	TicketID       string
	SupplierID     string
	PricePerArroba decimal.Decimal
	PricePerKg     decimal.Decimal
	TotalValue     decimal.Decimal
	PaymentStatus  PaymentStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Supplier *SupplierSummary
	Ticket   *TicketSummary
	Payments []Payment
}

// TotalPaid sums the loaded payments.
func (p Purchase) TotalPaid() decimal.Decimal {
	return SumPayments(p.Payments)
}

// Remaining is what is still owed on the purchase.
func (p Purchase) Remaining() decimal.Decimal {
	return p.TotalValue.Sub(p.TotalPaid())
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is an installment against a purchase. Sequence is 1-based and
// contiguous per purchase; the highest sequence is the most recent payment.
type Payment struct {
	ID         string
	PurchaseID string
	Amount     decimal.Decimal
	Method     PaymentMethod
	Notes      string
	Sequence   int
	CreatedAt  time.Time
}

func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// =============================================================================
// SUPPLIER LEDGER
// =============================================================================

type BalanceEntryKind string

const (
	EntryOpening          BalanceEntryKind = "opening"
	EntryAdjustment       BalanceEntryKind = "adjustment"
	EntryPurchaseCreated  BalanceEntryKind = "purchase_created"
	EntryPurchaseRepriced BalanceEntryKind = "purchase_repriced"
	EntryPurchaseDeleted  BalanceEntryKind = "purchase_deleted"
	EntryPaymentCreated   BalanceEntryKind = "payment_created"
	EntryPaymentDeleted   BalanceEntryKind = "payment_deleted"
	EntryReconciliation   BalanceEntryKind = "reconciliation"
)

// BalanceEntry is one change to a supplier balance. Entries are append-only.
type BalanceEntry struct {
	ID          string
	SupplierID  string
	Kind        BalanceEntryKind
	Delta       decimal.Decimal
	ReferenceID string
	Reason      string
	CreatedAt   time.Time
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type ReconciliationRun struct {
	ID               string
	Status           RunStatus
	PurchasesChecked int
	StatusesRepaired int
	SuppliersChecked int
	BalancesRepaired int
	Error            string
	StartedAt        time.Time
	CompletedAt      *time.Time
}

// =============================================================================
// PAGINATION
// =============================================================================

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest selects a page. Limit 0 after Normalize never happens; stores
// treat a zero Limit as "no limit" for internal full scans.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type Page struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func NewPage(req PageRequest, total int) Page {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return Page{Page: req.Page, Limit: req.Limit, Total: total, TotalPages: pages}
}
