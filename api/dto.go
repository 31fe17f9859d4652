/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the trade domain model from the external API contract, so the domain can
  evolve without breaking the frontend.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

FIELD CASING:
  camelCase throughout, matching what the frontend sends. Money and weights
  are shopspring decimals; the server emits them as JSON numbers
  (decimal.MarshalJSONWithoutQuotes) and accepts numbers or strings.

PARTIAL UPDATES:
  Update requests use pointer fields. A missing field is nil and is left
  untouched; an explicit value (including "") is applied.

VALIDATION:
  Validation is done by the trade package, not in DTOs. DTOs are pure data
  carriers.

TYPES:
  Suppliers:      SupplierDTO, StatementDTO, Create/UpdateSupplierRequest
  Tickets:        TicketDTO, Create/UpdateTicketRequest, ConvertTicketByKgRequest
  Purchases:      PurchaseDTO, PaymentStatusDTO, ConvertTicketRequest
  Payments:       PaymentDTO, PaymentCheckDTO, ReceiptDTO, CreatePaymentRequest
  Reports:        DashboardDTO, MonthlyRowDTO
  Reconciliation: RunDTO
  Scenarios:      ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Error mapping and helpers
  - trade/types.go: Domain records
*/
package api

import (
	"time"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the standard error response. Details holds field
// violations for invalid input, or the internal error text outside production.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// FieldErrorDTO is one rejected field.
type FieldErrorDTO struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// PaginationDTO describes the page returned in a list response.
type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResponse wraps one page of results.
type ListResponse[T any] struct {
	Data       []T           `json:"data"`
	Pagination PaginationDTO `json:"pagination"`
}

func newListResponse[T any](data []T, p trade.Page) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{
		Data: data,
		Pagination: PaginationDTO{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// =============================================================================
// SUPPLIERS
// =============================================================================

// SupplierDTO represents a supplier in API responses.
type SupplierDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TaxDocument string          `json:"taxDocument"`
	Contact     *trade.Contact  `json:"contact,omitempty"`
	Address     *trade.Address  `json:"address,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// SupplierSummaryDTO is the supplier embedded in tickets and purchases.
type SupplierSummaryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TaxDocument string `json:"taxDocument"`
}

// CreateSupplierRequest is the body for POST /api/fornecedores.
type CreateSupplierRequest struct {
	Name           string          `json:"name"`
	TaxDocument    string          `json:"taxDocument"`
	Contact        *trade.Contact  `json:"contact,omitempty"`
	Address        *trade.Address  `json:"address,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// UpdateSupplierRequest is the body for PUT /api/fornecedores/{id}.
// Balance is a manual adjustment to the given value.
type UpdateSupplierRequest struct {
	Name        *string          `json:"name,omitempty"`
	TaxDocument *string          `json:"taxDocument,omitempty"`
	Contact     *trade.Contact   `json:"contact,omitempty"`
	Address     *trade.Address   `json:"address,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
}

// StatementLineDTO is one ledger entry with the running balance after it.
type StatementLineDTO struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Delta       decimal.Decimal `json:"delta"`
	Balance     decimal.Decimal `json:"balance"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

// StatementDTO is the response for GET /api/fornecedores/{id}/extrato.
type StatementDTO struct {
	Supplier SupplierSummaryDTO `json:"supplier"`
	Balance  decimal.Decimal    `json:"balance"`
	Entries  []StatementLineDTO `json:"entries"`
}

func toSupplierDTO(s trade.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:          s.ID,
		Name:        s.Name,
		TaxDocument: s.TaxDocument,
		Contact:     s.Contact,
		Address:     s.Address,
		Balance:     s.Balance,
		Notes:       s.Notes,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

func toSupplierSummaryDTO(s *trade.SupplierSummary) *SupplierSummaryDTO {
	if s == nil {
		return nil
	}
	return &SupplierSummaryDTO{ID: s.ID, Name: s.Name, TaxDocument: s.TaxDocument}
}

func toStatementDTO(st *trade.Statement) StatementDTO {
	lines := make([]StatementLineDTO, len(st.Lines))
	for i, l := range st.Lines {
		lines[i] = StatementLineDTO{
			ID:          l.Entry.ID,
			Kind:        string(l.Entry.Kind),
			Delta:       l.Entry.Delta,
			Balance:     l.Balance,
			ReferenceID: l.Entry.ReferenceID,
			Reason:      l.Entry.Reason,
			CreatedAt:   formatTime(l.Entry.CreatedAt),
		}
	}
	return StatementDTO{
		Supplier: *toSupplierSummaryDTO(&st.Supplier),
		Balance:  st.Balance,
		Entries:  lines,
	}
}

// =============================================================================
// TICKETS
// =============================================================================

// TicketDTO represents a weighing ticket in API responses.
type TicketDTO struct {
	ID          string              `json:"id"`
	SupplierID  string              `json:"supplierId"`
	GrossWeight decimal.Decimal     `json:"grossWeight"`
	NetWeight   decimal.Decimal     `json:"netWeight"`
	Notes       string              `json:"notes,omitempty"`
	Status      string              `json:"status"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
	Supplier    *SupplierSummaryDTO `json:"supplier,omitempty"`
}

// TicketSummaryDTO is the ticket embedded in a purchase.
type TicketSummaryDTO struct {
	ID          string          `json:"id"`
	GrossWeight decimal.Decimal `json:"grossWeight"`
	NetWeight   decimal.Decimal `json:"netWeight"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"createdAt"`
}

// CreateTicketRequest is the body for POST /api/tickets.
type CreateTicketRequest struct {
	SupplierID  string          `json:"supplierId"`
	GrossWeight decimal.Decimal `json:"grossWeight"`
	NetWeight   decimal.Decimal `json:"netWeight"`
	Notes       string          `json:"notes,omitempty"`
}

// UpdateTicketRequest is the body for PUT /api/tickets/{id}.
type UpdateTicketRequest struct {
	SupplierID  *string          `json:"supplierId,omitempty"`
	GrossWeight *decimal.Decimal `json:"grossWeight,omitempty"`
	NetWeight   *decimal.Decimal `json:"netWeight,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// ConvertTicketByKgRequest is the body for POST /api/tickets/{id}/converter.
type ConvertTicketByKgRequest struct {
	PricePerKg decimal.Decimal `json:"pricePerKg"`
	Notes      string          `json:"notes,omitempty"`
}

func toTicketDTO(t trade.Ticket) TicketDTO {
	return TicketDTO{
		ID:          t.ID,
		SupplierID:  t.SupplierID,
		GrossWeight: t.GrossWeight,
		NetWeight:   t.NetWeight,
		Notes:       t.Notes,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		Supplier:    toSupplierSummaryDTO(t.Supplier),
	}
}

func toTicketDTOs(items []trade.Ticket) []TicketDTO {
	dtos := make([]TicketDTO, len(items))
	for i, t := range items {
		dtos[i] = toTicketDTO(t)
	}
	return dtos
}

// =============================================================================
// PURCHASES
// =============================================================================

// PurchaseDTO represents a purchase in API responses. TotalPaid and
// RemainingBalance are computed from the embedded payments.
type PurchaseDTO struct {
	ID               string              `json:"id"`
	TicketID         string              `json:"ticketId"`
	SupplierID       string              `json:"supplierId"`
	PricePerArroba   decimal.Decimal     `json:"pricePerArroba"`
	PricePerKg       decimal.Decimal     `json:"pricePerKg"`
	TotalValue       decimal.Decimal     `json:"totalValue"`
	TotalPaid        decimal.Decimal     `json:"totalPaid"`
	RemainingBalance decimal.Decimal     `json:"remainingBalance"`
	PaymentStatus    string              `json:"paymentStatus"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        string              `json:"createdAt"`
	UpdatedAt        string              `json:"updatedAt"`
	Supplier         *SupplierSummaryDTO `json:"supplier,omitempty"`
	Ticket           *TicketSummaryDTO   `json:"ticket,omitempty"`
	Payments         []PaymentDTO        `json:"payments"`
}

// ConvertTicketRequest is the body for POST /api/compras/converter-ticket.
type ConvertTicketRequest struct {
	TicketID       string          `json:"ticketId"`
	PricePerArroba decimal.Decimal `json:"pricePerArroba"`
	Notes          string          `json:"notes,omitempty"`
}

// UpdatePurchaseRequest is the body for PUT /api/compras/{id}.
// At most one of the price fields may be given.
type UpdatePurchaseRequest struct {
	Notes          *string          `json:"notes,omitempty"`
	PricePerArroba *decimal.Decimal `json:"pricePerArroba,omitempty"`
	PricePerKg     *decimal.Decimal `json:"pricePerKg,omitempty"`
}

// PaymentStatusDTO is the response for GET /api/compras/{id}/status-pagamento.
type PaymentStatusDTO struct {
	PurchaseID       string          `json:"purchaseId"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	PaymentStatus    string          `json:"paymentStatus"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}

func toPurchaseDTO(p trade.Purchase) PurchaseDTO {
	dto := PurchaseDTO{
		ID:               p.ID,
		TicketID:         p.TicketID,
		SupplierID:       p.SupplierID,
		PricePerArroba:   p.PricePerArroba,
		PricePerKg:       p.PricePerKg,
		TotalValue:       p.TotalValue,
		TotalPaid:        p.TotalPaid(),
		RemainingBalance: p.Remaining(),
		PaymentStatus:    string(p.PaymentStatus),
		Notes:            p.Notes,
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
		Supplier:         toSupplierSummaryDTO(p.Supplier),
		Payments:         toPaymentDTOs(p.Payments),
	}
	if p.Ticket != nil {
		dto.Ticket = &TicketSummaryDTO{
			ID:          p.Ticket.ID,
			GrossWeight: p.Ticket.GrossWeight,
			NetWeight:   p.Ticket.NetWeight,
			Status:      string(p.Ticket.Status),
			CreatedAt:   formatTime(p.Ticket.CreatedAt),
		}
	}
	return dto
}

func toPaymentStatusDTO(v *trade.PaymentStatusView) PaymentStatusDTO {
	return PaymentStatusDTO{
		PurchaseID:       v.PurchaseID,
		TotalValue:       v.TotalValue,
		TotalPaid:        v.TotalPaid,
		PaymentStatus:    string(v.PaymentStatus),
		RemainingBalance: v.RemainingBalance,
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a payment installment.
type PaymentDTO struct {
	ID         string          `json:"id"`
	PurchaseID string          `json:"purchaseId"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Sequence   int             `json:"sequence"`
	CreatedAt  string          `json:"createdAt"`
}

// CreatePaymentRequest is the body for POST /api/pagamentos.
type CreatePaymentRequest struct {
	PurchaseID string          `json:"purchaseId"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// CreatePaymentResponse returns the payment with the purchase as it stands after it.
type CreatePaymentResponse struct {
	Payment  PaymentDTO  `json:"payment"`
	Purchase PurchaseDTO `json:"purchase"`
}

// ValidatePaymentRequest is the body for POST /api/pagamentos/validar.
type ValidatePaymentRequest struct {
	PurchaseID string          `json:"purchaseId"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentCheckDTO previews the effect of a payment without recording it.
type PaymentCheckDTO struct {
	Valid           bool            `json:"valid"`
	PurchaseID      string          `json:"purchaseId"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	AlreadyPaid     decimal.Decimal `json:"alreadyPaid"`
	Remaining       decimal.Decimal `json:"remainingBalance"`
	Amount          decimal.Decimal `json:"amount"`
	NewRemaining    decimal.Decimal `json:"newRemainingBalance"`
	ResultingStatus string          `json:"resultingStatus"`
}

// PaymentSummaryDTO aggregates the payments of one purchase.
type PaymentSummaryDTO struct {
	Count            int             `json:"count"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	PercentPaid      decimal.Decimal `json:"percentPaid"`
}

// PurchasePaymentsResponse is the response for GET /api/pagamentos/compra/{purchaseId}.
type PurchasePaymentsResponse struct {
	Payments []PaymentDTO      `json:"payments"`
	Summary  PaymentSummaryDTO `json:"summary"`
}

// ReceiptDTO is the response for GET /api/pagamentos/{id}/recibo.
type ReceiptDTO struct {
	Payment        PaymentDTO      `json:"payment"`
	Purchase       PurchaseDTO     `json:"purchase"`
	Ordinal        int             `json:"installment"`
	TotalPayments  int             `json:"totalInstallments"`
	PaidUntilNow   decimal.Decimal `json:"paidUntilNow"`
	RemainingAfter decimal.Decimal `json:"remainingAfter"`
	PercentPaid    decimal.Decimal `json:"percentPaid"`
}

func toPaymentDTO(p trade.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         p.ID,
		PurchaseID: p.PurchaseID,
		Amount:     p.Amount,
		Method:     string(p.Method),
		Notes:      p.Notes,
		Sequence:   p.Sequence,
		CreatedAt:  formatTime(p.CreatedAt),
	}
}

func toPaymentDTOs(items []trade.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(items))
	for i, p := range items {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toPaymentCheckDTO(c *trade.PaymentCheck) PaymentCheckDTO {
	return PaymentCheckDTO{
		Valid:           true,
		PurchaseID:      c.PurchaseID,
		TotalValue:      c.TotalValue,
		AlreadyPaid:     c.AlreadyPaid,
		Remaining:       c.Remaining,
		Amount:          c.Amount,
		NewRemaining:    c.NewRemaining,
		ResultingStatus: string(c.ResultingStatus),
	}
}

func toReceiptDTO(r *trade.Receipt) ReceiptDTO {
	return ReceiptDTO{
		Payment:        toPaymentDTO(r.Payment),
		Purchase:       toPurchaseDTO(*r.Purchase),
		Ordinal:        r.Ordinal,
		TotalPayments:  r.TotalPayments,
		PaidUntilNow:   r.PaidUntilNow,
		RemainingAfter: r.RemainingAfter,
		PercentPaid:    r.PercentPaid,
	}
}

// =============================================================================
// REPORTS
// =============================================================================

// DashboardDTO is the response for GET /api/relatorios/dashboard.
type DashboardDTO struct {
	Suppliers          int             `json:"suppliers"`
	SupplierBalance    decimal.Decimal `json:"supplierBalance"`
	TicketsPending     int             `json:"ticketsPending"`
	TicketsConverted   int             `json:"ticketsConverted"`
	PendingNetWeight   decimal.Decimal `json:"pendingNetWeight"`
	ConvertedNetWeight decimal.Decimal `json:"convertedNetWeight"`
	PurchasesByStatus  map[string]int  `json:"purchasesByStatus"`
	TotalPurchased     decimal.Decimal `json:"totalPurchased"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	TotalOutstanding   decimal.Decimal `json:"totalOutstanding"`
}

// MonthlyRowDTO is one month in GET /api/relatorios/mensal.
type MonthlyRowDTO struct {
	Month      string          `json:"month"`
	Purchases  int             `json:"purchases"`
	NetWeight  decimal.Decimal `json:"netWeight"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Paid       decimal.Decimal `json:"paid"`
}

func toDashboardDTO(d *trade.Dashboard) DashboardDTO {
	byStatus := map[string]int{
		string(trade.PaymentPending): 0,
		string(trade.PaymentPartial): 0,
		string(trade.PaymentPaid):    0,
	}
	for status, n := range d.PurchasesByStatus {
		byStatus[string(status)] = n
	}
	return DashboardDTO{
		Suppliers:          d.Suppliers,
		SupplierBalance:    d.SupplierBalance,
		TicketsPending:     d.TicketsPending,
		TicketsConverted:   d.TicketsConverted,
		PendingNetWeight:   d.PendingNetWeight,
		ConvertedNetWeight: d.ConvertedNetWeight,
		PurchasesByStatus:  byStatus,
		TotalPurchased:     d.TotalPurchased,
		TotalPaid:          d.TotalPaid,
		TotalOutstanding:   d.TotalOutstanding,
	}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// RunDTO represents a reconciliation run.
type RunDTO struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	PurchasesChecked int    `json:"purchasesChecked"`
	StatusesRepaired int    `json:"statusesRepaired"`
	SuppliersChecked int    `json:"suppliersChecked"`
	BalancesRepaired int    `json:"balancesRepaired"`
	Error            string `json:"error,omitempty"`
	StartedAt        string `json:"startedAt"`
	CompletedAt      string `json:"completedAt,omitempty"`
}

func toRunDTO(run trade.ReconciliationRun) RunDTO {
	return RunDTO{
		ID:               run.ID,
		Status:           string(run.Status),
		PurchasesChecked: run.PurchasesChecked,
		StatusesRepaired: run.StatusesRepaired,
		SuppliersChecked: run.SuppliersChecked,
		BalancesRepaired: run.BalancesRepaired,
		Error:            run.Error,
		StartedAt:        formatTime(run.StartedAt),
		CompletedAt:      formatTimePtr(run.CompletedAt),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body for POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}
