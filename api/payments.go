/*
payments.go - Payment (pagamento) endpoints

ENDPOINTS:
  POST   /api/pagamentos                      Record an installment
  GET    /api/pagamentos                      List payments (?purchaseId, supplierId, method, page, limit)
  DELETE /api/pagamentos/{id}                 Delete the most recent installment
  GET    /api/pagamentos/compra/{purchaseId}  Installments of one purchase with totals
  POST   /api/pagamentos/validar              Preview an amount without recording it
  GET    /api/pagamentos/{id}/recibo          Receipt for one installment

SEE ALSO:
  - trade/payments.go: PaymentLedger
*/
package api

import (
	"net/http"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/go-chi/chi/v5"
)

// CreatePayment records a payment and returns it with the updated purchase.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pay, purchase, err := h.Engine.Payments.Create(r.Context(), trade.PaymentInput{
		PurchaseID: req.PurchaseID,
		Amount:     req.Amount,
		Method:     trade.PaymentMethod(req.Method),
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatePaymentResponse{
		Payment:  toPaymentDTO(*pay),
		Purchase: toPurchaseDTO(*purchase),
	})
}

// ListPayments returns one page of payments.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := h.Engine.Payments.List(r.Context(), trade.PaymentFilter{
		PageRequest: pageRequest(r),
		PurchaseID:  q.Get("purchaseId"),
		SupplierID:  q.Get("supplierId"),
		Method:      trade.PaymentMethod(q.Get("method")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(toPaymentDTOs(items), page))
}

// DeletePayment removes the latest payment and returns the updated purchase.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	purchase, err := h.Engine.Payments.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(*purchase))
}

// ListPurchasePayments returns the installments of one purchase.
func (h *Handler) ListPurchasePayments(w http.ResponseWriter, r *http.Request) {
	items, sum, err := h.Engine.Payments.ListByPurchase(r.Context(), chi.URLParam(r, "purchaseId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PurchasePaymentsResponse{
		Payments: toPaymentDTOs(items),
		Summary: PaymentSummaryDTO{
			Count:            sum.Count,
			TotalPaid:        sum.TotalPaid,
			RemainingBalance: sum.Remaining,
			PercentPaid:      sum.PercentPaid,
		},
	})
}

// ValidatePayment checks an amount against a purchase. A rejected amount is
// reported with the same error body CreatePayment would return.
func (h *Handler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	var req ValidatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	check, err := h.Engine.Payments.Validate(r.Context(), req.PurchaseID, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentCheckDTO(check))
}

// GetReceipt returns the receipt of one installment.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.Payments.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(rec))
}
