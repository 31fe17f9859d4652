/*
purchases.go - Purchase (compra) endpoints

ENDPOINTS:
  POST   /api/compras/converter-ticket     Convert a ticket at a per-arroba price
  GET    /api/compras                      List purchases
                                           (?supplierId, paymentStatus, dateFrom, dateTo, page, limit)
  GET    /api/compras/{id}                 Get purchase with payments
  PUT    /api/compras/{id}                 Update notes, or reprice while unpaid;
                                           other keys fail with 400
  DELETE /api/compras/{id}                 Delete a purchase without payments
  GET    /api/compras/{id}/status-pagamento Paid / remaining summary

SEE ALSO:
  - trade/purchases.go: PurchaseEngine
*/
package api

import (
	"net/http"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/go-chi/chi/v5"
)

// ConvertTicket turns a PENDING ticket into a purchase.
func (h *Handler) ConvertTicket(w http.ResponseWriter, r *http.Request) {
	var req ConvertTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Engine.Purchases.Convert(r.Context(), trade.ConvertInput{
		TicketID: req.TicketID,
		Price:    req.PricePerArroba,
		Unit:     trade.UnitArroba,
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(*p))
}

// ListPurchases returns one page of purchases with their payments.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryDates(r, "dateFrom", "dateTo")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	items, page, err := h.Engine.Purchases.List(r.Context(), trade.PurchaseFilter{
		PageRequest:   pageRequest(r),
		SupplierID:    q.Get("supplierId"),
		PaymentStatus: trade.PaymentStatus(q.Get("paymentStatus")),
		DateFrom:      from,
		DateTo:        to,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]PurchaseDTO, len(items))
	for i, p := range items {
		dtos[i] = toPurchaseDTO(p)
	}
	writeJSON(w, http.StatusOK, newListResponse(dtos, page))
}

// GetPurchase returns a single purchase.
func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.Purchases.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(*p))
}

// editablePurchaseFields are the body keys UpdatePurchase understands.
var editablePurchaseFields = map[string]bool{
	"notes":          true,
	"pricePerArroba": true,
	"pricePerKg":     true,
}

// UpdatePurchase edits notes or the price. Any other key in the body is
// rejected rather than ignored.
func (h *Handler) UpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var req UpdatePurchaseRequest
	keys, ok := decodeJSONFields(w, r, &req)
	if !ok {
		return
	}

	var fixed []string
	for _, k := range keys {
		if !editablePurchaseFields[k] {
			fixed = append(fixed, k)
		}
	}

	p, err := h.Engine.Purchases.Update(r.Context(), chi.URLParam(r, "id"), trade.PurchaseUpdate{
		Notes:          req.Notes,
		PricePerArroba: req.PricePerArroba,
		PricePerKg:     req.PricePerKg,
		Fixed:          fixed,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(*p))
}

// DeletePurchase removes a purchase and frees its ticket.
func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Purchases.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPaymentStatus returns how much of the purchase is paid.
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.Purchases.PaymentStatusOf(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentStatusDTO(v))
}
