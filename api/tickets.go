/*
tickets.go - Weighing ticket endpoints

ENDPOINTS:
  POST   /api/tickets                Create a PENDING ticket
  GET    /api/tickets                List tickets (?supplierId, status, page, limit)
  GET    /api/tickets/available      PENDING tickets without a purchase
  GET    /api/tickets/{id}           Get ticket
  PUT    /api/tickets/{id}           Update a PENDING ticket
  DELETE /api/tickets/{id}           Delete a PENDING ticket
  POST   /api/tickets/{id}/converter Convert with a per-kg price

CONVERSION:
  The primary conversion path is POST /api/compras/converter-ticket with a
  per-arroba price. The per-kg route here goes through the same engine
  operation with the unit made explicit.

SEE ALSO:
  - trade/tickets.go: TicketManager
  - purchases.go: Primary conversion endpoint
*/
package api

import (
	"net/http"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/go-chi/chi/v5"
)

// CreateTicket records a weighing.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.Engine.Tickets.Create(r.Context(), trade.TicketInput{
		SupplierID:  req.SupplierID,
		GrossWeight: req.GrossWeight,
		NetWeight:   req.NetWeight,
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTicketDTO(*t))
}

// ListTickets returns one page of tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := h.Engine.Tickets.List(r.Context(), trade.TicketFilter{
		PageRequest: pageRequest(r),
		SupplierID:  q.Get("supplierId"),
		Status:      trade.TicketStatus(q.Get("status")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(toTicketDTOs(items), page))
}

// ListAvailableTickets returns tickets that can still be converted.
func (h *Handler) ListAvailableTickets(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.Tickets.ListAvailable(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTOs(items))
}

// GetTicket returns a single ticket.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Engine.Tickets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(*t))
}

// UpdateTicket edits a ticket that has not been converted.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req UpdateTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.Engine.Tickets.Update(r.Context(), chi.URLParam(r, "id"), trade.TicketUpdate{
		SupplierID:  req.SupplierID,
		GrossWeight: req.GrossWeight,
		NetWeight:   req.NetWeight,
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(*t))
}

// DeleteTicket removes a ticket that has not been converted.
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Tickets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConvertTicketByKg converts a ticket quoting the price per kilogram.
func (h *Handler) ConvertTicketByKg(w http.ResponseWriter, r *http.Request) {
	var req ConvertTicketByKgRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Engine.Tickets.Convert(r.Context(), chi.URLParam(r, "id"), req.PricePerKg, trade.UnitKg, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(*p))
}
