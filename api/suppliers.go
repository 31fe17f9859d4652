/*
suppliers.go - Supplier (fornecedor) endpoints

ENDPOINTS:
  GET    /api/fornecedores              List suppliers (?search, page, limit)
  POST   /api/fornecedores              Create supplier
  GET    /api/fornecedores/{id}         Get supplier
  PUT    /api/fornecedores/{id}         Update supplier (balance = manual adjustment)
  DELETE /api/fornecedores/{id}         Delete supplier without tickets or purchases
  GET    /api/fornecedores/{id}/extrato Balance ledger with running balance

SEE ALSO:
  - trade/suppliers.go: SupplierRegistry
*/
package api

import (
	"net/http"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/go-chi/chi/v5"
)

// ListSuppliers returns one page of suppliers.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.Engine.Suppliers.List(r.Context(), trade.SupplierFilter{
		PageRequest: pageRequest(r),
		Search:      r.URL.Query().Get("search"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]SupplierDTO, len(items))
	for i, s := range items {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, newListResponse(dtos, page))
}

// CreateSupplier registers a supplier.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sup, err := h.Engine.Suppliers.Create(r.Context(), trade.SupplierInput{
		Name:           req.Name,
		TaxDocument:    req.TaxDocument,
		Contact:        req.Contact,
		Address:        req.Address,
		Notes:          req.Notes,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierDTO(*sup))
}

// GetSupplier returns a single supplier.
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	sup, err := h.Engine.Suppliers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(*sup))
}

// UpdateSupplier applies a partial update.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req UpdateSupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sup, err := h.Engine.Suppliers.Update(r.Context(), chi.URLParam(r, "id"), trade.SupplierUpdate{
		Name:        req.Name,
		TaxDocument: req.TaxDocument,
		Contact:     req.Contact,
		Address:     req.Address,
		Notes:       req.Notes,
		Balance:     req.Balance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(*sup))
}

// DeleteSupplier removes a supplier that has no tickets or purchases.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Suppliers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSupplierStatement returns the supplier's balance ledger.
func (h *Handler) GetSupplierStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.Engine.Suppliers.Statement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(st))
}
