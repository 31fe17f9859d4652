/*
reports.go - Reporting (relatorios) endpoints

ENDPOINTS:
  GET /api/relatorios/dashboard  Headline counts and totals
  GET /api/relatorios/mensal     Purchases grouped by month (?from, to)

SEE ALSO:
  - trade/reports.go: Reporter
*/
package api

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// GetDashboard returns the dashboard aggregates.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Reports.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// GetMonthlyReport returns one row per month with purchases in range.
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryDates(r, "from", "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows, err := h.Engine.Reports.Monthly(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]MonthlyRowDTO, len(rows))
	totals := MonthlyRowDTO{Month: "total", NetWeight: decimal.Zero, TotalValue: decimal.Zero, Paid: decimal.Zero}
	for i, row := range rows {
		dtos[i] = MonthlyRowDTO{
			Month:      row.Month,
			Purchases:  row.Purchases,
			NetWeight:  row.NetWeight,
			TotalValue: row.TotalValue,
			Paid:       row.Paid,
		}
		totals.Purchases += row.Purchases
		totals.NetWeight = totals.NetWeight.Add(row.NetWeight)
		totals.TotalValue = totals.TotalValue.Add(row.TotalValue)
		totals.Paid = totals.Paid.Add(row.Paid)
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": dtos, "totals": totals})
}
