/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- The ticket -> purchase -> payment flow through the router
- Error mapping (400 with field details, 404, 409, 500)
- List filters, pagination and date parsing
- Reconciliation endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cocoatrade/purchase-engine/store/sqlstore"
	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	h      *Handler
	router http.Handler
	store  *sqlstore.Store
}

// tickingClock advances one second per reading so records order by creation.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupTestServer(t *testing.T) *testServer {
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &tickingClock{now: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)}
	eng := trade.NewEngine(store, trade.WithClock(clock.Now))
	h := NewHandler(eng, store, zap.NewNop())
	return &testServer{h: h, router: NewRouter(h, nil), store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// errorBody decodes an error response with field details.
type errorBody struct {
	Error   string          `json:"error"`
	Details []FieldErrorDTO `json:"details"`
}

func (ts *testServer) supplier(t *testing.T, doc string) SupplierDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/fornecedores", CreateSupplierRequest{Name: "Fazenda " + doc, TaxDocument: doc})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SupplierDTO](t, rec)
}

func (ts *testServer) ticket(t *testing.T, supplierID, gross, net string) TicketDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/tickets", map[string]any{
		"supplierId":  supplierID,
		"grossWeight": gross,
		"netWeight":   net,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[TicketDTO](t, rec)
}

func (ts *testServer) purchase(t *testing.T, supplierID, perArroba string) PurchaseDTO {
	t.Helper()
	tk := ts.ticket(t, supplierID, "120", "115")
	rec := ts.do(t, http.MethodPost, "/api/compras/converter-ticket", map[string]any{
		"ticketId":       tk.ID,
		"pricePerArroba": perArroba,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[PurchaseDTO](t, rec)
}

func (ts *testServer) pay(t *testing.T, purchaseID, amount string) CreatePaymentResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/pagamentos", map[string]any{
		"purchaseId": purchaseID,
		"amount":     amount,
		"method":     "PIX",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CreatePaymentResponse](t, rec)
}

// =============================================================================
// FLOW
// =============================================================================

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestPurchaseFlow_EndToEnd(t *testing.T) {
	// GIVEN: A supplier with one weighed ticket of 115 kg net
	// WHEN: The ticket is converted at 300/@ and paid in two installments
	// THEN: Totals, statuses, receipts and the supplier ledger all agree
	ts := setupTestServer(t)
	sup := ts.supplier(t, "12345678000190")
	tk := ts.ticket(t, sup.ID, "120", "115")
	assert.Equal(t, "PENDING", tk.Status)
	require.NotNil(t, tk.Supplier)
	assert.Equal(t, sup.Name, tk.Supplier.Name)

	available := decode[[]TicketDTO](t, ts.do(t, http.MethodGet, "/api/tickets/available", nil))
	require.Len(t, available, 1)

	rec := ts.do(t, http.MethodPost, "/api/compras/converter-ticket", map[string]any{
		"ticketId":       tk.ID,
		"pricePerArroba": 300,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[PurchaseDTO](t, rec)
	assertDec(t, "2300", p.TotalValue)
	assertDec(t, "20", p.PricePerKg)
	assert.Equal(t, "PENDING", p.PaymentStatus)
	assert.Empty(t, p.Payments)
	require.NotNil(t, p.Ticket)
	assert.Equal(t, "CONVERTED", p.Ticket.Status)

	available = decode[[]TicketDTO](t, ts.do(t, http.MethodGet, "/api/tickets/available", nil))
	assert.Empty(t, available)

	// second conversion of the same ticket
	rec = ts.do(t, http.MethodPost, "/api/compras/converter-ticket", map[string]any{
		"ticketId":       tk.ID,
		"pricePerArroba": 300,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ticket already converted", decode[errorBody](t, rec).Error)

	// converted tickets are frozen
	rec = ts.do(t, http.MethodDelete, "/api/tickets/"+tk.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// preview an overpayment
	rec = ts.do(t, http.MethodPost, "/api/pagamentos/validar", map[string]any{"purchaseId": p.ID, "amount": 3000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "amount exceeds remaining balance of 2300.00", body.Error)
	assert.Equal(t, []FieldErrorDTO{{Field: "amount", Code: "exceeds_remaining"}}, body.Details)

	rec = ts.do(t, http.MethodPost, "/api/pagamentos/validar", map[string]any{"purchaseId": p.ID, "amount": 1000})
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[PaymentCheckDTO](t, rec)
	assert.True(t, check.Valid)
	assertDec(t, "1300", check.NewRemaining)
	assert.Equal(t, "PARTIAL", check.ResultingStatus)

	first := ts.pay(t, p.ID, "1000")
	assert.Equal(t, 1, first.Payment.Sequence)
	assert.Equal(t, "PARTIAL", first.Purchase.PaymentStatus)
	assertDec(t, "1300", first.Purchase.RemainingBalance)

	status := decode[PaymentStatusDTO](t, ts.do(t, http.MethodGet, "/api/compras/"+p.ID+"/status-pagamento", nil))
	assertDec(t, "1000", status.TotalPaid)
	assertDec(t, "1300", status.RemainingBalance)
	assert.Equal(t, "PARTIAL", status.PaymentStatus)

	second := ts.pay(t, p.ID, "1300")
	assert.Equal(t, "PAID", second.Purchase.PaymentStatus)
	assertDec(t, "0", second.Purchase.RemainingBalance)

	listed := decode[PurchasePaymentsResponse](t, ts.do(t, http.MethodGet, "/api/pagamentos/compra/"+p.ID, nil))
	assert.Equal(t, 2, listed.Summary.Count)
	assertDec(t, "100", listed.Summary.PercentPaid)

	receipt := decode[ReceiptDTO](t, ts.do(t, http.MethodGet, "/api/pagamentos/"+second.Payment.ID+"/recibo", nil))
	assert.Equal(t, 2, receipt.Ordinal)
	assert.Equal(t, 2, receipt.TotalPayments)
	assertDec(t, "2300", receipt.PaidUntilNow)
	assertDec(t, "0", receipt.RemainingAfter)

	// only the latest installment can be removed
	rec = ts.do(t, http.MethodDelete, "/api/pagamentos/"+first.Payment.ID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []FieldErrorDTO{{Field: "id", Code: "not_most_recent"}}, decode[errorBody](t, rec).Details)

	// a purchase with payments cannot be deleted
	rec = ts.do(t, http.MethodDelete, "/api/compras/"+p.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/pagamentos/"+second.Payment.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PARTIAL", decode[PurchaseDTO](t, rec).PaymentStatus)

	st := decode[StatementDTO](t, ts.do(t, http.MethodGet, "/api/fornecedores/"+sup.ID+"/extrato", nil))
	kinds := make([]string, len(st.Entries))
	for i, e := range st.Entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{"purchase_created", "payment_created", "payment_created", "payment_deleted"}, kinds)
	assertDec(t, "1300", st.Balance)

	got := decode[SupplierDTO](t, ts.do(t, http.MethodGet, "/api/fornecedores/"+sup.ID, nil))
	assertDec(t, "1300", got.Balance)
}

func TestConvertTicketByKg(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "52998224725")
	tk := ts.ticket(t, sup.ID, "310", "300")

	rec := ts.do(t, http.MethodPost, "/api/tickets/"+tk.ID+"/converter", map[string]any{"pricePerKg": "19.5"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[PurchaseDTO](t, rec)
	assertDec(t, "292.5", p.PricePerArroba)
	assertDec(t, "5850", p.TotalValue)
}

func TestUpdatePurchase_PriceLockedByPayments(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "11222333000181")
	p := ts.purchase(t, sup.ID, "300")

	rec := ts.do(t, http.MethodPut, "/api/compras/"+p.ID, map[string]any{"pricePerArroba": "330"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assertDec(t, "2530", decode[PurchaseDTO](t, rec).TotalValue)

	ts.pay(t, p.ID, "100")

	rec = ts.do(t, http.MethodPut, "/api/compras/"+p.ID, map[string]any{"pricePerArroba": "300"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "locked_by_payments", decode[errorBody](t, rec).Details[0].Code)

	rec = ts.do(t, http.MethodPut, "/api/compras/"+p.ID, map[string]any{"notes": "segunda safra"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "segunda safra", decode[PurchaseDTO](t, rec).Notes)
}

func TestUpdatePurchase_UnknownFieldsRejectedOncePaid(t *testing.T) {
	// GIVEN: A 2300 purchase with one payment of 100
	// WHEN: Sending notes together with any field other than the price
	// THEN: 400 locked_by_payments, and the notes are not applied
	ts := setupTestServer(t)
	sup := ts.supplier(t, "60746948000112")
	p := ts.purchase(t, sup.ID, "300")
	ts.pay(t, p.ID, "100")

	bodies := []struct {
		field string
		body  map[string]any
	}{
		{"totalValue", map[string]any{"notes": "x", "totalValue": "1"}},
		{"ticketId", map[string]any{"notes": "x", "ticketId": uuid.NewString()}},
		{"supplierId", map[string]any{"notes": "x", "supplierId": uuid.NewString()}},
	}
	for _, tt := range bodies {
		t.Run(tt.field, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, "/api/compras/"+p.ID, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, []FieldErrorDTO{{Field: tt.field, Code: trade.CodeLockedByPayments}}, decode[errorBody](t, rec).Details)
		})
	}

	got := decode[PurchaseDTO](t, ts.do(t, http.MethodGet, "/api/compras/"+p.ID, nil))
	assert.Empty(t, got.Notes)
	assert.Equal(t, string(trade.PaymentPartial), got.PaymentStatus)
}

func TestUpdatePurchase_UnknownFieldRejectedBeforePayment(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "33000167000101")
	p := ts.purchase(t, sup.ID, "300")

	rec := ts.do(t, http.MethodPut, "/api/compras/"+p.ID, map[string]any{"notes": "x", "paymentStatus": "PAID"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, []FieldErrorDTO{{Field: "paymentStatus", Code: trade.CodeNotEditable}}, decode[errorBody](t, rec).Details)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorMapping(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "45723174000110")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantField  string
		wantCode   string
	}{
		{"malformed id", http.MethodGet, "/api/compras/not-a-uuid", nil, http.StatusBadRequest, "id", trade.CodeInvalidUUID},
		{"unknown purchase", http.MethodGet, "/api/compras/" + uuid.NewString(), nil, http.StatusNotFound, "", ""},
		{"unknown supplier on ticket", http.MethodPost, "/api/tickets", map[string]any{"supplierId": uuid.NewString(), "grossWeight": 10, "netWeight": 9}, http.StatusNotFound, "", ""},
		{"net above gross", http.MethodPost, "/api/tickets", map[string]any{"supplierId": sup.ID, "grossWeight": 10, "netWeight": 11}, http.StatusBadRequest, "netWeight", trade.CodeNetExceedsGross},
		{"non-positive price", http.MethodPost, "/api/compras/converter-ticket", map[string]any{"ticketId": uuid.NewString(), "pricePerArroba": 0}, http.StatusBadRequest, "", ""},
		{"unknown method", http.MethodPost, "/api/pagamentos", map[string]any{"purchaseId": uuid.NewString(), "amount": 10, "method": "pix"}, http.StatusBadRequest, "method", trade.CodeInvalidEnum},
		{"bad json", http.MethodPost, "/api/fornecedores", "{not json", http.StatusBadRequest, "", ""},
		{"duplicate document", http.MethodPost, "/api/fornecedores", CreateSupplierRequest{Name: "Outro", TaxDocument: "45.723.174/0001-10"}, http.StatusConflict, "", ""},
		{"bad date", http.MethodGet, "/api/compras?dateFrom=10/03/2025", nil, http.StatusBadRequest, "dateFrom", trade.CodeInvalidDate},
		{"unknown route", http.MethodGet, "/api/nada", nil, http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])

			if tt.wantField != "" {
				details := decode[errorBody](t, rec).Details
				assert.Contains(t, details, FieldErrorDTO{Field: tt.wantField, Code: tt.wantCode})
			}
		})
	}
}

func TestFail_InternalErrorDetailDependsOnEnvironment(t *testing.T) {
	ts := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/compras", nil)

	rec := httptest.NewRecorder()
	ts.h.fail(rec, req, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "Internal server error", Details: "disk on fire"}, decode[ErrorResponse](t, rec))

	ts.h.Production = true
	rec = httptest.NewRecorder()
	ts.h.fail(rec, req, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "Internal server error"}, decode[ErrorResponse](t, rec))
}

// =============================================================================
// LISTS
// =============================================================================

func TestListPurchases_FiltersAndPagination(t *testing.T) {
	ts := setupTestServer(t)
	a := ts.supplier(t, "04252011000110")
	b := ts.supplier(t, "39053344705")
	paid := ts.purchase(t, a.ID, "300")
	ts.pay(t, paid.ID, "2300")
	ts.purchase(t, a.ID, "300")
	ts.purchase(t, b.ID, "150")

	page := decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?limit=2", nil))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, PaginationDTO{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, page.Pagination)

	page = decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?limit=2&page=2", nil))
	assert.Len(t, page.Data, 1)

	page = decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?paymentStatus=PAID", nil))
	require.Len(t, page.Data, 1)
	assert.Equal(t, paid.ID, page.Data[0].ID)
	require.Len(t, page.Data[0].Payments, 1)

	page = decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?supplierId="+b.ID, nil))
	assert.Equal(t, 1, page.Pagination.Total)

	// records are created on 2025-03-10; a date-only upper bound covers the whole day
	page = decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?dateFrom=2025-03-10&dateTo=2025-03-10", nil))
	assert.Equal(t, 3, page.Pagination.Total)
	page = decode[ListResponse[PurchaseDTO]](t, ts.do(t, http.MethodGet, "/api/compras?dateTo=2025-03-09", nil))
	assert.Equal(t, 0, page.Pagination.Total)
	assert.NotNil(t, page.Data)

	payments := decode[ListResponse[PaymentDTO]](t, ts.do(t, http.MethodGet, "/api/pagamentos?supplierId="+a.ID, nil))
	assert.Equal(t, 1, payments.Pagination.Total)
}

func TestListSuppliers_Search(t *testing.T) {
	ts := setupTestServer(t)
	ts.supplier(t, "12345678000190")
	ts.supplier(t, "52998224725")

	page := decode[ListResponse[SupplierDTO]](t, ts.do(t, http.MethodGet, "/api/fornecedores?search=529.982", nil))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "52998224725", page.Data[0].TaxDocument)

	page = decode[ListResponse[SupplierDTO]](t, ts.do(t, http.MethodGet, "/api/fornecedores", nil))
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, trade.DefaultPageLimit, page.Pagination.Limit)
}

func TestSupplierUpdateAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "11144477735")

	rec := ts.do(t, http.MethodPut, "/api/fornecedores/"+sup.ID, map[string]any{
		"name":    "Roça Santana",
		"balance": "150.50",
		"address": map[string]any{"city": "Camacan", "state": "BA"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[SupplierDTO](t, rec)
	assert.Equal(t, "Roça Santana", got.Name)
	assertDec(t, "150.5", got.Balance)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Camacan", got.Address.City)

	ts.ticket(t, sup.ID, "10", "9")
	rec = ts.do(t, http.MethodDelete, "/api/fornecedores/"+sup.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := ts.supplier(t, "98765432000198")
	rec = ts.do(t, http.MethodDelete, "/api/fornecedores/"+other.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/fornecedores/"+other.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseDate(t *testing.T) {
	v := trade.Violations{}

	from := parseDate("2025-03-10", false, "from", v)
	require.NotNil(t, from)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *from)

	to := parseDate("2025-03-10", true, "to", v)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.UTC), *to)

	exact := parseDate("2025-03-10T12:00:00-03:00", true, "to", v)
	require.NotNil(t, exact)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), *exact)

	assert.Nil(t, parseDate("", false, "from", v))
	assert.True(t, v.Empty())

	assert.Nil(t, parseDate("yesterday", false, "from", v))
	assert.Equal(t, trade.CodeInvalidDate, v["from"])
}

// =============================================================================
// REPORTS AND RECONCILIATION
// =============================================================================

func TestReports(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "12345678000190")
	p := ts.purchase(t, sup.ID, "300")
	ts.pay(t, p.ID, "300")
	ts.ticket(t, sup.ID, "50", "40")

	d := decode[DashboardDTO](t, ts.do(t, http.MethodGet, "/api/relatorios/dashboard", nil))
	assert.Equal(t, 1, d.Suppliers)
	assert.Equal(t, 1, d.TicketsPending)
	assert.Equal(t, 1, d.PurchasesByStatus["PARTIAL"])
	assert.Equal(t, 0, d.PurchasesByStatus["PAID"])
	assertDec(t, "2000", d.TotalOutstanding)

	monthly := decode[struct {
		Months []MonthlyRowDTO `json:"months"`
		Totals MonthlyRowDTO   `json:"totals"`
	}](t, ts.do(t, http.MethodGet, "/api/relatorios/mensal?from=2025-01-01", nil))
	require.Len(t, monthly.Months, 1)
	assert.Equal(t, "2025-03", monthly.Months[0].Month)
	assert.Equal(t, 1, monthly.Totals.Purchases)
	assertDec(t, "300", monthly.Totals.Paid)

	rec := ts.do(t, http.MethodGet, "/api/relatorios/mensal?from=2025-04-01&to=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconciliationEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	sup := ts.supplier(t, "12345678000190")
	ts.purchase(t, sup.ID, "300")

	rec := ts.do(t, http.MethodPost, "/api/reconciliation/process", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 1, run.PurchasesChecked)
	assert.NotEmpty(t, run.CompletedAt)

	runs := decode[map[string][]RunDTO](t, ts.do(t, http.MethodGet, "/api/reconciliation/runs", nil))["runs"]
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/compras", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
