/*
handlers.go - HTTP API handlers for the cocoa purchase engine

PURPOSE:
  Exposes the trade engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates everything else to the trade package.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Supplier, ticket, purchase, payment, report and reconcile services
  - DB: Health probe and reset for the database
  - Log: Structured logger for unexpected failures

  Handlers for each resource live in their own file (suppliers.go,
  tickets.go, purchases.go, payments.go, reports.go, scenarios.go). This
  file holds the shared helpers, health and reconciliation endpoints.

REQUEST FLOW:
  1. Parse path, query and body
  2. Call the trade service (it validates)
  3. Serialize response DTO
  4. Map errors to status codes with fail()

ERROR HANDLING:
  Errors are returned as {error, details?} with an HTTP status mapped from
  the error kind:
  - 400: trade.ValidationError (details = field violations), bad JSON
  - 404: trade.NotFoundError
  - 409: trade.ConflictError
  - 500: anything else. Logged with request id. The underlying error is only
         echoed in details when not running in production.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - trade/errors.go: Error kinds
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Database is what the handlers need from the store beyond the engine.
type Database interface {
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *trade.Engine
	DB     Database
	Log    *zap.Logger

	// Production hides internal error detail from clients and disables
	// scenario loading.
	Production bool

	// Track currently loaded scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. A nil logger discards output.
func NewHandler(engine *trade.Engine, db Database, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Engine: engine, DB: db, Log: log}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports service and database status.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

// =============================================================================
// RECONCILIATION ENDPOINTS
// =============================================================================

// ListReconciliationRuns returns reconciliation run history, newest first.
// GET /api/reconciliation/runs?limit=N
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Engine.Reconciler.Runs(r.Context(), queryInt(r, "limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// TriggerReconciliation runs a consistency pass now and returns its record.
// POST /api/reconciliation/process
func (h *Handler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	run, err := h.Engine.Reconciler.Reconcile(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a service error to its HTTP response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *trade.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := ErrorResponse{Error: verr.Message}
		if len(verr.Details) > 0 {
			resp.Details = toFieldErrors(verr.Details)
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case trade.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case trade.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case trade.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, context.Canceled):
		// client went away, nobody to answer
		return
	default:
		h.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		var detail error
		if !h.Production {
			detail = err
		}
		writeError(w, http.StatusInternalServerError, "Internal server error", detail)
	}
}

func toFieldErrors(vs []trade.FieldViolation) []FieldErrorDTO {
	out := make([]FieldErrorDTO, len(vs))
	for i, v := range vs {
		out[i] = FieldErrorDTO{Field: v.Field, Code: v.Code}
	}
	return out
}

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeJSONFields is decodeJSON that also returns the top-level keys of
// the body, sorted.
func decodeJSONFields(w http.ResponseWriter, r *http.Request, v any) ([]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, true
}

// queryInt returns the integer query parameter, or 0 when absent or malformed.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func pageRequest(r *http.Request) trade.PageRequest {
	return trade.PageRequest{Page: queryInt(r, "page"), Limit: queryInt(r, "limit")}
}

// queryDates parses a dateFrom/dateTo style pair. Each accepts YYYY-MM-DD or
// RFC 3339. A date-only upper bound covers the whole day.
func queryDates(r *http.Request, fromKey, toKey string) (from, to *time.Time, err error) {
	v := trade.Violations{}
	from = parseDate(r.URL.Query().Get(fromKey), false, fromKey, v)
	to = parseDate(r.URL.Query().Get(toKey), true, toKey, v)
	if err := v.Err("invalid date filter"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDate(raw string, endOfDay bool, field string, v trade.Violations) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		v[field] = trade.CodeInvalidDate
		return nil
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t
}
