/*
handlers.go - HTTP API handlers for the settlement engine

PURPOSE:
  Exposes the settlement engine and its reference directories via REST API.
  Handles HTTP request/response, JSON serialization and validation, and
  delegates to the engine.

ENDPOINTS:
  Settlements (settlements.go):
    POST   /api/settlements/run          Run a settlement for a date range
    GET    /api/settlements/current      Last published run + last error
    GET    /api/settlements/deductions   Deduction breakdown of a row
    GET    /api/settlements/transfers    Bank transfer lines (JSON)
    GET    /api/settlements/transfers.xlsx Bank transfer workbook
    POST   /api/settlements/overrides    Display text overrides of a row

  Directories:
    GET/POST /api/workers, /api/teams, /api/companies
    GET/POST /api/reports                 (GET takes start, end, team_id, site_id)
    GET/POST /api/advances                (GET takes year_month, team_id)

  Config:
    GET/PUT  /api/config                  Payroll configuration JSON

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Clear all data

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Directory persistence
  - Config: Payroll config source with cache fallback
  - Session: Latest run, generation-guarded

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Row or result not found
  - 409: Run superseded by a newer run
  - 502: A reference directory could not be fetched
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - settlements.go: Settlement endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/settlement-engine/export"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	ConfigFactory *factory.ConfigFactory
	Config        *payroll.ConfigSource
	Session       *settlement.Session
	ExportOptions export.Options
	Log           logrus.FieldLogger

	validate *validator.Validate

	mu              sync.RWMutex
	overrides       map[string]export.Override
	currentScenario string
}

// NewHandler wires the engine on top of the store. A nil cache keeps the
// payroll configuration in process memory.
func NewHandler(store *sqlite.Store, cache payroll.ConfigCache, opts export.Options, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	source := payroll.NewConfigSource(store, cache, log)
	runner := settlement.NewRunner(store, source, log)

	return &Handler{
		Store:         store,
		ConfigFactory: factory.NewConfigFactory(),
		Config:        source,
		Session:       settlement.NewSession(runner),
		ExportOptions: opts,
		Log:           log,
		validate:      validator.New(),
		overrides:     make(map[string]export.Override),
	}
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, wr := range workers {
		dtos[i] = toWorkerDTO(wr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWorker creates or updates a worker.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req WorkerDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SaveWorker(r.Context(), req.record()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// ListTeams returns all teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Store.ListTeams(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teams", err)
		return
	}

	dtos := make([]TeamDTO, len(teams))
	for i, t := range teams {
		dtos[i] = toTeamDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeam creates or updates a team.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SaveTeam(r.Context(), req.record()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save team", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns all companies.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}

	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompany creates or updates a company.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SaveCompany(r.Context(), req.record()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save company", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListReports returns the entries of a date range.
// GET /api/reports?start=2025-03-01&end=2025-03-31[&team_id=][&site_id=]
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := settlement.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	entries, err := h.Store.ListReports(r.Context(), dr, q.Get("team_id"), q.Get("site_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toReportEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateReports adds a batch of report entries.
func (h *Handler) CreateReports(w http.ResponseWriter, r *http.Request) {
	var req CreateReportsRequest
	if !h.decode(w, r, &req) {
		return
	}

	entries := make([]settlement.ReportEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = e.record()
	}
	if err := h.Store.AddReports(r.Context(), entries...); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reports", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": len(entries)})
}

// =============================================================================
// ADVANCE PAYMENT HANDLERS
// =============================================================================

// ListAdvances returns the advance records of one month.
// GET /api/advances?year_month=2025-03[&team_id=]
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	ym, err := settlement.ParseYearMonth(r.URL.Query().Get("year_month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year_month", err)
		return
	}

	records, err := h.Store.ListAdvancePayments(r.Context(), ym.Year(), int(ym.Month()), r.URL.Query().Get("team_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list advance payments", err)
		return
	}

	dtos := make([]AdvancePaymentDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAdvancePaymentDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdvance creates or updates an advance record.
func (h *Handler) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvancePaymentDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Store.SaveAdvancePayment(r.Context(), req.record()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save advance payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetConfig returns the payroll configuration in effect.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.GetConfig(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to load payroll config", err)
		return
	}
	h.writeConfig(w, http.StatusOK, cfg)
}

// UpdateConfig replaces the payroll configuration.
// PUT /api/config with a factory.ConfigJSON body.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cfg, err := h.ConfigFactory.ParseConfig(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payroll config", err)
		return
	}

	if err := h.Store.SaveConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payroll config", err)
		return
	}
	if err := h.Config.Refresh(r.Context()); err != nil {
		h.Log.WithError(err).Warn("payroll config cache refresh failed")
	}
	h.writeConfig(w, http.StatusOK, cfg)
}

func (h *Handler) writeConfig(w http.ResponseWriter, status int, cfg settlement.PayrollConfig) {
	out, err := h.ConfigFactory.ToJSON(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode payroll config", err)
		return
	}
	writeJSON(w, status, json.RawMessage(out))
}

// =============================================================================
// RESET
// =============================================================================

// ResetDatabase clears all data, the transfer overrides and the published
// settlement run.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.overrides = make(map[string]export.Override)
	h.currentScenario = ""
	h.mu.Unlock()
	h.Session.Clear()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Namespace()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_failed",
				Details: details,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case settlement.IsClientError(err):
		return http.StatusBadRequest
	case settlement.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrStaleRun):
		return http.StatusConflict
	case settlement.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is a stable machine-readable code for err.
func errorCode(err error) string {
	switch {
	case errors.Is(err, settlement.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, settlement.ErrRowNotFound):
		return "row_not_found"
	case errors.Is(err, settlement.ErrNoResult):
		return "no_result"
	case errors.Is(err, settlement.ErrStaleRun):
		return "stale_run"
	case errors.Is(err, settlement.ErrConfigUnavailable):
		return "config_unavailable"
	case errors.Is(err, settlement.ErrFetchFailed):
		return "fetch_failed"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Code = errorCode(err)
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
