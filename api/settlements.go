package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/settlement-engine/export"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// SETTLEMENT RUN HANDLERS
// =============================================================================

// RunSettlement runs a settlement for a date range and publishes it.
// POST /api/settlements/run
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	var req RunSettlementRequest
	if !h.decode(w, r, &req) {
		return
	}

	run, err := h.runSettlement(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), "Settlement run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

func (h *Handler) runSettlement(ctx context.Context, req RunSettlementRequest) (*settlement.Run, error) {
	dr, err := settlement.ParseDateRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	return h.Session.Refresh(ctx, settlement.Query{Range: dr, TeamID: req.TeamID, SiteID: req.SiteID})
}

// GetCurrentSettlement returns the last published run. A failed later run
// does not replace it; its error is reported next to it.
// GET /api/settlements/current
func (h *Handler) GetCurrentSettlement(w http.ResponseWriter, r *http.Request) {
	resp := CurrentSettlementResponse{}
	if run, err := h.Session.Current(); err == nil {
		dto := toRunDTO(run)
		resp.Run = &dto
	}
	if err := h.Session.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// DEDUCTION HANDLERS
// =============================================================================

// GetDeductions returns the deduction breakdown of one row, for one month
// or for every month of the row.
// GET /api/settlements/deductions?row_key=...[&month=2025-03]
func (h *Handler) GetDeductions(w http.ResponseWriter, r *http.Request) {
	run, err := h.Session.Current()
	if err != nil {
		writeError(w, statusFor(err), "No settlement result", err)
		return
	}

	row, err := run.Result.Row(r.URL.Query().Get("row_key"))
	if err != nil {
		writeError(w, statusFor(err), "Row not found", err)
		return
	}

	calc := payroll.ForRun(run)

	if month := r.URL.Query().Get("month"); month != "" {
		ym, err := settlement.ParseYearMonth(month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		writeJSON(w, http.StatusOK, []DeductionDTO{toDeductionDTO(calc.ForMonth(row, ym))})
		return
	}

	months := calc.ForRow(row)
	dtos := make([]DeductionDTO, len(months))
	for i, d := range months {
		dtos[i] = toDeductionDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// ListTransfers returns the bank transfer lines of the current run.
// GET /api/settlements/transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	tuples, err := h.transfers()
	if err != nil {
		writeError(w, statusFor(err), "No settlement result", err)
		return
	}

	dtos := make([]TransferDTO, len(tuples))
	for i, t := range tuples {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DownloadTransfers streams the bank transfer workbook of the current run.
// GET /api/settlements/transfers.xlsx
func (h *Handler) DownloadTransfers(w http.ResponseWriter, r *http.Request) {
	tuples, err := h.transfers()
	if err != nil {
		writeError(w, statusFor(err), "No settlement result", err)
		return
	}
	run, _ := h.Session.Current()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transfers_%s_%s.xlsx", run.Query.Range.StartString(), run.Query.Range.EndString()))
	if err := export.WriteXLSX(w, tuples); err != nil {
		h.Log.WithError(err).Error("transfer workbook write failed")
	}
}

// SetTransferOverride replaces the display texts of one row.
// POST /api/settlements/overrides
func (h *Handler) SetTransferOverride(w http.ResponseWriter, r *http.Request) {
	var req TransferOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	h.overrides[req.RowKey] = export.Override{
		DepositDisplay:    req.DepositDisplay,
		WithdrawalDisplay: req.WithdrawalDisplay,
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) transfers() ([]export.Tuple, error) {
	run, err := h.Session.Current()
	if err != nil {
		return nil, err
	}

	calc := payroll.ForRun(run)
	b := export.NewBuilder(h.ExportOptions, calc.NetTotal)

	h.mu.RLock()
	for key, o := range h.overrides {
		b.SetOverride(key, o)
	}
	h.mu.RUnlock()

	return b.BuildAll(run.Result.Rows), nil
}
