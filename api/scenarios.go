/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	site data. Each scenario creates companies, teams, workers, report
	entries and advance records that exercise one part of the engine.

AVAILABLE SCENARIOS:

	daily-crew:       Daily-wage crew, one worker with incomplete bank data
	monthly-payroll:  Monthly-wage worker with statutory deductions and advances
	support-team:     Partner support teams billed per man-day and flat rate
	cross-month:      Entries spanning two months with carried-forward models

HOW SCENARIOS WORK:
 1. Reset database (clear all data), overrides and the published run
 2. Save the payroll configuration
 3. Create companies, teams and workers
 4. Add report entries
 5. Optionally add advance payment records

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "support-team"}

	then POST /api/settlements/run with the scenario's start and end.

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/config.go: DefaultConfig
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/settlement-engine/export"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "daily-crew",
		Name:        "Daily Crew",
		Description: "Daily-wage crew at one site; one worker is missing an account number",
		Start:       "2025-03-01",
		End:         "2025-03-31",
	},
	{
		ID:          "monthly-payroll",
		Name:        "Monthly Payroll",
		Description: "Monthly-wage foreman with insurance, income tax and itemized advances",
		Start:       "2025-03-01",
		End:         "2025-03-31",
	},
	{
		ID:          "support-team",
		Name:        "Support Teams",
		Description: "Support workers redirected to partner team leaders (per man-day and fixed)",
		Start:       "2025-03-01",
		End:         "2025-03-31",
	},
	{
		ID:          "cross-month",
		Name:        "Cross-Month",
		Description: "Entries spanning February and March; the first hint of a month carries forward",
		Start:       "2025-02-20",
		End:         "2025-03-10",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	loaders := map[string]func(context.Context) error{
		"daily-crew":      h.loadDailyCrewScenario,
		"monthly-payroll": h.loadMonthlyPayrollScenario,
		"support-team":    h.loadSupportTeamScenario,
		"cross-month":     h.loadCrossMonthScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.overrides = make(map[string]export.Override)
	h.currentScenario = ""
	h.mu.Unlock()
	h.Session.Clear()

	if err := h.Store.SaveConfig(ctx, factory.DefaultConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payroll config", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) saveDirectories(ctx context.Context, companies []settlement.CompanyRecord, teams []settlement.TeamRecord, workers []settlement.WorkerRecord) error {
	for _, c := range companies {
		if err := h.Store.SaveCompany(ctx, c); err != nil {
			return err
		}
	}
	for _, t := range teams {
		if err := h.Store.SaveTeam(ctx, t); err != nil {
			return err
		}
	}
	for _, w := range workers {
		if err := h.Store.SaveWorker(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// days returns one entry per listed day of the month for the worker.
func days(reportPrefix, month, siteID, teamID, workerID string, manDay, unitPrice float64, hint string, dayNumbers ...int) []settlement.ReportEntry {
	entries := make([]settlement.ReportEntry, 0, len(dayNumbers))
	for _, d := range dayNumbers {
		date := fmt.Sprintf("%s-%02d", month, d)
		entries = append(entries, settlement.ReportEntry{
			ReportID:        reportPrefix + "-" + date,
			Date:            date,
			SiteID:          siteID,
			TeamID:          teamID,
			WorkerID:        workerID,
			ManDay:          manDay,
			UnitPrice:       unitPrice,
			SalaryModelHint: hint,
		})
	}
	return entries
}

func (h *Handler) loadDailyCrewScenario(ctx context.Context) error {
	err := h.saveDirectories(ctx,
		[]settlement.CompanyRecord{
			{ID: "cmp-client", Name: "(주)한빛건설", Type: settlement.CompanyConstructionClient},
		},
		[]settlement.TeamRecord{
			{ID: "team-frame", Name: "형틀팀", Type: settlement.TeamConstruction, CompanyID: "cmp-client"},
		},
		[]settlement.WorkerRecord{
			{ID: "w-kim", Name: "김철수", TeamID: "team-frame", DefaultUnitPrice: 150000,
				BankName: "KB국민은행", AccountNumber: "123-45-678901", AccountHolder: "김철수"},
			{ID: "w-lee", Name: "이영호", TeamID: "team-frame", DefaultUnitPrice: 170000,
				BankName: "신한은행", AccountNumber: "110-222-333444", AccountHolder: "이영호"},
			{ID: "w-park", Name: "박민수", TeamID: "team-frame", DefaultUnitPrice: 140000,
				BankName: "농협", AccountHolder: "박민수"},
		},
	)
	if err != nil {
		return err
	}

	var entries []settlement.ReportEntry
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-kim", 1.0, 150000, "", 3, 4, 5, 6, 7)...)
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-lee", 1.0, 0, "", 3, 4, 5)...)
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-lee", 0.5, 0, "", 6)...)
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-park", 1.0, 0, "", 3, 4)...)
	// References a worker that was never registered; dropped by the engine.
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-ghost", 1.0, 150000, "", 5)...)

	return h.Store.AddReports(ctx, entries...)
}

func (h *Handler) loadMonthlyPayrollScenario(ctx context.Context) error {
	err := h.saveDirectories(ctx,
		[]settlement.CompanyRecord{
			{ID: "cmp-client", Name: "(주)한빛건설", Type: settlement.CompanyConstructionClient},
		},
		[]settlement.TeamRecord{
			{ID: "team-office", Name: "현장사무소", Type: settlement.TeamConstruction, CompanyID: "cmp-client"},
			{ID: "team-rebar", Name: "철근팀", Type: settlement.TeamConstruction, CompanyID: "cmp-client"},
		},
		[]settlement.WorkerRecord{
			{ID: "w-choi", Name: "최반장", TeamID: "team-office", DefaultUnitPrice: 150000, DefaultSalaryModel: "monthlyWage",
				BankName: "우리은행", AccountNumber: "1002-123-456789", AccountHolder: "최반장"},
			{ID: "w-jung", Name: "정기사", TeamID: "team-rebar", DefaultUnitPrice: 200000, DefaultSalaryModel: "월급",
				BankName: "하나은행", AccountNumber: "356-910234-56707", AccountHolder: "정기사"},
		},
	)
	if err != nil {
		return err
	}

	// 20 man-days at 150,000 = 3,000,000 gross.
	dayList := []int{3, 4, 5, 6, 7, 10, 11, 12, 13, 14, 17, 18, 19, 20, 21, 24, 25, 26, 27, 28}
	var entries []settlement.ReportEntry
	entries = append(entries, days("rpt-office", "2025-03", "site-a", "team-office", "w-choi", 1.0, 0, "", dayList...)...)
	entries = append(entries, days("rpt-rebar", "2025-03", "site-a", "team-rebar", "w-jung", 1.0, 0, "", dayList[:15]...)...)
	if err := h.Store.AddReports(ctx, entries...); err != nil {
		return err
	}

	override := 450000.0
	records := []settlement.AdvancePaymentRecord{
		{
			WorkerID:       "w-choi",
			TeamID:         "team-office",
			YearMonth:      "2025-03",
			PerItemAmounts: map[string]float64{"advance": 200000, "숙소비": 150000},
			UpdatedAt:      time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC),
		},
		{
			// Recorded under the wrong team; still found through the
			// (worker, month) fallback.
			WorkerID:               "w-jung",
			TeamID:                 "team-office",
			YearMonth:              "2025-03",
			PerItemAmounts:         map[string]float64{"식대": 120000, "가불": 100000},
			TotalDeductionOverride: &override,
			UpdatedAt:              time.Date(2025, time.March, 28, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, rec := range records {
		if err := h.Store.SaveAdvancePayment(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadSupportTeamScenario(ctx context.Context) error {
	err := h.saveDirectories(ctx,
		[]settlement.CompanyRecord{
			{ID: "cmp-client", Name: "(주)한빛건설", Type: settlement.CompanyConstructionClient},
			{ID: "cmp-daesung", Name: "대성인력(주)", Type: settlement.CompanyPartner},
			{ID: "cmp-hanul", Name: "한울기공", Type: settlement.CompanyPartner},
			{ID: "cmp-nosupport", Name: "미래산업", Type: settlement.CompanyPartner},
		},
		[]settlement.TeamRecord{
			{ID: "team-daesung-support", Name: "대성 지원팀", Type: settlement.TeamSupport, CompanyID: "cmp-daesung",
				SupportRate: 180000, SupportModel: settlement.SupportPerManDay, LeaderID: "w-daesung-lead"},
			{ID: "team-hanul-support", Name: "한울 지원팀", Type: settlement.TeamSupport, CompanyName: "한울기공",
				SupportRate: 2500000, SupportModel: settlement.SupportFixed, LeaderName: "오팀장"},
			{ID: "team-frame", Name: "형틀팀", Type: settlement.TeamConstruction, CompanyID: "cmp-client"},
		},
		[]settlement.WorkerRecord{
			{ID: "w-daesung-lead", Name: "윤대성", TeamID: "team-daesung-support", CompanyID: "cmp-daesung",
				BankName: "IBK기업은행", AccountNumber: "010-1234-5678-01", AccountHolder: "윤대성"},
			{ID: "w-d1", Name: "강지원", TeamID: "team-daesung-support", TeamType: settlement.TeamSupport, CompanyID: "cmp-daesung"},
			{ID: "w-d2", Name: "조민재", TeamID: "team-daesung-support", TeamType: settlement.TeamSupport, CompanyID: "cmp-daesung"},
			{ID: "w-h1", Name: "한상우", TeamID: "team-hanul-support", TeamType: settlement.TeamSupport, CompanyID: "cmp-hanul"},
			{ID: "w-h2", Name: "오팀장", TeamID: "team-hanul-support", TeamType: settlement.TeamSupport,
				BankName: "부산은행", AccountNumber: "101-2034-5678-09", AccountHolder: "오팀장"},
			{ID: "w-m1", Name: "임도현", TeamID: "team-frame", CompanyID: "cmp-nosupport", DefaultUnitPrice: 160000,
				BankName: "카카오뱅크", AccountNumber: "3333-01-2345678", AccountHolder: "임도현"},
		},
	)
	if err != nil {
		return err
	}

	var entries []settlement.ReportEntry
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-d1", 1.0, 150000, "", 3, 4, 5)...)
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-d2", 1.0, 150000, "", 3, 4)...)
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-h1", 1.0, 150000, "", 6, 7)...)
	// Flagged as support but the company has no support team configured.
	entries = append(entries, days("rpt-frame", "2025-03", "site-a", "team-frame", "w-m1", 1.0, 0, "지원", 6)...)
	return h.Store.AddReports(ctx, entries...)
}

func (h *Handler) loadCrossMonthScenario(ctx context.Context) error {
	err := h.saveDirectories(ctx,
		[]settlement.CompanyRecord{
			{ID: "cmp-client", Name: "(주)한빛건설", Type: settlement.CompanyConstructionClient},
		},
		[]settlement.TeamRecord{
			{ID: "team-finish", Name: "마감팀", Type: settlement.TeamConstruction, CompanyID: "cmp-client"},
		},
		[]settlement.WorkerRecord{
			{ID: "w-seo", Name: "서준호", TeamID: "team-finish", DefaultUnitPrice: 160000,
				BankName: "토스뱅크", AccountNumber: "1000-1234-5678", AccountHolder: "서준호"},
		},
	)
	if err != nil {
		return err
	}

	var entries []settlement.ReportEntry
	entries = append(entries, days("rpt-finish", "2025-02", "site-b", "team-finish", "w-seo", 1.0, 0, "monthly", 24)...)
	entries = append(entries, days("rpt-finish", "2025-02", "site-b", "team-finish", "w-seo", 1.0, 0, "", 25, 26, 27, 28)...)
	entries = append(entries, days("rpt-finish", "2025-03", "site-b", "team-finish", "w-seo", 1.0, 0, "", 3, 4, 5)...)
	return h.Store.AddReports(ctx, entries...)
}
