/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  Handler.decode before any handler logic runs.

AMOUNTS:
  Money is serialized as decimal strings ("2618878") so no precision is lost
  between the engine and the bank file.

SEE ALSO:
  - handlers.go, settlements.go: Use these types
  - factory/config.go: ConfigJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/bank"
	"github.com/warp/settlement-engine/export"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// SETTLEMENT RUNS
// =============================================================================

// RunSettlementRequest starts a settlement run.
type RunSettlementRequest struct {
	Start  string `json:"start" validate:"required,datetime=2006-01-02"`
	End    string `json:"end" validate:"required,datetime=2006-01-02"`
	TeamID string `json:"team_id,omitempty"`
	SiteID string `json:"site_id,omitempty"`
}

// RunDTO summarizes a completed run and carries its rows.
type RunDTO struct {
	ID              string                     `json:"id"`
	Generation      uint64                     `json:"generation"`
	Start           string                     `json:"start"`
	End             string                     `json:"end"`
	TeamID          string                     `json:"team_id,omitempty"`
	SiteID          string                     `json:"site_id,omitempty"`
	StartedAt       time.Time                  `json:"started_at"`
	FinishedAt      time.Time                  `json:"finished_at"`
	Total           decimal.Decimal            `json:"total"`
	TotalsByMonth   map[string]decimal.Decimal `json:"totals_by_month"`
	InvalidRowCount int                        `json:"invalid_row_count"`
	Diagnostics     DiagnosticsDTO             `json:"diagnostics"`
	Rows            []TransferRowDTO           `json:"rows"`
}

// DiagnosticsDTO reports what happened to the entries of a run.
type DiagnosticsDTO struct {
	Entries     int            `json:"entries"`
	Processed   int            `json:"processed"`
	Dropped     map[string]int `json:"dropped"`
	Resolutions map[string]int `json:"resolutions"`
	Warnings    []WarningDTO   `json:"warnings"`
}

// WarningDTO is a non-fatal run observation.
type WarningDTO struct {
	Code     string `json:"code"`
	WorkerID string `json:"worker_id"`
	Date     string `json:"date"`
	Message  string `json:"message"`
}

// TransferRowDTO is one payee row.
type TransferRowDTO struct {
	RowKey        string                     `json:"row_key"`
	PayeeTeamID   string                     `json:"payee_team_id"`
	PayeeTeamName string                     `json:"payee_team_name"`
	PayeeWorkerID string                     `json:"payee_worker_id"`
	PayeeName     string                     `json:"payee_name"`
	SalaryModel   string                     `json:"salary_model"`
	Redirected    bool                       `json:"redirected"`
	SupportModel  string                     `json:"support_model,omitempty"`
	TotalManDay   decimal.Decimal            `json:"total_man_day"`
	UnitPrice     decimal.Decimal            `json:"unit_price"`
	TotalAmount   decimal.Decimal            `json:"total_amount"`
	AmountByMonth map[string]decimal.Decimal `json:"amount_by_month"`
	CompanyID     string                     `json:"company_id,omitempty"`
	CompanyName   string                     `json:"company_name,omitempty"`
	BankName      string                     `json:"bank_name"`
	BankCode      string                     `json:"bank_code"`
	AccountNumber string                     `json:"account_number"`
	AccountHolder string                     `json:"account_holder"`
	IsValid       bool                       `json:"is_valid"`
	FieldErrors   []FieldErrorDTO            `json:"field_errors,omitempty"`
}

// FieldErrorDTO flags one invalid bank field.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CurrentSettlementResponse is the last published run and the error of the
// most recent failed run, if any.
type CurrentSettlementResponse struct {
	Run       *RunDTO `json:"run"`
	LastError string  `json:"last_error,omitempty"`
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

// DeductionDTO is the deduction breakdown of one row in one month.
type DeductionDTO struct {
	RowKey           string             `json:"row_key"`
	YearMonth        string             `json:"year_month"`
	Withheld         bool               `json:"withheld"`
	GrossPay         decimal.Decimal    `json:"gross_pay"`
	Pension          decimal.Decimal    `json:"pension"`
	Health           decimal.Decimal    `json:"health"`
	Care             decimal.Decimal    `json:"care"`
	Employment       decimal.Decimal    `json:"employment"`
	TotalInsurance   decimal.Decimal    `json:"total_insurance"`
	IncomeTax        decimal.Decimal    `json:"income_tax"`
	AdvanceDeduction decimal.Decimal    `json:"advance_deduction"`
	TotalDeduction   decimal.Decimal    `json:"total_deduction"`
	NetPay           decimal.Decimal    `json:"net_pay"`
	MatchScore       int                `json:"match_score,omitempty"`
	ExactMatch       bool               `json:"exact_match,omitempty"`
	Lines            []DeductionLineDTO `json:"lines,omitempty"`
	Unmapped         []DeductionLineDTO `json:"unmapped,omitempty"`
}

// DeductionLineDTO is one itemized advance deduction.
type DeductionLineDTO struct {
	ID        string          `json:"id"`
	Label     string          `json:"label,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Synthetic bool            `json:"synthetic,omitempty"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

// TransferDTO is one bank transfer file line.
type TransferDTO struct {
	RowKey            string          `json:"row_key"`
	PayeeName         string          `json:"payee_name"`
	BankName          string          `json:"bank_name"`
	BankCode          string          `json:"bank_code"`
	AccountNumber     string          `json:"account_number"`
	AccountHolder     string          `json:"account_holder"`
	TransferAmount    decimal.Decimal `json:"transfer_amount"`
	DepositDisplay    string          `json:"deposit_display"`
	WithdrawalDisplay string          `json:"withdrawal_display"`
	IsValid           bool            `json:"is_valid"`
}

// TransferOverrideRequest replaces the display texts of one row.
type TransferOverrideRequest struct {
	RowKey            string `json:"row_key" validate:"required"`
	DepositDisplay    string `json:"deposit_display"`
	WithdrawalDisplay string `json:"withdrawal_display"`
}

// =============================================================================
// DIRECTORIES
// =============================================================================

// WorkerDTO represents a worker in requests and responses.
type WorkerDTO struct {
	ID                 string  `json:"id" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	TeamID             string  `json:"team_id"`
	TeamType           string  `json:"team_type"`
	CompanyID          string  `json:"company_id"`
	DefaultUnitPrice   float64 `json:"default_unit_price" validate:"gte=0"`
	DefaultSalaryModel string  `json:"default_salary_model"`
	BankName           string  `json:"bank_name"`
	AccountNumber      string  `json:"account_number"`
	AccountHolder      string  `json:"account_holder"`
}

// TeamDTO represents a team in requests and responses.
type TeamDTO struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type"`
	CompanyID    string  `json:"company_id"`
	CompanyName  string  `json:"company_name"`
	ParentTeamID string  `json:"parent_team_id"`
	SupportRate  float64 `json:"support_rate" validate:"gte=0"`
	SupportModel string  `json:"support_model" validate:"omitempty,oneof=perManDay fixed"`
	LeaderID     string  `json:"leader_id"`
	LeaderName   string  `json:"leader_name"`
}

// CompanyDTO represents a company in requests and responses.
type CompanyDTO struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	Type string `json:"type"`
}

// ReportEntryDTO is one attendance entry.
type ReportEntryDTO struct {
	ReportID        string  `json:"report_id" validate:"required"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	SiteID          string  `json:"site_id"`
	TeamID          string  `json:"team_id"`
	WorkerID        string  `json:"worker_id" validate:"required"`
	ManDay          float64 `json:"man_day" validate:"gte=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	SalaryModelHint string  `json:"salary_model_hint"`
	CompanyID       string  `json:"company_id"`
	CompanyName     string  `json:"company_name"`
}

// CreateReportsRequest adds a batch of entries.
type CreateReportsRequest struct {
	Entries []ReportEntryDTO `json:"entries" validate:"required,min=1,dive"`
}

// AdvancePaymentDTO is a monthly advance deduction record.
type AdvancePaymentDTO struct {
	WorkerID               string             `json:"worker_id" validate:"required"`
	TeamID                 string             `json:"team_id"`
	YearMonth              string             `json:"year_month" validate:"required,datetime=2006-01"`
	PerItemAmounts         map[string]float64 `json:"per_item_amounts"`
	TotalDeductionOverride *float64           `json:"total_deduction_override,omitempty" validate:"omitempty,gte=0"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(run *settlement.Run) RunDTO {
	res := run.Result
	dto := RunDTO{
		ID:              run.ID,
		Generation:      run.Generation,
		Start:           run.Query.Range.StartString(),
		End:             run.Query.Range.EndString(),
		TeamID:          run.Query.TeamID,
		SiteID:          run.Query.SiteID,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		Total:           res.Total(),
		TotalsByMonth:   make(map[string]decimal.Decimal),
		InvalidRowCount: res.InvalidRowCount(),
		Diagnostics: DiagnosticsDTO{
			Entries:     res.Diagnostics.Entries,
			Processed:   res.Diagnostics.Processed,
			Dropped:     make(map[string]int),
			Resolutions: res.Diagnostics.Resolutions,
			Warnings:    []WarningDTO{},
		},
		Rows: make([]TransferRowDTO, 0, len(res.Rows)),
	}
	for ym, total := range res.TotalsByYearMonth() {
		dto.TotalsByMonth[string(ym)] = total
	}
	for reason, n := range res.Diagnostics.Dropped {
		dto.Diagnostics.Dropped[string(reason)] = n
	}
	for _, w := range res.Diagnostics.Warnings {
		dto.Diagnostics.Warnings = append(dto.Diagnostics.Warnings, WarningDTO{
			Code:     string(w.Code),
			WorkerID: w.WorkerID,
			Date:     w.Date,
			Message:  w.Message,
		})
	}
	for _, row := range res.Rows {
		dto.Rows = append(dto.Rows, toTransferRowDTO(row))
	}
	return dto
}

func toTransferRowDTO(row settlement.TransferRow) TransferRowDTO {
	dto := TransferRowDTO{
		RowKey:        row.RowKey,
		PayeeTeamID:   row.PayeeTeamID,
		PayeeTeamName: row.PayeeTeamName,
		PayeeWorkerID: row.PayeeWorkerID,
		PayeeName:     row.PayeeName,
		SalaryModel:   string(row.ResolvedSalaryModel),
		Redirected:    row.Redirected,
		SupportModel:  string(row.SupportModel),
		TotalManDay:   row.TotalManDay,
		UnitPrice:     row.UnitPrice,
		TotalAmount:   row.TotalAmount,
		AmountByMonth: make(map[string]decimal.Decimal, len(row.AmountByYearMonth)),
		CompanyID:     row.CompanyID,
		CompanyName:   row.CompanyName,
		BankName:      row.BankName,
		BankCode:      string(row.BankCode),
		AccountNumber: row.AccountNumber,
		AccountHolder: row.AccountHolder,
		IsValid:       row.IsValid,
	}
	for ym, amount := range row.AmountByYearMonth {
		dto.AmountByMonth[string(ym)] = amount
	}
	for _, fe := range row.FieldErrors {
		dto.FieldErrors = append(dto.FieldErrors, toFieldErrorDTO(fe))
	}
	return dto
}

func toFieldErrorDTO(fe bank.FieldError) FieldErrorDTO {
	return FieldErrorDTO{Field: string(fe.Field), Code: fe.Code, Message: fe.Message}
}

func toDeductionDTO(d payroll.MonthDeduction) DeductionDTO {
	dto := DeductionDTO{
		RowKey:           d.RowKey,
		YearMonth:        string(d.YearMonth),
		Withheld:         d.Withheld,
		GrossPay:         d.GrossPay,
		Pension:          d.Pension,
		Health:           d.Health,
		Care:             d.Care,
		Employment:       d.Employment,
		TotalInsurance:   d.TotalInsurance,
		IncomeTax:        d.IncomeTax,
		AdvanceDeduction: d.AdvanceDeduction,
		TotalDeduction:   d.TotalDeduction,
		NetPay:           d.NetPay,
	}
	if d.Match != nil {
		dto.MatchScore = d.Match.Score
		dto.ExactMatch = d.Match.Exact
	}
	if d.Lines != nil {
		for _, l := range d.Lines.Items {
			dto.Lines = append(dto.Lines, DeductionLineDTO{ID: l.ID, Label: l.Label, Amount: l.Amount, Synthetic: l.Synthetic})
		}
		for _, u := range d.Lines.Unmapped {
			dto.Unmapped = append(dto.Unmapped, DeductionLineDTO{ID: u.Key, Amount: u.Amount})
		}
	}
	return dto
}

func toTransferDTO(t export.Tuple) TransferDTO {
	return TransferDTO{
		RowKey:            t.RowKey,
		PayeeName:         t.PayeeName,
		BankName:          t.BankName,
		BankCode:          string(t.BankCode),
		AccountNumber:     t.AccountNumber,
		AccountHolder:     t.AccountHolder,
		TransferAmount:    t.TransferAmount,
		DepositDisplay:    t.DepositDisplay,
		WithdrawalDisplay: t.WithdrawalDisplay,
		IsValid:           t.IsValid,
	}
}

func (d WorkerDTO) record() settlement.WorkerRecord {
	return settlement.WorkerRecord{
		ID:                 d.ID,
		Name:               d.Name,
		TeamID:             d.TeamID,
		TeamType:           settlement.ParseTeamType(d.TeamType),
		CompanyID:          d.CompanyID,
		DefaultUnitPrice:   d.DefaultUnitPrice,
		DefaultSalaryModel: d.DefaultSalaryModel,
		BankName:           d.BankName,
		AccountNumber:      d.AccountNumber,
		AccountHolder:      d.AccountHolder,
	}
}

func toWorkerDTO(w settlement.WorkerRecord) WorkerDTO {
	return WorkerDTO{
		ID:                 w.ID,
		Name:               w.Name,
		TeamID:             w.TeamID,
		TeamType:           string(w.TeamType),
		CompanyID:          w.CompanyID,
		DefaultUnitPrice:   w.DefaultUnitPrice,
		DefaultSalaryModel: w.DefaultSalaryModel,
		BankName:           w.BankName,
		AccountNumber:      w.AccountNumber,
		AccountHolder:      w.AccountHolder,
	}
}

func (d TeamDTO) record() settlement.TeamRecord {
	return settlement.TeamRecord{
		ID:           d.ID,
		Name:         d.Name,
		Type:         settlement.ParseTeamType(d.Type),
		CompanyID:    d.CompanyID,
		CompanyName:  d.CompanyName,
		ParentTeamID: d.ParentTeamID,
		SupportRate:  d.SupportRate,
		SupportModel: settlement.ParseSupportModel(d.SupportModel),
		LeaderID:     d.LeaderID,
		LeaderName:   d.LeaderName,
	}
}

func toTeamDTO(t settlement.TeamRecord) TeamDTO {
	return TeamDTO{
		ID:           t.ID,
		Name:         t.Name,
		Type:         string(t.Type),
		CompanyID:    t.CompanyID,
		CompanyName:  t.CompanyName,
		ParentTeamID: t.ParentTeamID,
		SupportRate:  t.SupportRate,
		SupportModel: string(t.SupportModel),
		LeaderID:     t.LeaderID,
		LeaderName:   t.LeaderName,
	}
}

func (d CompanyDTO) record() settlement.CompanyRecord {
	return settlement.CompanyRecord{ID: d.ID, Name: d.Name, Type: settlement.ParseCompanyType(d.Type)}
}

func toCompanyDTO(c settlement.CompanyRecord) CompanyDTO {
	return CompanyDTO{ID: c.ID, Name: c.Name, Type: string(c.Type)}
}

func (d ReportEntryDTO) record() settlement.ReportEntry {
	return settlement.ReportEntry{
		ReportID:        d.ReportID,
		Date:            d.Date,
		SiteID:          d.SiteID,
		TeamID:          d.TeamID,
		WorkerID:        d.WorkerID,
		ManDay:          d.ManDay,
		UnitPrice:       d.UnitPrice,
		SalaryModelHint: d.SalaryModelHint,
		CompanyID:       d.CompanyID,
		CompanyName:     d.CompanyName,
	}
}

func toReportEntryDTO(e settlement.ReportEntry) ReportEntryDTO {
	return ReportEntryDTO{
		ReportID:        e.ReportID,
		Date:            e.Date,
		SiteID:          e.SiteID,
		TeamID:          e.TeamID,
		WorkerID:        e.WorkerID,
		ManDay:          e.ManDay,
		UnitPrice:       e.UnitPrice,
		SalaryModelHint: e.SalaryModelHint,
		CompanyID:       e.CompanyID,
		CompanyName:     e.CompanyName,
	}
}

func (d AdvancePaymentDTO) record() settlement.AdvancePaymentRecord {
	return settlement.AdvancePaymentRecord{
		WorkerID:               d.WorkerID,
		TeamID:                 d.TeamID,
		YearMonth:              settlement.YearMonth(d.YearMonth),
		PerItemAmounts:         d.PerItemAmounts,
		TotalDeductionOverride: d.TotalDeductionOverride,
		UpdatedAt:              d.UpdatedAt,
	}
}

func toAdvancePaymentDTO(r settlement.AdvancePaymentRecord) AdvancePaymentDTO {
	return AdvancePaymentDTO{
		WorkerID:               r.WorkerID,
		TeamID:                 r.TeamID,
		YearMonth:              string(r.YearMonth),
		PerItemAmounts:         r.PerItemAmounts,
		TotalDeductionOverride: r.TotalDeductionOverride,
		UpdatedAt:              r.UpdatedAt,
	}
}
