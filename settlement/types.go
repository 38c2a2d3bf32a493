/*
Package settlement provides the settlement aggregation engine.

PURPOSE:
  Converts raw per-day attendance entries recorded at construction sites into
  one transfer row per payee for a requested date range. Whether a worker is
  paid a daily wage, a monthly wage, or is billed through a partner company's
  support team, the same pass resolves the pay model, redirects the payee and
  buckets amounts per calendar month.

KEY CONCEPTS IN THIS FILE (types.go):
  - ReportEntry: one worker's attendance on one day at one site (input)
  - WorkerRecord / TeamRecord / CompanyRecord: read-only directory snapshots
  - AdvancePaymentRecord / PayrollConfig: inputs to the deduction stage
  - TransferRow: the aggregated, validated payee row (output)

DESIGN PRINCIPLES:
  1. Read-only inputs: directory records are snapshots, never mutated
  2. Precision: money and man-days use decimal.Decimal, rounded half-up to
     whole currency units on every line
  3. Closed tags: salary model, team type, company type and support model are
     enumerations normalized once at the boundary
  4. Non-finite numbers: NaN/Inf inputs count as zero

USAGE:
  result := settlement.Aggregate(settlement.AggregateInput{
      Entries:   entries,
      Workers:   workers,
      Teams:     teams,
      Companies: companies,
  })
  for _, row := range result.Rows { ... }

SEE ALSO:
  - salary_model.go: pay model resolution with carry-forward
  - support.go: support-team payee redirection
  - aggregate.go: the aggregation pass
  - runner.go: parallel fetch of the directories and run generations
*/
package settlement

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/bank"
)

// =============================================================================
// MONEY
// =============================================================================

var half = decimal.NewFromFloat(0.5)

// RoundHalfUp rounds to whole currency units as floor(x + 0.5).
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// Decimal converts a float read from a store into a decimal. Non-finite
// values become zero so a bad cell never poisons a total.
func Decimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// =============================================================================
// ENUMERATIONS
// =============================================================================

// TeamType classifies a team.
type TeamType string

const (
	TeamSupport      TeamType = "support"
	TeamConstruction TeamType = "construction"
	TeamService      TeamType = "service"
	TeamOther        TeamType = "other"
)

// ParseTeamType normalizes a free-text team type. Empty input stays empty.
func ParseTeamType(s string) TeamType {
	switch NormalizeTag(s) {
	case "":
		return ""
	case "support", "supportteam", "지원", "지원팀":
		return TeamSupport
	case "construction", "constructionteam", "시공", "시공팀", "직영", "직영팀":
		return TeamConstruction
	case "service", "serviceteam", "용역", "용역팀":
		return TeamService
	default:
		return TeamOther
	}
}

// SupportModel is how a support team bills its work.
type SupportModel string

const (
	SupportPerManDay SupportModel = "perManDay"
	SupportFixed     SupportModel = "fixed"
)

// ParseSupportModel normalizes a free-text support model; unknown values
// bill per man-day.
func ParseSupportModel(s string) SupportModel {
	switch NormalizeTag(s) {
	case "fixed", "flat", "monthlyfixed", "고정", "정액":
		return SupportFixed
	default:
		return SupportPerManDay
	}
}

// CompanyType classifies a company.
type CompanyType string

const (
	CompanyConstructionClient CompanyType = "constructionClient"
	CompanyPartner            CompanyType = "partner"
	CompanyOther              CompanyType = "other"
)

// ParseCompanyType normalizes a free-text company type.
func ParseCompanyType(s string) CompanyType {
	switch NormalizeTag(s) {
	case "constructionclient", "client", "건설사", "원청":
		return CompanyConstructionClient
	case "partner", "협력사", "협력업체":
		return CompanyPartner
	default:
		return CompanyOther
	}
}

// =============================================================================
// INPUT RECORDS
// =============================================================================

// ReportEntry is one worker's attendance on one day of a site report.
type ReportEntry struct {
	ReportID        string
	Date            string // YYYY-MM-DD
	SiteID          string
	TeamID          string
	WorkerID        string
	ManDay          float64
	UnitPrice       float64 // 0 = use the worker's default
	SalaryModelHint string
	CompanyID       string
	CompanyName     string
}

// WorkerRecord is a worker directory entry.
type WorkerRecord struct {
	ID                 string
	Name               string
	TeamID             string
	TeamType           TeamType
	CompanyID          string
	DefaultUnitPrice   float64
	DefaultSalaryModel string
	BankName           string
	AccountNumber      string
	AccountHolder      string
}

// TeamRecord is a team directory entry.
type TeamRecord struct {
	ID           string
	Name         string
	Type         TeamType
	CompanyID    string
	CompanyName  string
	ParentTeamID string
	SupportRate  float64
	SupportModel SupportModel
	LeaderID     string
	LeaderName   string
}

// CompanyRecord is a company directory entry.
type CompanyRecord struct {
	ID   string
	Name string
	Type CompanyType
}

// AdvancePaymentRecord holds the advance and other deductions recorded for a
// worker in one month.
type AdvancePaymentRecord struct {
	WorkerID               string
	TeamID                 string
	YearMonth              YearMonth
	PerItemAmounts         map[string]float64
	TotalDeductionOverride *float64
	UpdatedAt              time.Time
}

// InsuranceRates are the statutory insurance rates applied to monthly wages.
type InsuranceRates struct {
	Pension      float64
	Health       float64
	CareOfHealth float64 // applied to the health premium, not to gross pay
	Employment   float64
}

// DeductionItem is one entry of the deduction item catalog.
type DeductionItem struct {
	ID     string
	Label  string
	Active bool
}

// PayrollConfig is the payroll configuration snapshot for a run.
type PayrollConfig struct {
	InsuranceRates       InsuranceRates
	TaxRate              float64
	DeductionItemCatalog []DeductionItem
}

// ActiveItems returns the active catalog items in catalog order.
func (c PayrollConfig) ActiveItems() []DeductionItem {
	var items []DeductionItem
	for _, it := range c.DeductionItemCatalog {
		if it.Active {
			items = append(items, it)
		}
	}
	return items
}

// =============================================================================
// TRANSFER ROW - Aggregated payee row
// =============================================================================

// TransferRow is one payee's settlement for the run.
//
// INVARIANT: TotalAmount always equals the sum of AmountByYearMonth.
// Rows are only mutated through addAmount/setAmount during aggregation.
type TransferRow struct {
	RowKey              string
	PayeeTeamID         string
	PayeeTeamName       string
	PayeeWorkerID       string
	PayeeName           string
	ResolvedSalaryModel SalaryModel
	Redirected          bool
	SupportModel        SupportModel // set on redirected rows only
	TotalManDay         decimal.Decimal
	UnitPrice           decimal.Decimal
	TotalAmount         decimal.Decimal
	AmountByYearMonth   map[YearMonth]decimal.Decimal
	CompanyID           string
	CompanyName         string
	BankName            string
	BankCode            bank.Code
	AccountNumber       string
	AccountHolder       string
	IsValid             bool
	FieldErrors         []bank.FieldError
}

// Months returns the row's year-month buckets in ascending order.
func (r *TransferRow) Months() []YearMonth {
	months := make([]YearMonth, 0, len(r.AmountByYearMonth))
	for ym := range r.AmountByYearMonth {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}

// AmountFor returns the amount bucketed in ym (zero when absent).
func (r *TransferRow) AmountFor(ym YearMonth) decimal.Decimal {
	return r.AmountByYearMonth[ym]
}

// SumOfMonths recomputes the total from the monthly buckets.
func (r *TransferRow) SumOfMonths() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range r.AmountByYearMonth {
		sum = sum.Add(v)
	}
	return sum
}

func (r *TransferRow) addAmount(ym YearMonth, amount decimal.Decimal) {
	r.AmountByYearMonth[ym] = r.AmountByYearMonth[ym].Add(amount)
	r.TotalAmount = r.SumOfMonths()
}

func (r *TransferRow) setAmount(ym YearMonth, amount decimal.Decimal) {
	r.AmountByYearMonth[ym] = amount
	r.TotalAmount = r.SumOfMonths()
}

func (r *TransferRow) applyValidation(v bank.Validation) {
	r.IsValid = v.IsValid
	r.FieldErrors = v.FieldErrors
}

// clone returns a deep copy so callers can never mutate engine state.
func (r *TransferRow) clone() TransferRow {
	c := *r
	c.AmountByYearMonth = make(map[YearMonth]decimal.Decimal, len(r.AmountByYearMonth))
	for k, v := range r.AmountByYearMonth {
		c.AmountByYearMonth[k] = v
	}
	c.FieldErrors = append([]bank.FieldError(nil), r.FieldErrors...)
	return c
}
