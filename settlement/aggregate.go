/*
aggregate.go - The aggregation pass

PURPOSE:
  Consumes the date-ordered entry stream of one run and produces exactly one
  TransferRow per payee. Every entry goes through the same pipeline:

    date → year-month bucket
    worker lookup             (missing → dropped, counted)
    team lookup               (unknown team id → dropped, counted)
    salary model resolution   (carry-forward state of this run)
    support redirection       (supportTeam entries only)
    row keying + accumulation

ROW KEYS:
  ordinary:   {salaryModel}_{teamId}_{workerId}
  redirected: support_{supportTeamId}_{companyId|companyName}_{payeeId|payeeName}
  Salary model names never equal "support", so the key spaces cannot collide.
  Each component is escaped ("%" → "%25", "_" → "%5F") before joining, so
  ids that contain "_" still produce distinct keys.

AMOUNTS:
  grossPay = round(manDay × unitPrice), added to the row total and to the
  entry's year-month bucket. A fixed-model support row SETS its month to the
  flat rate instead.

PURITY:
  Aggregate has no side effects and no I/O. The same inputs always produce
  the same rows in the same order (first-seen order after a stable date sort).
*/
package settlement

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/bank"
)

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// DropReason explains why an entry did not reach any row.
type DropReason string

const (
	DropMissingWorker DropReason = "missing_worker"
	DropMissingTeam   DropReason = "missing_team"
	DropInvalidDate   DropReason = "invalid_date"
)

// WarningCode classifies a non-fatal observation made during a run.
type WarningCode string

// WarnSupportFallthrough: an entry resolved to supportTeam but its company
// has no support team; it was settled on the ordinary path.
const WarnSupportFallthrough WarningCode = "support_fallthrough"

// Warning is a non-fatal observation attached to a result.
type Warning struct {
	Code     WarningCode
	WorkerID string
	Date     string
	Message  string
}

// Diagnostics counts what happened to the entries of a run.
type Diagnostics struct {
	Entries     int
	Processed   int
	Dropped     map[DropReason]int
	Warnings    []Warning
	Resolutions map[string]int // salary model resolution step → entries
}

// DroppedTotal returns the number of dropped entries.
func (d Diagnostics) DroppedTotal() int {
	total := 0
	for _, n := range d.Dropped {
		total += n
	}
	return total
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the frozen output of an aggregation pass.
type Result struct {
	Rows        []TransferRow
	Diagnostics Diagnostics
}

// Row returns a copy of the row with the given key.
func (r *Result) Row(key string) (TransferRow, error) {
	for i := range r.Rows {
		if r.Rows[i].RowKey == key {
			return r.Rows[i].clone(), nil
		}
	}
	return TransferRow{}, ErrRowNotFound
}

// InvalidRowCount returns the number of rows failing bank validation.
func (r *Result) InvalidRowCount() int {
	n := 0
	for _, row := range r.Rows {
		if !row.IsValid {
			n++
		}
	}
	return n
}

// Total returns the sum of all row totals.
func (r *Result) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, row := range r.Rows {
		sum = sum.Add(row.TotalAmount)
	}
	return sum
}

// TotalsByYearMonth sums every row per year-month bucket.
func (r *Result) TotalsByYearMonth() map[YearMonth]decimal.Decimal {
	totals := make(map[YearMonth]decimal.Decimal)
	for _, row := range r.Rows {
		for ym, amount := range row.AmountByYearMonth {
			totals[ym] = totals[ym].Add(amount)
		}
	}
	return totals
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateInput is the fully resolved lookup universe of a run.
type AggregateInput struct {
	Entries   []ReportEntry
	Workers   []WorkerRecord
	Teams     []TeamRecord
	Companies []CompanyRecord
}

// Aggregate groups the entries into payee rows.
func Aggregate(in AggregateInput) *Result {
	a := &aggregator{
		idx:   NewIndex(in.Workers, in.Teams, in.Companies),
		state: NewCarryForward(),
		rows:  make(map[rowID]*TransferRow),
		diag: Diagnostics{
			Entries:     len(in.Entries),
			Dropped:     make(map[DropReason]int),
			Resolutions: make(map[string]int),
		},
	}

	for _, entry := range sortByDate(in.Entries) {
		a.add(entry)
	}
	return a.result()
}

// sortByDate returns a copy of the entries in date order. The sort is
// stable so same-day entries keep their report order.
func sortByDate(entries []ReportEntry) []ReportEntry {
	sorted := make([]ReportEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

// rowID identifies a payee row. Ordinary rows leave company empty.
type rowID struct {
	model   string
	team    string
	company string
	payee   string
}

func ordinaryRowID(model SalaryModel, teamID, workerID string) rowID {
	return rowID{model: string(model), team: teamID, payee: workerID}
}

var keyEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// key renders the exported row key.
func (id rowID) key() string {
	parts := []string{id.model, id.team}
	if id.model == supportKeyPrefix {
		parts = append(parts, id.company)
	}
	parts = append(parts, id.payee)
	for i, p := range parts {
		parts[i] = keyEscaper.Replace(p)
	}
	return strings.Join(parts, "_")
}

const supportKeyPrefix = "support"

type aggregator struct {
	idx   *Index
	state *CarryForward
	rows  map[rowID]*TransferRow
	order []rowID
	diag  Diagnostics
}

func (a *aggregator) drop(reason DropReason) {
	a.diag.Dropped[reason]++
}

func (a *aggregator) add(entry ReportEntry) {
	ym, ok := YearMonthOf(entry.Date)
	if !ok {
		a.drop(DropInvalidDate)
		return
	}
	worker, ok := a.idx.Worker(entry.WorkerID)
	if !ok {
		a.drop(DropMissingWorker)
		return
	}
	if !isSentinelID(entry.TeamID) {
		if _, ok := a.idx.Team(entry.TeamID); !ok {
			a.drop(DropMissingTeam)
			return
		}
	}

	worker = a.withTeamType(worker)
	res := ResolveSalaryModel(entry, worker, ym, a.state)
	a.diag.Resolutions[res.Step]++

	manDay := Decimal(entry.ManDay)
	unitPrice := Decimal(entry.UnitPrice)
	if !unitPrice.IsPositive() {
		unitPrice = Decimal(worker.DefaultUnitPrice)
	}

	a.diag.Processed++

	if res.Model == SupportTeam {
		if rd, ok := RedirectSupport(entry, worker, a.idx); ok {
			a.addSupport(ym, rd, manDay, unitPrice)
			return
		}
		a.diag.Warnings = append(a.diag.Warnings, Warning{
			Code:     WarnSupportFallthrough,
			WorkerID: worker.ID,
			Date:     entry.Date,
			Message:  "no support team configured for the worker's company; settled as an ordinary entry",
		})
	}
	a.addOrdinary(entry, ym, worker, res.Model, manDay, unitPrice)
}

// withTeamType fills a missing worker team type from the team directory.
func (a *aggregator) withTeamType(w WorkerRecord) WorkerRecord {
	if w.TeamType != "" {
		return w
	}
	if t, ok := a.idx.Team(w.TeamID); ok {
		w.TeamType = t.Type
	}
	return w
}

func (a *aggregator) addOrdinary(entry ReportEntry, ym YearMonth, worker WorkerRecord, model SalaryModel, manDay, unitPrice decimal.Decimal) {
	teamID := entry.TeamID
	if isSentinelID(teamID) {
		teamID = worker.TeamID
	}
	if isSentinelID(teamID) {
		teamID = ""
	}
	id := ordinaryRowID(model, teamID, worker.ID)

	row, ok := a.rows[id]
	if !ok {
		team, _ := a.idx.Team(teamID)
		companyID := worker.CompanyID
		if isSentinelID(companyID) {
			companyID = team.CompanyID
		}
		companyName := team.CompanyName
		if c, found := a.idx.Company(companyID); found {
			companyName = c.Name
		}

		row = a.newRow(id)
		row.PayeeTeamID = teamID
		row.PayeeTeamName = team.Name
		row.PayeeWorkerID = worker.ID
		row.PayeeName = worker.Name
		row.ResolvedSalaryModel = model
		row.UnitPrice = unitPrice
		row.CompanyID = companyID
		row.CompanyName = companyName
		row.setPayee(bank.PayeeFor(worker.BankName, worker.AccountNumber, worker.AccountHolder))
	}

	row.TotalManDay = row.TotalManDay.Add(manDay)
	row.addAmount(ym, RoundHalfUp(manDay.Mul(unitPrice)))
}

func (a *aggregator) addSupport(ym YearMonth, rd Redirect, manDay, unitPrice decimal.Decimal) {
	id := rd.rowID()

	row, ok := a.rows[id]
	if !ok {
		row = a.newRow(id)
		row.PayeeTeamID = rd.SupportTeam.ID
		row.PayeeTeamName = rd.SupportTeam.Name
		row.PayeeWorkerID = rd.PayeeID()
		row.PayeeName = rd.PayeeName
		row.ResolvedSalaryModel = SupportTeam
		row.Redirected = true
		row.SupportModel = rd.SupportTeam.SupportModel
		row.UnitPrice = rd.Rate(unitPrice)
		row.CompanyID = rd.Company.ID
		row.CompanyName = rd.Company.Name

		var payee bank.Payee
		if rd.LeaderFound {
			payee = bank.PayeeFor(rd.Leader.BankName, rd.Leader.AccountNumber, rd.Leader.AccountHolder)
		}
		row.setPayee(payee)
	}

	row.TotalManDay = row.TotalManDay.Add(manDay)
	amount, replace := rd.Contribution(manDay, unitPrice)
	if replace {
		row.setAmount(ym, amount)
	} else {
		row.addAmount(ym, amount)
	}
}

func (a *aggregator) newRow(id rowID) *TransferRow {
	row := &TransferRow{
		RowKey:            id.key(),
		TotalManDay:       decimal.Zero,
		UnitPrice:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		AmountByYearMonth: make(map[YearMonth]decimal.Decimal),
	}
	a.rows[id] = row
	a.order = append(a.order, id)
	return row
}

func (a *aggregator) result() *Result {
	rows := make([]TransferRow, 0, len(a.order))
	for _, id := range a.order {
		rows = append(rows, a.rows[id].clone())
	}
	return &Result{Rows: rows, Diagnostics: a.diag}
}

// setPayee copies the bank fields onto the row and validates them once.
func (r *TransferRow) setPayee(p bank.Payee) {
	r.BankName = p.BankName
	r.BankCode = p.BankCode
	r.AccountNumber = p.AccountNumber
	r.AccountHolder = p.AccountHolder
	r.applyValidation(bank.Validate(p))
}
