package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// MonthDeduction is the deduction breakdown of one row in one month.
type MonthDeduction struct {
	RowKey    string
	YearMonth settlement.YearMonth
	DeductionResult
	Lines *Lines // nil when no advance record matched
	Match *Match
}

// Calculator applies a run's payroll configuration and advance records to
// its rows.
type Calculator struct {
	config  settlement.PayrollConfig
	matcher *AdvanceMatcher
}

// NewCalculator prepares the calculator of one run.
func NewCalculator(cfg settlement.PayrollConfig, advances []settlement.AdvancePaymentRecord, rows []settlement.TransferRow) *Calculator {
	return &Calculator{config: cfg, matcher: NewAdvanceMatcher(advances, rows)}
}

// ForRun builds the calculator for a completed run.
func ForRun(run *settlement.Run) *Calculator {
	return NewCalculator(run.Config, run.Advances, run.Result.Rows)
}

// ForMonth computes the deductions of row in ym. Rows of models without
// withholding pass their month amount through.
func (c *Calculator) ForMonth(row settlement.TransferRow, ym settlement.YearMonth) MonthDeduction {
	gross := row.AmountFor(ym)
	out := MonthDeduction{RowKey: row.RowKey, YearMonth: ym}

	if !Withholds(row.ResolvedSalaryModel) {
		out.DeductionResult = PassThrough(gross)
		return out
	}

	advance := decimal.Zero
	if m, ok := c.matcher.Match(row.PayeeTeamID, row.PayeeWorkerID, ym); ok {
		lines := DeductionLines(c.config, m.Record)
		out.Match = &m
		out.Lines = &lines
		advance = lines.Total
	}
	out.DeductionResult = Calculate(gross, c.config.InsuranceRates, c.config.TaxRate, advance)
	return out
}

// ForRow computes every month of row in ascending order.
func (c *Calculator) ForRow(row settlement.TransferRow) []MonthDeduction {
	months := row.Months()
	out := make([]MonthDeduction, 0, len(months))
	for _, ym := range months {
		out = append(out, c.ForMonth(row, ym))
	}
	return out
}

// NetTotal is the amount actually transferred for row: the sum of monthly
// net pay for withheld rows, the row total otherwise.
func (c *Calculator) NetTotal(row settlement.TransferRow) decimal.Decimal {
	if !Withholds(row.ResolvedSalaryModel) {
		return row.TotalAmount
	}
	sum := decimal.Zero
	for _, d := range c.ForRow(row) {
		sum = sum.Add(d.NetPay)
	}
	return sum
}
