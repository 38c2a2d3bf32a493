/*
Package payroll computes statutory deductions and net pay for settled rows.

PURPOSE:
  Monthly-wage rows are subject to statutory withholding per calendar month.
  Daily-wage, support-team and service-team rows carry no withholding: their
  month amount passes through as net pay.

ROUNDING:
  Every line is rounded half-up to a whole won (floor(x + 0.5)) on its own.
  Totals are sums of rounded lines, never rounded again.

CARE INSURANCE:
  care = round(health × careOfHealth). It is based on the rounded health
  premium, not on gross pay, so a change to the health rate moves care too.

SEE ALSO:
  - advance.go: finds the advance record of a (team, worker, month)
  - items.go: turns a record into catalog deduction lines
  - calculator.go: applies all of the above to a TransferRow
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// DeductionResult is the deduction breakdown of one gross amount.
type DeductionResult struct {
	GrossPay         decimal.Decimal
	Pension          decimal.Decimal
	Health           decimal.Decimal
	Care             decimal.Decimal
	Employment       decimal.Decimal
	TotalInsurance   decimal.Decimal
	IncomeTax        decimal.Decimal
	AdvanceDeduction decimal.Decimal
	TotalDeduction   decimal.Decimal
	NetPay           decimal.Decimal // may be negative
	Withheld         bool            // false for pass-through rows
}

// Calculate applies the insurance rates, the income tax rate and an advance
// deduction to gross pay. Non-finite rates count as zero. A net pay below
// zero is returned as is.
func Calculate(gross decimal.Decimal, rates settlement.InsuranceRates, taxRate float64, advance decimal.Decimal) DeductionResult {
	r := DeductionResult{GrossPay: gross, Withheld: true}

	r.Pension = settlement.RoundHalfUp(gross.Mul(settlement.Decimal(rates.Pension)))
	r.Health = settlement.RoundHalfUp(gross.Mul(settlement.Decimal(rates.Health)))
	r.Care = settlement.RoundHalfUp(r.Health.Mul(settlement.Decimal(rates.CareOfHealth)))
	r.Employment = settlement.RoundHalfUp(gross.Mul(settlement.Decimal(rates.Employment)))
	r.TotalInsurance = r.Pension.Add(r.Health).Add(r.Care).Add(r.Employment)

	r.IncomeTax = settlement.RoundHalfUp(gross.Mul(settlement.Decimal(taxRate)))
	r.AdvanceDeduction = advance
	r.TotalDeduction = r.TotalInsurance.Add(r.IncomeTax).Add(advance)
	r.NetPay = gross.Sub(r.TotalDeduction)
	return r
}

// PassThrough is the result for rows without withholding: net equals gross.
func PassThrough(gross decimal.Decimal) DeductionResult {
	zero := decimal.Zero
	return DeductionResult{
		GrossPay:         gross,
		Pension:          zero,
		Health:           zero,
		Care:             zero,
		Employment:       zero,
		TotalInsurance:   zero,
		IncomeTax:        zero,
		AdvanceDeduction: zero,
		TotalDeduction:   zero,
		NetPay:           gross,
	}
}

// Withholds reports whether rows of the model are subject to deductions.
func Withholds(model settlement.SalaryModel) bool {
	return model == settlement.MonthlyWage
}
