package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func statutoryRates() settlement.InsuranceRates {
	return settlement.InsuranceRates{
		Pension:      0.045,
		Health:       0.03545,
		CareOfHealth: 0.1295,
		Employment:   0.009,
	}
}

func statutoryConfig() settlement.PayrollConfig {
	return settlement.PayrollConfig{
		InsuranceRates:       statutoryRates(),
		TaxRate:              0.033,
		DeductionItemCatalog: payroll.DefaultCatalog(),
	}
}

// =============================================================================
// CALCULATE TESTS
// =============================================================================

func TestCalculate_MonthlyWage_StatutoryRates(t *testing.T) {
	// GIVEN: 3,000,000 gross at the statutory rates and no advance
	// WHEN: Calculating
	// THEN: Every line matches the published worked example

	r := payroll.Calculate(dec("3000000"), statutoryRates(), 0.033, decimal.Zero)

	assertDecimal(t, "135000", r.Pension, "pension")
	assertDecimal(t, "106350", r.Health, "health")
	assertDecimal(t, "13772", r.Care, "care")
	assertDecimal(t, "27000", r.Employment, "employment")
	assertDecimal(t, "282122", r.TotalInsurance, "total insurance")
	assertDecimal(t, "99000", r.IncomeTax, "income tax")
	assertDecimal(t, "0", r.AdvanceDeduction, "advance")
	assertDecimal(t, "381122", r.TotalDeduction, "total deduction")
	assertDecimal(t, "2618878", r.NetPay, "net pay")
	assert.True(t, r.Withheld)
}

func TestCalculate_CareFollowsRoundedHealth(t *testing.T) {
	// GIVEN: A gross where health rounds up from .5
	// WHEN: Calculating
	// THEN: Care is computed on the rounded health premium

	// health = 1,030,000 × 0.03545 = 36,513.5 → 36,514
	// care = 36,514 × 0.1295 = 4,728.563 → 4,729 (4,728 if taken from 36,513.5)
	r := payroll.Calculate(dec("1030000"), statutoryRates(), 0, decimal.Zero)

	assertDecimal(t, "36514", r.Health, "health")
	assertDecimal(t, "4729", r.Care, "care")
}

func TestCalculate_CareMovesWithHealthRateAtFixedGross(t *testing.T) {
	// GIVEN: The same 3,000,000 gross under two health rates
	// WHEN: Calculating both
	// THEN: Care follows the health premium while the other lines stay put

	base := payroll.Calculate(dec("3000000"), statutoryRates(), 0.033, decimal.Zero)

	rates := statutoryRates()
	rates.Health = 0.04
	raised := payroll.Calculate(dec("3000000"), rates, 0.033, decimal.Zero)

	assertDecimal(t, "13772", base.Care, "care at 3.545%")
	// health = 3,000,000 × 0.04 = 120,000; care = 120,000 × 0.1295 = 15,540
	assertDecimal(t, "120000", raised.Health, "health at 4%")
	assertDecimal(t, "15540", raised.Care, "care at 4%")
	assertDecimal(t, base.Pension.String(), raised.Pension, "pension")
	assertDecimal(t, base.Employment.String(), raised.Employment, "employment")
}

func TestCalculate_NetMayGoNegative(t *testing.T) {
	r := payroll.Calculate(dec("100000"), statutoryRates(), 0.033, dec("500000"))

	// 4,500 + 3,545 + 459 + 900 = 9,404 insurance, 3,300 tax
	assertDecimal(t, "9404", r.TotalInsurance, "total insurance")
	assertDecimal(t, "512704", r.TotalDeduction, "total deduction")
	assertDecimal(t, "-412704", r.NetPay, "net pay")
}

func TestCalculate_ZeroGross(t *testing.T) {
	r := payroll.Calculate(decimal.Zero, statutoryRates(), 0.033, decimal.Zero)

	assertDecimal(t, "0", r.TotalDeduction, "total deduction")
	assertDecimal(t, "0", r.NetPay, "net pay")
}

func TestPassThrough_NetEqualsGross(t *testing.T) {
	r := payroll.PassThrough(dec("450000"))

	assertDecimal(t, "450000", r.NetPay, "net pay")
	assertDecimal(t, "0", r.TotalDeduction, "total deduction")
	assert.False(t, r.Withheld)
}

func TestWithholds_OnlyMonthlyWage(t *testing.T) {
	assert.True(t, payroll.Withholds(settlement.MonthlyWage))
	assert.False(t, payroll.Withholds(settlement.DailyWage))
	assert.False(t, payroll.Withholds(settlement.SupportTeam))
	assert.False(t, payroll.Withholds(settlement.ServiceTeam))
}
