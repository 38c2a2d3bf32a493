package payroll_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/settlement/store"
)

// =============================================================================
// DEDUCTION LINE TESTS
// =============================================================================

func TestDeductionLines_MergesLegacyKeysInCatalogOrder(t *testing.T) {
	// GIVEN: A record mixing canonical ids, legacy Korean keys, an unknown
	//        key and an inactive item
	// WHEN: Building the lines
	// THEN: Known keys merge onto their catalog line; the rest is reported

	rec := advance("w1", "t1", at(1), map[string]float64{
		"advance": 100000,
		"가불":      50000,
		"숙소비":     150000.4,
		"parking": 3000,
		"장비":      20000,
		"식대":      0,
	})

	lines := payroll.DeductionLines(settlement.PayrollConfig{}, rec)

	ids := make([]string, len(lines.Items))
	for i, l := range lines.Items {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{payroll.ItemAdvance, payroll.ItemHousing, payroll.ItemMeals, payroll.ItemUtilities, payroll.ItemOther}, ids)
	assertDecimal(t, "150000", lines.Items[0].Amount, "advance")
	assertDecimal(t, "150000", lines.Items[1].Amount, "housing")
	assertDecimal(t, "0", lines.Items[2].Amount, "meals")
	assertDecimal(t, "300000", lines.Total, "total")

	require.Len(t, lines.Unmapped, 2)
	assert.Equal(t, "parking", lines.Unmapped[0].Key)
	assert.Equal(t, "장비", lines.Unmapped[1].Key)
}

func TestDeductionLines_OverrideAboveSumAddsSyntheticLine(t *testing.T) {
	override := 450000.0
	rec := advance("w1", "t1", at(1), map[string]float64{"식대": 120000, "가불": 100000})
	rec.TotalDeductionOverride = &override

	lines := payroll.DeductionLines(statutoryConfig(), rec)

	last := lines.Items[len(lines.Items)-1]
	assert.True(t, last.Synthetic)
	assert.Equal(t, payroll.OverrideLineID, last.ID)
	assertDecimal(t, "230000", last.Amount, "remainder")
	assertDecimal(t, "450000", lines.Total, "total")
}

func TestDeductionLines_OverrideBelowSumIsIgnored(t *testing.T) {
	override := 100000.0
	rec := advance("w1", "t1", at(1), map[string]float64{"식대": 120000, "가불": 100000})
	rec.TotalDeductionOverride = &override

	lines := payroll.DeductionLines(statutoryConfig(), rec)

	for _, l := range lines.Items {
		assert.False(t, l.Synthetic)
	}
	assertDecimal(t, "220000", lines.Total, "total")
}

func TestDeductionLines_CustomCatalog(t *testing.T) {
	cfg := statutoryConfig()
	cfg.DeductionItemCatalog = []settlement.DeductionItem{
		{ID: "uniform", Label: "작업복", Active: true},
		{ID: payroll.ItemAdvance, Label: "가불금", Active: true},
	}
	rec := advance("w1", "t1", at(1), map[string]float64{"uniform": 30000, "선지급": 70000, "숙소비": 10000})

	lines := payroll.DeductionLines(cfg, rec)

	require.Len(t, lines.Items, 2)
	assert.Equal(t, "uniform", lines.Items[0].ID)
	assertDecimal(t, "100000", lines.Total, "total")
	require.Len(t, lines.Unmapped, 1, "housing is not in this catalog")
	assert.Equal(t, "숙소비", lines.Unmapped[0].Key)
}

func TestCanonicalItemID(t *testing.T) {
	catalog := payroll.DefaultCatalog()

	id, ok := payroll.CanonicalItemID("Cash Advance", catalog)
	assert.True(t, ok)
	assert.Equal(t, payroll.ItemAdvance, id)

	id, ok = payroll.CanonicalItemID("기타 공제", catalog)
	assert.True(t, ok)
	assert.Equal(t, payroll.ItemOther, id)

	_, ok = payroll.CanonicalItemID("parking", catalog)
	assert.False(t, ok)
}

// =============================================================================
// CALCULATOR TESTS
// =============================================================================

func TestCalculator_MonthlyRowWithFallbackAdvance(t *testing.T) {
	// GIVEN: A 3,000,000 monthly row and a 100,000 advance filed under
	//        another team
	// WHEN: Computing March
	// THEN: The advance is deducted on top of insurance and tax

	row := monthlyRow("t1", "w1", map[settlement.YearMonth]string{march: "3000000"})
	rec := advance("w1", "t-other", at(1), map[string]float64{"가불": 100000})
	calc := payroll.NewCalculator(statutoryConfig(), []settlement.AdvancePaymentRecord{rec}, []settlement.TransferRow{row})

	d := calc.ForMonth(row, march)

	require.NotNil(t, d.Match)
	assert.Equal(t, payroll.ScoreFallback, d.Match.Score)
	require.NotNil(t, d.Lines)
	assertDecimal(t, "100000", d.AdvanceDeduction, "advance")
	assertDecimal(t, "481122", d.TotalDeduction, "total deduction")
	assertDecimal(t, "2518878", d.NetPay, "net pay")
	assert.Equal(t, row.RowKey, d.RowKey)
}

func TestCalculator_NonMonthlyRowsPassThrough(t *testing.T) {
	row := monthlyRow("t1", "w1", map[settlement.YearMonth]string{march: "450000"})
	row.ResolvedSalaryModel = settlement.DailyWage
	rec := advance("w1", "t1", at(1), map[string]float64{"가불": 100000})
	calc := payroll.NewCalculator(statutoryConfig(), []settlement.AdvancePaymentRecord{rec}, []settlement.TransferRow{row})

	d := calc.ForMonth(row, march)

	assert.Nil(t, d.Match, "advances only apply to withheld rows")
	assertDecimal(t, "450000", d.NetPay, "net pay")
	assertDecimal(t, "450000", calc.NetTotal(row), "net total")
}

func TestCalculator_NetTotalSumsMonths(t *testing.T) {
	row := monthlyRow("t1", "w1", map[settlement.YearMonth]string{
		"2025-02": "3000000",
		march:     "3000000",
	})
	calc := payroll.NewCalculator(statutoryConfig(), nil, []settlement.TransferRow{row})

	months := calc.ForRow(row)

	require.Len(t, months, 2)
	assert.Equal(t, settlement.YearMonth("2025-02"), months[0].YearMonth)
	assert.Equal(t, march, months[1].YearMonth)
	assertDecimal(t, "5237756", calc.NetTotal(row), "net total")
}

// =============================================================================
// CONFIG SOURCE TESTS
// =============================================================================

func TestConfigSource_StoreReadFillsCache(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveConfig(ctx, statutoryConfig()))
	cache := payroll.NewMemoryCache()
	src := payroll.NewConfigSource(m, cache, nil)

	cfg, err := src.GetConfig(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0.033, cfg.TaxRate)
	cached, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cfg, cached)
}

func TestConfigSource_StoreDown_UsesCache(t *testing.T) {
	// GIVEN: A config read once, then the store goes down
	// WHEN: Reading again
	// THEN: The cached config is returned and the fallback is logged

	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveConfig(ctx, statutoryConfig()))
	log, hook := test.NewNullLogger()
	src := payroll.NewConfigSource(m, nil, log)

	require.NoError(t, src.Refresh(ctx))
	m.FailOn(settlement.SourceConfig, errors.New("connection reset"))

	cfg, err := src.GetConfig(ctx)

	require.NoError(t, err)
	assert.Equal(t, statutoryRates(), cfg.InsuranceRates)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestConfigSource_StoreDownAndCacheEmpty(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	boom := errors.New("connection reset")
	m.FailOn(settlement.SourceConfig, boom)
	src := payroll.NewConfigSource(m, nil, nil)

	_, err := src.GetConfig(ctx)

	assert.ErrorIs(t, err, settlement.ErrConfigUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.True(t, settlement.IsUpstream(err))

	assert.Error(t, src.Refresh(ctx))
}

func TestConfigSource_CancelledContextSkipsCache(t *testing.T) {
	m := store.NewMemory()
	cache := payroll.NewMemoryCache()
	require.NoError(t, cache.Set(context.Background(), statutoryConfig()))
	src := payroll.NewConfigSource(m, cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.GetConfig(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryCache_CopiesCatalog(t *testing.T) {
	ctx := context.Background()
	cache := payroll.NewMemoryCache()
	cfg := statutoryConfig()
	require.NoError(t, cache.Set(ctx, cfg))

	cfg.DeductionItemCatalog[0].Label = "changed"

	cached, _, _ := cache.Get(ctx)
	assert.Equal(t, "가불금", cached.DeductionItemCatalog[0].Label)
}
