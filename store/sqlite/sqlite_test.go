package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func march(t *testing.T) settlement.DateRange {
	t.Helper()
	dr, err := settlement.ParseDateRange("2025-03-01", "2025-03-31")
	require.NoError(t, err)
	return dr
}

// =============================================================================
// REPORT TESTS
// =============================================================================

func TestListReports_FiltersRangeTeamAndSite(t *testing.T) {
	// GIVEN: Entries across two months, two teams and two sites
	// WHEN: Listing March with and without filters
	// THEN: Only matching entries come back, in date order

	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.AddReports(ctx,
		settlement.ReportEntry{ReportID: "r2", Date: "2025-03-10", SiteID: "s1", TeamID: "t1", WorkerID: "w1", ManDay: 1, UnitPrice: 150000, SalaryModelHint: "일당"},
		settlement.ReportEntry{ReportID: "r1", Date: "2025-03-03", SiteID: "s1", TeamID: "t1", WorkerID: "w1", ManDay: 0.5},
		settlement.ReportEntry{ReportID: "r3", Date: "2025-03-31", SiteID: "s2", TeamID: "t2", WorkerID: "w2", ManDay: 1},
		settlement.ReportEntry{ReportID: "r4", Date: "2025-04-01", SiteID: "s1", TeamID: "t1", WorkerID: "w1", ManDay: 1},
	))

	all, err := store.ListReports(ctx, march(t), "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03-03", all[0].Date)
	assert.Equal(t, "2025-03-31", all[2].Date)
	assert.Equal(t, 150000.0, all[1].UnitPrice)
	assert.Equal(t, "일당", all[1].SalaryModelHint)

	team, err := store.ListReports(ctx, march(t), "t2", "")
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, "w2", team[0].WorkerID)

	site, err := store.ListReports(ctx, march(t), "", "s1")
	require.NoError(t, err)
	assert.Len(t, site, 2)
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestDirectories_SaveAndList(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveWorker(ctx, settlement.WorkerRecord{
		ID: "w1", Name: "김철수", TeamID: "t1", DefaultUnitPrice: 160000,
		DefaultSalaryModel: "월급", BankName: "국민", AccountNumber: "123-45", AccountHolder: "김철수",
	}))
	require.NoError(t, store.SaveTeam(ctx, settlement.TeamRecord{
		ID: "st1", Name: "대성 지원팀", Type: settlement.TeamSupport, CompanyID: "c1",
		SupportRate: 180000, SupportModel: settlement.SupportPerManDay, LeaderID: "lead",
	}))
	require.NoError(t, store.SaveCompany(ctx, settlement.CompanyRecord{ID: "c1", Name: "대성", Type: settlement.CompanyPartner}))

	workers, err := store.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "월급", workers[0].DefaultSalaryModel)
	assert.Equal(t, 160000.0, workers[0].DefaultUnitPrice)

	teams, err := store.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, settlement.TeamSupport, teams[0].Type)
	assert.Equal(t, settlement.SupportPerManDay, teams[0].SupportModel)
	assert.Equal(t, "lead", teams[0].LeaderID)

	companies, err := store.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, settlement.CompanyPartner, companies[0].Type)
}

func TestSaveWorker_Upserts(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveWorker(ctx, settlement.WorkerRecord{ID: "w1", Name: "김철수"}))
	require.NoError(t, store.SaveWorker(ctx, settlement.WorkerRecord{ID: "w1", Name: "김철수", AccountNumber: "999"}))

	workers, err := store.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "999", workers[0].AccountNumber)
}

// =============================================================================
// ADVANCE PAYMENT TESTS
// =============================================================================

func TestAdvancePayments_OverrideAndTeamFilter(t *testing.T) {
	// GIVEN: Two March records, one with a total override, and an April one
	// WHEN: Listing March
	// THEN: Items, override and update time survive the round trip

	ctx := context.Background()
	store := newStore(t)
	override := 450000.0
	updated := time.Date(2025, time.March, 28, 17, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveAdvancePayment(ctx, settlement.AdvancePaymentRecord{
		WorkerID: "w1", TeamID: "t1", YearMonth: "2025-03",
		PerItemAmounts: map[string]float64{"가불": 100000, "식대": 120000},
		TotalDeductionOverride: &override,
		UpdatedAt:              updated,
	}))
	require.NoError(t, store.SaveAdvancePayment(ctx, settlement.AdvancePaymentRecord{
		WorkerID: "w2", TeamID: "t2", YearMonth: "2025-03",
	}))
	require.NoError(t, store.SaveAdvancePayment(ctx, settlement.AdvancePaymentRecord{
		WorkerID: "w1", TeamID: "t1", YearMonth: "2025-04",
	}))

	all, err := store.ListAdvancePayments(ctx, 2025, 3, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	w1 := all[0]
	assert.Equal(t, "w1", w1.WorkerID)
	assert.Equal(t, 120000.0, w1.PerItemAmounts["식대"])
	require.NotNil(t, w1.TotalDeductionOverride)
	assert.Equal(t, 450000.0, *w1.TotalDeductionOverride)
	assert.True(t, updated.Equal(w1.UpdatedAt))

	assert.Nil(t, all[1].TotalDeductionOverride)
	assert.Empty(t, all[1].PerItemAmounts)
	assert.False(t, all[1].UpdatedAt.IsZero(), "a missing update time is stamped on save")

	t2, err := store.ListAdvancePayments(ctx, 2025, 3, "t2")
	require.NoError(t, err)
	require.Len(t, t2, 1)
	assert.Equal(t, "w2", t2[0].WorkerID)
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestGetConfig_DefaultsWhenUnset(t *testing.T) {
	store := newStore(t)

	cfg, err := store.GetConfig(context.Background())

	require.NoError(t, err)
	assert.Equal(t, factory.DefaultConfig(), cfg)
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	cfg := factory.DefaultConfig()
	cfg.TaxRate = 0.03
	cfg.InsuranceRates.Health = 0.0355

	require.NoError(t, store.SaveConfig(ctx, cfg))
	got, err := store.GetConfig(ctx)

	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestReset_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.SaveWorker(ctx, settlement.WorkerRecord{ID: "w1", Name: "김철수"}))
	require.NoError(t, store.AddReports(ctx, settlement.ReportEntry{ReportID: "r1", Date: "2025-03-03", WorkerID: "w1", ManDay: 1}))
	cfg := factory.DefaultConfig()
	cfg.TaxRate = 0
	require.NoError(t, store.SaveConfig(ctx, cfg))

	require.NoError(t, store.Reset(ctx))

	workers, err := store.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, workers)
	entries, err := store.ListReports(ctx, march(t), "", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	got, err := store.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.033, got.TaxRate)
}
