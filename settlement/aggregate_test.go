package settlement_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/bank"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func entry(date, teamID, workerID string, manDay, unitPrice float64) settlement.ReportEntry {
	return settlement.ReportEntry{
		ReportID:  "rpt-" + date,
		Date:      date,
		SiteID:    "site-a",
		TeamID:    teamID,
		WorkerID:  workerID,
		ManDay:    manDay,
		UnitPrice: unitPrice,
	}
}

func rowKeys(res *settlement.Result) []string {
	keys := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		keys[i] = r.RowKey
	}
	return keys
}

// siteDirectory is a small site: one construction team, a partner company
// billed per man-day and a partner company billed at a flat monthly rate.
func siteDirectory() settlement.AggregateInput {
	return settlement.AggregateInput{
		Workers: []settlement.WorkerRecord{
			{ID: "w1", Name: "김철수", TeamID: "t1", DefaultUnitPrice: 150000,
				BankName: "KB국민은행", AccountNumber: "123-45-678901", AccountHolder: "김철수"},
			{ID: "w2", Name: "이영호", TeamID: "t1", DefaultUnitPrice: 170000, DefaultSalaryModel: "월급",
				BankName: "신한은행", AccountNumber: "110-222-333444", AccountHolder: "이영호"},
			{ID: "lead", Name: "윤대성", TeamID: "st1", CompanyID: "c1",
				BankName: "IBK기업은행", AccountNumber: "010-1234-5678-01", AccountHolder: "윤대성"},
			{ID: "s1", Name: "강지원", TeamID: "st1", CompanyID: "c1"},
			{ID: "h1", Name: "한상우", TeamID: "st2"},
			{ID: "h2", Name: "오팀장", TeamID: "st2",
				BankName: "부산은행", AccountNumber: "101-2034-5678-09", AccountHolder: "오팀장"},
			{ID: "p1", Name: "박지훈", TeamID: "st3", CompanyID: "c3"},
			{ID: "m1", Name: "임도현", TeamID: "t1", CompanyID: "c9", DefaultUnitPrice: 160000,
				BankName: "카카오뱅크", AccountNumber: "3333-01-2345678", AccountHolder: "임도현"},
		},
		Teams: []settlement.TeamRecord{
			{ID: "t1", Name: "형틀팀", Type: settlement.TeamConstruction},
			{ID: "st1", Name: "대성 지원팀", Type: settlement.TeamSupport, CompanyID: "c1",
				SupportRate: 180000, SupportModel: settlement.SupportPerManDay, LeaderID: "lead"},
			{ID: "st2", Name: "한울 지원팀", Type: settlement.TeamSupport, CompanyName: "한울기공",
				SupportRate: 2500000, SupportModel: settlement.SupportFixed, LeaderName: "오 팀장"},
			{ID: "st3", Name: "세진 지원팀", Type: settlement.TeamSupport, CompanyID: "c3",
				SupportRate: 0, SupportModel: settlement.SupportPerManDay, LeaderName: "박반장"},
		},
		Companies: []settlement.CompanyRecord{
			{ID: "c1", Name: "대성인력(주)", Type: settlement.CompanyPartner},
			{ID: "c2", Name: "(주)한울기공", Type: settlement.CompanyPartner},
			{ID: "c3", Name: "세진산업", Type: settlement.CompanyPartner},
			{ID: "c9", Name: "미래산업", Type: settlement.CompanyPartner},
		},
	}
}

func aggregate(entries ...settlement.ReportEntry) *settlement.Result {
	in := siteDirectory()
	in.Entries = entries
	return settlement.Aggregate(in)
}

// =============================================================================
// ORDINARY ROW TESTS
// =============================================================================

func TestAggregate_DailyWage_TwoDaysSameMonth(t *testing.T) {
	// GIVEN: A daily-wage worker with two full days at 150,000
	// WHEN: Aggregating
	// THEN: One row totalling 300,000 over 2 man-days

	res := aggregate(
		entry("2025-03-03", "t1", "w1", 1.0, 150000),
		entry("2025-03-04", "t1", "w1", 1.0, 150000),
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "dailyWage_t1_w1", row.RowKey)
	assert.Equal(t, settlement.DailyWage, row.ResolvedSalaryModel)
	assertDecimal(t, "300000", row.TotalAmount)
	assertDecimal(t, "2", row.TotalManDay)
	assertDecimal(t, "300000", row.AmountFor("2025-03"))
	assert.True(t, row.IsValid)
	assert.Equal(t, bank.CodeKookmin, row.BankCode)
}

func TestAggregate_UnknownWorker_IsDroppedAndCounted(t *testing.T) {
	// GIVEN: An entry whose worker id is not in the directory
	// WHEN: Aggregating
	// THEN: No row is produced and the drop is counted, without an error

	res := aggregate(entry("2025-03-03", "t1", "ghost", 1.0, 150000))

	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.Diagnostics.Dropped[settlement.DropMissingWorker])
	assert.Equal(t, 1, res.Diagnostics.DroppedTotal())
	assert.Equal(t, 0, res.Diagnostics.Processed)
}

func TestAggregate_UnknownTeam_IsDropped(t *testing.T) {
	res := aggregate(
		entry("2025-03-03", "t-missing", "w1", 1.0, 150000),
		entry("2025-03-04", "t1", "w1", 1.0, 150000),
	)

	require.Len(t, res.Rows, 1)
	assertDecimal(t, "150000", res.Rows[0].TotalAmount)
	assert.Equal(t, 1, res.Diagnostics.Dropped[settlement.DropMissingTeam])
}

func TestAggregate_BlankTeamUsesWorkerTeam(t *testing.T) {
	res := aggregate(entry("2025-03-03", "", "w1", 1.0, 150000))

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "dailyWage_t1_w1", res.Rows[0].RowKey)
}

func TestAggregate_InvalidDate_IsDropped(t *testing.T) {
	res := aggregate(entry("03/04/2025", "t1", "w1", 1.0, 150000))

	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.Diagnostics.Dropped[settlement.DropInvalidDate])
}

func TestAggregate_DefaultUnitPriceAndHalfUpRounding(t *testing.T) {
	// GIVEN: A half day with no unit price, and a half day at an odd price
	// WHEN: Aggregating
	// THEN: The worker default applies and each line rounds half up

	res := aggregate(
		entry("2025-03-03", "t1", "w1", 0.5, 0),
		entry("2025-03-04", "t1", "w1", 0.5, 170001),
	)

	require.Len(t, res.Rows, 1)
	// 75,000 + round(85,000.5) = 75,000 + 85,001
	assertDecimal(t, "160001", res.Rows[0].TotalAmount)
	assertDecimal(t, "1", res.Rows[0].TotalManDay)
}

func TestAggregate_NonFiniteInputsCountAsZero(t *testing.T) {
	nan := entry("2025-03-03", "t1", "w1", math.NaN(), 150000)

	res := aggregate(nan, entry("2025-03-04", "t1", "w1", 1.0, 150000))

	require.Len(t, res.Rows, 1)
	assertDecimal(t, "150000", res.Rows[0].TotalAmount)
}

func TestAggregate_WorkerDefaultModelKeysTheRow(t *testing.T) {
	res := aggregate(entry("2025-03-03", "t1", "w2", 1.0, 0))

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "monthlyWage_t1_w2", res.Rows[0].RowKey)
	assertDecimal(t, "170000", res.Rows[0].TotalAmount)
}

func TestAggregate_UnderscoreIDsKeepPayeesApart(t *testing.T) {
	// GIVEN: Worker "w" on team "t_1" and worker "1_w" on team "t", whose
	//        ids would join to the same "_"-separated key
	// WHEN: Each attends one day at 100
	// THEN: Two rows, each paid to its own worker

	res := settlement.Aggregate(settlement.AggregateInput{
		Entries: []settlement.ReportEntry{
			entry("2025-03-03", "t_1", "w", 1.0, 100),
			entry("2025-03-03", "t", "1_w", 1.0, 100),
		},
		Workers: []settlement.WorkerRecord{
			{ID: "w", Name: "A", TeamID: "t_1"},
			{ID: "1_w", Name: "B", TeamID: "t"},
		},
		Teams: []settlement.TeamRecord{
			{ID: "t_1", Name: "형틀팀", Type: settlement.TeamConstruction},
			{ID: "t", Name: "철근팀", Type: settlement.TeamConstruction},
		},
	})

	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"dailyWage_t%5F1_w", "dailyWage_t_1%5Fw"}, rowKeys(res))

	a, err := res.Row("dailyWage_t%5F1_w")
	require.NoError(t, err)
	assert.Equal(t, "A", a.PayeeName)
	assertDecimal(t, "100", a.TotalAmount)

	b, err := res.Row("dailyWage_t_1%5Fw")
	require.NoError(t, err)
	assert.Equal(t, "B", b.PayeeName)
	assertDecimal(t, "100", b.TotalAmount)
}

func TestAggregate_SupportKeyEscapesComponents(t *testing.T) {
	res := settlement.Aggregate(settlement.AggregateInput{
		Entries: []settlement.ReportEntry{entry("2025-03-03", "t1", "s_1", 1.0, 150000)},
		Workers: []settlement.WorkerRecord{
			{ID: "s_1", Name: "강지원", TeamID: "st_1", CompanyID: "c_1"},
			{ID: "lead_1", Name: "윤대성", TeamID: "st_1", CompanyID: "c_1"},
		},
		Teams: []settlement.TeamRecord{
			{ID: "t1", Name: "형틀팀", Type: settlement.TeamConstruction},
			{ID: "st_1", Name: "대성 지원팀", Type: settlement.TeamSupport, CompanyID: "c_1",
				SupportRate: 180000, SupportModel: settlement.SupportPerManDay, LeaderID: "lead_1"},
		},
		Companies: []settlement.CompanyRecord{{ID: "c_1", Name: "대성인력(주)", Type: settlement.CompanyPartner}},
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "support_st%5F1_c%5F1_lead%5F1", res.Rows[0].RowKey)
	assert.Equal(t, "lead_1", res.Rows[0].PayeeWorkerID)
}

func TestAggregate_MissingBankFields_RowKeptButInvalid(t *testing.T) {
	res := aggregate(entry("2025-03-03", "st3", "p1", 1.0, 150000))

	require.Len(t, res.Rows, 1)
	assert.False(t, res.Rows[0].IsValid)
	assert.NotEmpty(t, res.Rows[0].FieldErrors)
	assert.Equal(t, 1, res.InvalidRowCount())
}

// =============================================================================
// CARRY-FORWARD TESTS
// =============================================================================

func TestAggregate_HintCarriesForwardWithinMonth(t *testing.T) {
	// GIVEN: A daily-wage worker whose first March entry says "monthly"
	// WHEN: Later March entries carry no hint, and an April entry neither
	// THEN: March settles on one monthly row; April falls back to daily

	first := entry("2025-03-03", "t1", "w1", 1.0, 150000)
	first.SalaryModelHint = " Monthly "

	res := aggregate(
		entry("2025-03-05", "t1", "w1", 1.0, 150000),
		first,
		entry("2025-03-04", "t1", "w1", 1.0, 150000),
		entry("2025-04-01", "t1", "w1", 1.0, 150000),
	)

	assert.Equal(t, []string{"monthlyWage_t1_w1", "dailyWage_t1_w1"}, rowKeys(res))
	monthly, err := res.Row("monthlyWage_t1_w1")
	require.NoError(t, err)
	assertDecimal(t, "450000", monthly.TotalAmount)
	assert.Equal(t, []settlement.YearMonth{"2025-03"}, monthly.Months())

	assert.Equal(t, 1, res.Diagnostics.Resolutions[settlement.StepHint])
	assert.Equal(t, 2, res.Diagnostics.Resolutions[settlement.StepCarryForward])
	assert.Equal(t, 1, res.Diagnostics.Resolutions[settlement.StepFallback])
}

// =============================================================================
// SUPPORT REDIRECTION TESTS
// =============================================================================

func TestAggregate_SupportPerManDay_RedirectsToLeader(t *testing.T) {
	// GIVEN: A support worker of a partner billed 180,000 per man-day
	// WHEN: The worker attends 1.5 man-days on a construction team's report
	// THEN: The leader is paid 270,000 on a support row

	res := aggregate(
		entry("2025-03-03", "t1", "s1", 1.0, 150000),
		entry("2025-03-04", "t1", "s1", 0.5, 150000),
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "support_st1_c1_lead", row.RowKey)
	assert.True(t, row.Redirected)
	assert.Equal(t, settlement.SupportPerManDay, row.SupportModel)
	assert.Equal(t, "lead", row.PayeeWorkerID)
	assert.Equal(t, "윤대성", row.PayeeName)
	assert.Equal(t, "대성인력(주)", row.CompanyName)
	assertDecimal(t, "270000", row.TotalAmount)
	assertDecimal(t, "180000", row.UnitPrice)
	assert.True(t, row.IsValid)
}

func TestAggregate_SupportFixed_SetsMonthInsteadOfAdding(t *testing.T) {
	// GIVEN: A partner support team billed 2,500,000 flat per month, found
	//        through its company name and its leader through the leader name
	// WHEN: A worker attends twice in March and once in April
	// THEN: Each month is the flat rate, not a multiple of it

	res := aggregate(
		entry("2025-03-03", "t1", "h1", 1.0, 150000),
		entry("2025-03-04", "t1", "h1", 1.0, 150000),
		entry("2025-04-01", "t1", "h1", 1.0, 150000),
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "support_st2_c2_h2", row.RowKey)
	assert.Equal(t, settlement.SupportFixed, row.SupportModel)
	assert.Equal(t, "오팀장", row.PayeeName)
	assertDecimal(t, "2500000", row.AmountFor("2025-03"))
	assertDecimal(t, "2500000", row.AmountFor("2025-04"))
	assertDecimal(t, "5000000", row.TotalAmount)
	assertDecimal(t, "3", row.TotalManDay)
}

func TestAggregate_SupportLeaderUnknown_KeysOnLeaderName(t *testing.T) {
	// GIVEN: A support team whose leader name matches no worker and that has
	//        no rate configured
	// WHEN: Aggregating
	// THEN: The row keys on the name, bills the entry price, and is invalid
	//       for lack of bank data

	res := aggregate(entry("2025-03-03", "t1", "p1", 1.0, 150000))

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "support_st3_c3_박반장", row.RowKey)
	assert.Empty(t, row.PayeeWorkerID)
	assert.Equal(t, "박반장", row.PayeeName)
	assertDecimal(t, "150000", row.TotalAmount)
	assert.False(t, row.IsValid)
}

func TestAggregate_SupportWithoutTeam_FallsThroughWithWarning(t *testing.T) {
	// GIVEN: An entry flagged as support whose company has no support team
	// WHEN: Aggregating
	// THEN: It settles on an ordinary row and a warning is recorded

	e := entry("2025-03-03", "t1", "m1", 1.0, 0)
	e.SalaryModelHint = "지원"

	res := aggregate(e)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "supportTeam_t1_m1", res.Rows[0].RowKey)
	assert.False(t, res.Rows[0].Redirected)
	assertDecimal(t, "160000", res.Rows[0].TotalAmount)

	require.Len(t, res.Diagnostics.Warnings, 1)
	w := res.Diagnostics.Warnings[0]
	assert.Equal(t, settlement.WarnSupportFallthrough, w.Code)
	assert.Equal(t, "m1", w.WorkerID)
	assert.Equal(t, "2025-03-03", w.Date)
}

// =============================================================================
// RESULT INVARIANT TESTS
// =============================================================================

func mixedEntries() []settlement.ReportEntry {
	support := entry("2025-03-07", "t1", "m1", 1.0, 0)
	support.SalaryModelHint = "support"
	return []settlement.ReportEntry{
		entry("2025-03-03", "t1", "w1", 1.0, 150000),
		entry("2025-03-31", "t1", "w1", 0.5, 0),
		entry("2025-04-01", "t1", "w1", 1.0, 150000),
		entry("2025-03-03", "t1", "w2", 1.0, 0),
		entry("2025-03-03", "t1", "s1", 1.0, 0),
		entry("2025-04-02", "t1", "s1", 1.0, 0),
		entry("2025-03-03", "t1", "h1", 1.0, 0),
		entry("2025-04-02", "t1", "h1", 1.0, 0),
		entry("2025-03-05", "t1", "ghost", 1.0, 150000),
		support,
	}
}

func TestAggregate_RowTotalEqualsSumOfMonths(t *testing.T) {
	res := aggregate(mixedEntries()...)

	require.NotEmpty(t, res.Rows)
	for _, row := range res.Rows {
		assert.True(t, row.TotalAmount.Equal(row.SumOfMonths()), "row %s", row.RowKey)
	}

	grand := decimal.Zero
	for _, v := range res.TotalsByYearMonth() {
		grand = grand.Add(v)
	}
	assert.True(t, grand.Equal(res.Total()))
}

func TestAggregate_SameInputSameOutput(t *testing.T) {
	// GIVEN: The same entries in two different input orders
	// WHEN: Aggregating both
	// THEN: Keys, order and totals are identical

	entries := mixedEntries()
	reversed := make([]settlement.ReportEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	a := aggregate(entries...)
	b := aggregate(entries...)

	assert.Equal(t, rowKeys(a), rowKeys(b))
	for i := range a.Rows {
		assert.True(t, a.Rows[i].TotalAmount.Equal(b.Rows[i].TotalAmount))
	}

	c := aggregate(reversed...)
	assert.ElementsMatch(t, rowKeys(a), rowKeys(c))
	assert.True(t, a.Total().Equal(c.Total()))
}

func TestResult_RowNotFound(t *testing.T) {
	res := aggregate(entry("2025-03-03", "t1", "w1", 1.0, 150000))

	_, err := res.Row("dailyWage_t1_nobody")
	assert.ErrorIs(t, err, settlement.ErrRowNotFound)
	assert.True(t, settlement.IsNotFound(err))
}

func TestResult_RowsAreCopies(t *testing.T) {
	res := aggregate(entry("2025-03-03", "t1", "w1", 1.0, 150000))

	row, err := res.Row("dailyWage_t1_w1")
	require.NoError(t, err)
	row.AmountByYearMonth["2025-03"] = dec("1")

	again, _ := res.Row("dailyWage_t1_w1")
	assertDecimal(t, "150000", again.AmountFor("2025-03"))
}
