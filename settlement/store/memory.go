// Package store provides in-memory implementations of the settlement
// directories.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// MEMORY STORE - In-memory directories (for testing/dev)
// =============================================================================

// Memory implements settlement.Directories and settlement.ConfigStore.
// Records are upserted by id and listed in insertion order.
type Memory struct {
	mu        sync.RWMutex
	reports   []settlement.ReportEntry
	workers   []settlement.WorkerRecord
	teams     []settlement.TeamRecord
	companies []settlement.CompanyRecord
	advances  []settlement.AdvancePaymentRecord
	config    settlement.PayrollConfig
	failures  map[settlement.Source]error
}

var (
	_ settlement.Directories = (*Memory)(nil)
	_ settlement.ConfigStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{failures: make(map[settlement.Source]error)}
}

// FailOn makes every read of source return err. A nil err clears it.
func (m *Memory) FailOn(source settlement.Source, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, source)
		return
	}
	m.failures[source] = err
}

// Reset drops every record, the config and any injected failure.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = nil
	m.workers = nil
	m.teams = nil
	m.companies = nil
	m.advances = nil
	m.config = settlement.PayrollConfig{}
	m.failures = make(map[settlement.Source]error)
}

// =============================================================================
// WRITES
// =============================================================================

// AddReports appends report entries. Entries have no identity of their own.
func (m *Memory) AddReports(_ context.Context, entries ...settlement.ReportEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, entries...)
	return nil
}

func (m *Memory) SaveWorker(_ context.Context, w settlement.WorkerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = upsert(m.workers, w, func(x settlement.WorkerRecord) string { return x.ID })
	return nil
}

func (m *Memory) SaveTeam(_ context.Context, t settlement.TeamRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams = upsert(m.teams, t, func(x settlement.TeamRecord) string { return x.ID })
	return nil
}

func (m *Memory) SaveCompany(_ context.Context, c settlement.CompanyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = upsert(m.companies, c, func(x settlement.CompanyRecord) string { return x.ID })
	return nil
}

// SaveAdvancePayment upserts by (worker, team, month).
func (m *Memory) SaveAdvancePayment(_ context.Context, rec settlement.AdvancePaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	m.advances = upsert(m.advances, rec, func(x settlement.AdvancePaymentRecord) string {
		return x.WorkerID + "|" + x.TeamID + "|" + string(x.YearMonth)
	})
	return nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg settlement.PayrollConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}

func upsert[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	for i := range items {
		if id(items[i]) == key {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) ListReports(ctx context.Context, r settlement.DateRange, teamID, siteID string) ([]settlement.ReportEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceReports); err != nil {
		return nil, err
	}

	var result []settlement.ReportEntry
	for _, e := range m.reports {
		if !r.Contains(e.Date) {
			continue
		}
		if teamID != "" && e.TeamID != teamID {
			continue
		}
		if siteID != "" && e.SiteID != siteID {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (m *Memory) ListWorkers(ctx context.Context) ([]settlement.WorkerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceWorkers); err != nil {
		return nil, err
	}
	return append([]settlement.WorkerRecord(nil), m.workers...), nil
}

func (m *Memory) ListTeams(ctx context.Context) ([]settlement.TeamRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceTeams); err != nil {
		return nil, err
	}
	return append([]settlement.TeamRecord(nil), m.teams...), nil
}

func (m *Memory) ListCompanies(ctx context.Context) ([]settlement.CompanyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceCompanies); err != nil {
		return nil, err
	}
	return append([]settlement.CompanyRecord(nil), m.companies...), nil
}

// ListAdvancePayments returns the records of one month, optionally narrowed
// to a team.
func (m *Memory) ListAdvancePayments(ctx context.Context, year, month int, teamID string) ([]settlement.AdvancePaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceAdvances); err != nil {
		return nil, err
	}

	ym := settlement.NewYearMonth(year, time.Month(month))
	var result []settlement.AdvancePaymentRecord
	for _, rec := range m.advances {
		if rec.YearMonth != ym {
			continue
		}
		if teamID != "" && rec.TeamID != teamID {
			continue
		}
		result = append(result, cloneAdvance(rec))
	}
	return result, nil
}

func (m *Memory) GetConfig(ctx context.Context) (settlement.PayrollConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, settlement.SourceConfig); err != nil {
		return settlement.PayrollConfig{}, err
	}
	cfg := m.config
	cfg.DeductionItemCatalog = append([]settlement.DeductionItem(nil), m.config.DeductionItemCatalog...)
	return cfg, nil
}

func (m *Memory) check(ctx context.Context, source settlement.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.failures[source]
}

func cloneAdvance(rec settlement.AdvancePaymentRecord) settlement.AdvancePaymentRecord {
	items := make(map[string]float64, len(rec.PerItemAmounts))
	for k, v := range rec.PerItemAmounts {
		items[k] = v
	}
	rec.PerItemAmounts = items
	if rec.TotalDeductionOverride != nil {
		v := *rec.TotalDeductionOverride
		rec.TotalDeductionOverride = &v
	}
	return rec
}
