/*
Package sqlite provides a SQLite-backed implementation of the settlement
directories.

PURPOSE:
  Persists the reference data a settlement run reads: report entries,
  workers, teams, companies, advance payment records and the payroll
  configuration. The engine itself never writes; the Save* methods exist
  for the admin API and the demo scenarios.

INTERFACES IMPLEMENTED:
  settlement.Directories: reports, workers, teams, companies, advances
  settlement.ConfigStore: payroll configuration

KEY TABLES:
  report_entries:   One row per worker per report day
  workers:          Worker directory (bank fields included)
  teams:            Team directory (support rate/model, leader)
  companies:        Company directory
  advance_payments: Per-month deduction records, items as JSON
  payroll_config:   Single-row JSON configuration

INDEXES:
  - idx_report_entries_date: range scans for a run
  - idx_advance_payments_month: per-month advance fetch

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. A run fetches all directories in
  parallel, so reads only take the read lock.

USAGE:
  store, err := sqlite.New("./data/settlement.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  runner := settlement.NewRunner(store, store, logger)

SEE ALSO:
  - settlement/store.go: interface definitions
  - settlement/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/settlement"
)

// Store implements the settlement directories using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ settlement.Directories = (*Store)(nil)
	_ settlement.ConfigStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		date TEXT NOT NULL,
		site_id TEXT,
		team_id TEXT,
		worker_id TEXT NOT NULL,
		man_day REAL NOT NULL DEFAULT 0,
		unit_price REAL NOT NULL DEFAULT 0,
		salary_model_hint TEXT,
		company_id TEXT,
		company_name TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_report_entries_date
		ON report_entries(date);

	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		team_id TEXT,
		team_type TEXT,
		company_id TEXT,
		default_unit_price REAL NOT NULL DEFAULT 0,
		default_salary_model TEXT,
		bank_name TEXT,
		account_number TEXT,
		account_holder TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT,
		company_id TEXT,
		company_name TEXT,
		parent_team_id TEXT,
		support_rate REAL NOT NULL DEFAULT 0,
		support_model TEXT,
		leader_id TEXT,
		leader_name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS advance_payments (
		worker_id TEXT NOT NULL,
		team_id TEXT NOT NULL DEFAULT '',
		year_month TEXT NOT NULL,
		items_json TEXT NOT NULL,
		total_override REAL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (worker_id, team_id, year_month)
	);

	CREATE INDEX IF NOT EXISTS idx_advance_payments_month
		ON advance_payments(year_month);

	CREATE TABLE IF NOT EXISTS payroll_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPORTS
// =============================================================================

// AddReports inserts report entries.
func (s *Store) AddReports(ctx context.Context, entries ...settlement.ReportEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO report_entries (report_id, date, site_id, team_id, worker_id,
			man_day, unit_price, salary_model_hint, company_id, company_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query,
			e.ReportID, e.Date, e.SiteID, e.TeamID, e.WorkerID,
			e.ManDay, e.UnitPrice, e.SalaryModelHint, e.CompanyID, e.CompanyName,
		); err != nil {
			return fmt.Errorf("insert report entry %s/%s: %w", e.ReportID, e.WorkerID, err)
		}
	}
	return tx.Commit()
}

// ListReports returns the entries dated inside r in date order, optionally
// narrowed to a team and a site.
func (s *Store) ListReports(ctx context.Context, r settlement.DateRange, teamID, siteID string) ([]settlement.ReportEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT report_id, date, COALESCE(site_id, ''), COALESCE(team_id, ''), worker_id,
			man_day, unit_price, COALESCE(salary_model_hint, ''),
			COALESCE(company_id, ''), COALESCE(company_name, '')
		FROM report_entries
		WHERE date >= ? AND date <= ?
			AND (? = '' OR team_id = ?)
			AND (? = '' OR site_id = ?)
		ORDER BY date, id
	`
	rows, err := s.db.QueryContext(ctx, query,
		r.StartString(), r.EndString(), teamID, teamID, siteID, siteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []settlement.ReportEntry
	for rows.Next() {
		var e settlement.ReportEntry
		if err := rows.Scan(&e.ReportID, &e.Date, &e.SiteID, &e.TeamID, &e.WorkerID,
			&e.ManDay, &e.UnitPrice, &e.SalaryModelHint, &e.CompanyID, &e.CompanyName); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// WORKERS
// =============================================================================

// SaveWorker creates or updates a worker.
func (s *Store) SaveWorker(ctx context.Context, w settlement.WorkerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO workers (id, name, team_id, team_type, company_id, default_unit_price,
			default_salary_model, bank_name, account_number, account_holder, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			team_id = excluded.team_id,
			team_type = excluded.team_type,
			company_id = excluded.company_id,
			default_unit_price = excluded.default_unit_price,
			default_salary_model = excluded.default_salary_model,
			bank_name = excluded.bank_name,
			account_number = excluded.account_number,
			account_holder = excluded.account_holder
	`

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.Name, w.TeamID, string(w.TeamType), w.CompanyID, w.DefaultUnitPrice,
		w.DefaultSalaryModel, w.BankName, w.AccountNumber, w.AccountHolder,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListWorkers returns every worker.
func (s *Store) ListWorkers(ctx context.Context) ([]settlement.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(team_id, ''), COALESCE(team_type, ''), COALESCE(company_id, ''),
			default_unit_price, COALESCE(default_salary_model, ''),
			COALESCE(bank_name, ''), COALESCE(account_number, ''), COALESCE(account_holder, '')
		FROM workers ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []settlement.WorkerRecord
	for rows.Next() {
		var w settlement.WorkerRecord
		var teamType string
		if err := rows.Scan(&w.ID, &w.Name, &w.TeamID, &teamType, &w.CompanyID,
			&w.DefaultUnitPrice, &w.DefaultSalaryModel,
			&w.BankName, &w.AccountNumber, &w.AccountHolder); err != nil {
			return nil, err
		}
		w.TeamType = settlement.ParseTeamType(teamType)
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// =============================================================================
// TEAMS
// =============================================================================

// SaveTeam creates or updates a team.
func (s *Store) SaveTeam(ctx context.Context, t settlement.TeamRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO teams (id, name, type, company_id, company_name, parent_team_id,
			support_rate, support_model, leader_id, leader_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			company_id = excluded.company_id,
			company_name = excluded.company_name,
			parent_team_id = excluded.parent_team_id,
			support_rate = excluded.support_rate,
			support_model = excluded.support_model,
			leader_id = excluded.leader_id,
			leader_name = excluded.leader_name
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, string(t.Type), t.CompanyID, t.CompanyName, t.ParentTeamID,
		t.SupportRate, string(t.SupportModel), t.LeaderID, t.LeaderName,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListTeams returns every team.
func (s *Store) ListTeams(ctx context.Context) ([]settlement.TeamRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(type, ''), COALESCE(company_id, ''), COALESCE(company_name, ''),
			COALESCE(parent_team_id, ''), support_rate, COALESCE(support_model, ''),
			COALESCE(leader_id, ''), COALESCE(leader_name, '')
		FROM teams ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []settlement.TeamRecord
	for rows.Next() {
		var t settlement.TeamRecord
		var teamType, supportModel string
		if err := rows.Scan(&t.ID, &t.Name, &teamType, &t.CompanyID, &t.CompanyName,
			&t.ParentTeamID, &t.SupportRate, &supportModel, &t.LeaderID, &t.LeaderName); err != nil {
			return nil, err
		}
		t.Type = settlement.ParseTeamType(teamType)
		t.SupportModel = settlement.ParseSupportModel(supportModel)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// =============================================================================
// COMPANIES
// =============================================================================

// SaveCompany creates or updates a company.
func (s *Store) SaveCompany(ctx context.Context, c settlement.CompanyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO companies (id, name, type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, string(c.Type), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListCompanies returns every company.
func (s *Store) ListCompanies(ctx context.Context) ([]settlement.CompanyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(type, '') FROM companies ORDER BY created_at, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []settlement.CompanyRecord
	for rows.Next() {
		var c settlement.CompanyRecord
		var companyType string
		if err := rows.Scan(&c.ID, &c.Name, &companyType); err != nil {
			return nil, err
		}
		c.Type = settlement.ParseCompanyType(companyType)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// =============================================================================
// ADVANCE PAYMENTS
// =============================================================================

// SaveAdvancePayment creates or updates the record of (worker, team, month).
func (s *Store) SaveAdvancePayment(ctx context.Context, rec settlement.AdvancePaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := rec.PerItemAmounts
	if items == nil {
		items = map[string]float64{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode advance items: %w", err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var override sql.NullFloat64
	if rec.TotalDeductionOverride != nil {
		override = sql.NullFloat64{Float64: *rec.TotalDeductionOverride, Valid: true}
	}

	query := `
		INSERT INTO advance_payments (worker_id, team_id, year_month, items_json, total_override, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(worker_id, team_id, year_month) DO UPDATE SET
			items_json = excluded.items_json,
			total_override = excluded.total_override,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.WorkerID, rec.TeamID, string(rec.YearMonth), string(itemsJSON), override,
		updatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListAdvancePayments returns the records of one month, optionally narrowed
// to a team.
func (s *Store) ListAdvancePayments(ctx context.Context, year, month int, teamID string) ([]settlement.AdvancePaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ym := settlement.NewYearMonth(year, time.Month(month))
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, team_id, year_month, items_json, total_override, updated_at
		FROM advance_payments
		WHERE year_month = ? AND (? = '' OR team_id = ?)
		ORDER BY worker_id, team_id
	`, string(ym), teamID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []settlement.AdvancePaymentRecord
	for rows.Next() {
		var rec settlement.AdvancePaymentRecord
		var yearMonth, itemsJSON, updatedAt string
		var override sql.NullFloat64
		if err := rows.Scan(&rec.WorkerID, &rec.TeamID, &yearMonth, &itemsJSON, &override, &updatedAt); err != nil {
			return nil, err
		}
		rec.YearMonth = settlement.YearMonth(yearMonth)
		if err := json.Unmarshal([]byte(itemsJSON), &rec.PerItemAmounts); err != nil {
			return nil, fmt.Errorf("decode advance items of %s/%s: %w", rec.WorkerID, yearMonth, err)
		}
		if override.Valid {
			v := override.Float64
			rec.TotalDeductionOverride = &v
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// PAYROLL CONFIG
// =============================================================================

// SaveConfig stores the payroll configuration.
func (s *Store) SaveConfig(ctx context.Context, cfg settlement.PayrollConfig) error {
	configJSON, err := factory.NewConfigFactory().ToJSON(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payroll_config (id, config_json, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, configJSON, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetConfig returns the stored configuration, or the defaults when none was
// saved yet.
func (s *Store) GetConfig(ctx context.Context) (settlement.PayrollConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx, "SELECT config_json FROM payroll_config WHERE id = 1").Scan(&configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return factory.DefaultConfig(), nil
	}
	if err != nil {
		return settlement.PayrollConfig{}, err
	}
	return factory.NewConfigFactory().ParseConfig(configJSON)
}

// =============================================================================
// UTILITY
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"report_entries", "workers", "teams", "companies", "advance_payments", "payroll_config"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
