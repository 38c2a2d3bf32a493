/*
store.go - Read interfaces for the reference directories

PURPOSE:
  Defines the boundary between the engine and the stores that own reports,
  workers, teams, companies, advance records and payroll configuration.
  The engine only reads: there are no write methods here. Writes belong to
  the owning store (see store/sqlite for upkeep methods).

KEY INTERFACES:
  ReportStore:      attendance entries in a date range
  WorkerDirectory:  worker records
  TeamDirectory:    team records
  CompanyDirectory: company records
  AdvanceStore:     advance/other deduction records per month
  ConfigStore:      payroll configuration
  Directories:      all of the above (what a Runner needs)

IMPLEMENTATIONS:
  - settlement/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go:     SQLite
  - payroll.ConfigSource:       ConfigStore with a cache fallback

SEE ALSO:
  - runner.go: fetches every directory in parallel before aggregating
*/
package settlement

import "context"

// ReportStore lists attendance entries. teamID and siteID are optional
// filters; an empty string matches everything.
type ReportStore interface {
	ListReports(ctx context.Context, r DateRange, teamID, siteID string) ([]ReportEntry, error)
}

// WorkerDirectory lists worker records.
type WorkerDirectory interface {
	ListWorkers(ctx context.Context) ([]WorkerRecord, error)
}

// TeamDirectory lists team records.
type TeamDirectory interface {
	ListTeams(ctx context.Context) ([]TeamRecord, error)
}

// CompanyDirectory lists company records.
type CompanyDirectory interface {
	ListCompanies(ctx context.Context) ([]CompanyRecord, error)
}

// AdvanceStore lists advance deduction records of one month. teamID is an
// optional filter.
type AdvanceStore interface {
	ListAdvancePayments(ctx context.Context, year int, month int, teamID string) ([]AdvancePaymentRecord, error)
}

// ConfigStore returns the payroll configuration.
type ConfigStore interface {
	GetConfig(ctx context.Context) (PayrollConfig, error)
}

// Directories is everything a settlement run reads.
type Directories interface {
	ReportStore
	WorkerDirectory
	TeamDirectory
	CompanyDirectory
	AdvanceStore
}
