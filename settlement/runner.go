/*
runner.go - Fetch-then-aggregate orchestration

PURPOSE:
  A settlement run needs a fully resolved lookup universe: every worker,
  team and company, the payroll configuration, the reports of the range and
  the advance records of every month the range touches. Partial data would
  silently corrupt the resolution chains, so the runner fetches everything
  in parallel and waits for all of it (errgroup join) before aggregating.

FAILURE:
  Any fetch failure aborts the run with a *FetchError naming the source.
  Nothing is retried and nothing is aggregated.

CONCURRENCY:
  Only the fetch stage is concurrent. Aggregate runs synchronously on the
  joined snapshot. Overlapping runs are arbitrated by Session (session.go).
*/
package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Query selects the entries of a run.
type Query struct {
	Range  DateRange
	TeamID string // optional
	SiteID string // optional
}

// Snapshot is the joined reference data of one run.
type Snapshot struct {
	Entries   []ReportEntry
	Workers   []WorkerRecord
	Teams     []TeamRecord
	Companies []CompanyRecord
	Advances  []AdvancePaymentRecord
	Config    PayrollConfig
}

// Run is a completed settlement run.
type Run struct {
	ID         string
	Generation uint64
	Query      Query
	Config     PayrollConfig
	Advances   []AdvancePaymentRecord
	Result     *Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner fetches the directories and aggregates them.
type Runner struct {
	Dirs   Directories
	Config ConfigStore
	Log    logrus.FieldLogger
}

// NewRunner creates a runner. A nil logger logs to the logrus standard logger.
func NewRunner(dirs Directories, config ConfigStore, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{Dirs: dirs, Config: config, Log: log}
}

// Fetch reads every directory in parallel and returns once all of them
// resolved, or with the first failure.
func (r *Runner) Fetch(ctx context.Context, q Query) (*Snapshot, error) {
	var snap Snapshot
	months := q.Range.Months()
	advances := make([][]AdvancePaymentRecord, len(months))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entries, err := r.Dirs.ListReports(gCtx, q.Range, q.TeamID, q.SiteID)
		if err != nil {
			return &FetchError{Source: SourceReports, Err: err}
		}
		snap.Entries = entries
		return nil
	})

	g.Go(func() error {
		workers, err := r.Dirs.ListWorkers(gCtx)
		if err != nil {
			return &FetchError{Source: SourceWorkers, Err: err}
		}
		snap.Workers = workers
		return nil
	})

	g.Go(func() error {
		teams, err := r.Dirs.ListTeams(gCtx)
		if err != nil {
			return &FetchError{Source: SourceTeams, Err: err}
		}
		snap.Teams = teams
		return nil
	})

	g.Go(func() error {
		companies, err := r.Dirs.ListCompanies(gCtx)
		if err != nil {
			return &FetchError{Source: SourceCompanies, Err: err}
		}
		snap.Companies = companies
		return nil
	})

	g.Go(func() error {
		cfg, err := r.Config.GetConfig(gCtx)
		if err != nil {
			return &FetchError{Source: SourceConfig, Err: err}
		}
		snap.Config = cfg
		return nil
	})

	// Advances are read for every team: a record filed under another team
	// can still match through the (worker, month) fallback.
	for i, ym := range months {
		i, ym := i, ym
		g.Go(func() error {
			records, err := r.Dirs.ListAdvancePayments(gCtx, ym.Year(), int(ym.Month()), "")
			if err != nil {
				return &FetchError{Source: SourceAdvances, Err: err}
			}
			advances[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, records := range advances {
		snap.Advances = append(snap.Advances, records...)
	}
	return &snap, nil
}

// Run fetches and aggregates one query.
func (r *Runner) Run(ctx context.Context, q Query) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Query:     q,
		StartedAt: time.Now().UTC(),
	}
	log := r.Log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"range":   q.Range.String(),
		"team_id": q.TeamID,
		"site_id": q.SiteID,
	})
	log.Info("settlement run started")

	snap, err := r.Fetch(ctx, q)
	if err != nil {
		fields := logrus.Fields{}
		if fe, ok := err.(*FetchError); ok {
			fields["source"] = fe.Source
		}
		log.WithFields(fields).WithError(err).Error("settlement run aborted")
		return nil, err
	}

	run.Config = snap.Config
	run.Advances = snap.Advances
	run.Result = Aggregate(AggregateInput{
		Entries:   snap.Entries,
		Workers:   snap.Workers,
		Teams:     snap.Teams,
		Companies: snap.Companies,
	})
	run.FinishedAt = time.Now().UTC()

	diag := run.Result.Diagnostics
	for _, w := range diag.Warnings {
		log.WithFields(logrus.Fields{
			"code":      w.Code,
			"worker_id": w.WorkerID,
			"date":      w.Date,
		}).Warn(w.Message)
	}
	log.WithFields(logrus.Fields{
		"entries":      diag.Entries,
		"processed":    diag.Processed,
		"dropped":      diag.DroppedTotal(),
		"rows":         len(run.Result.Rows),
		"invalid_rows": run.Result.InvalidRowCount(),
	}).Info("settlement run finished")

	return run, nil
}
