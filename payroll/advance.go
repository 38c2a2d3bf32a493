package payroll

import (
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// ADVANCE-DEDUCTION MATCHER
// =============================================================================
//
// Advance records are keyed loosely in source data: the team on a record
// does not always match the team of the row it belongs to. Two tables are
// built once per run:
//
//   exact:    (teamId, workerId, yearMonth)
//   fallback: (workerId, yearMonth)
//
// An exact hit always wins. Among fallback candidates the one whose team is
// one of the teams the worker visibly has rows under in that month scores 2,
// any other scores 1; equal scores go to the later UpdatedAt.

// Match scores.
const (
	ScorePreferred = 2
	ScoreFallback  = 1
)

// Match is the record chosen for a (team, worker, month) lookup.
type Match struct {
	Record settlement.AdvancePaymentRecord
	Score  int
	Exact  bool
}

type exactKey struct {
	TeamID    string
	WorkerID  string
	YearMonth settlement.YearMonth
}

type workerMonth struct {
	WorkerID  string
	YearMonth settlement.YearMonth
}

// AdvanceMatcher resolves advance records for payee rows.
type AdvanceMatcher struct {
	exact     map[exactKey]settlement.AdvancePaymentRecord
	fallback  map[workerMonth][]settlement.AdvancePaymentRecord
	preferred map[workerMonth]map[string]bool
}

// NewAdvanceMatcher indexes records against the rows of a result.
func NewAdvanceMatcher(records []settlement.AdvancePaymentRecord, rows []settlement.TransferRow) *AdvanceMatcher {
	m := &AdvanceMatcher{
		exact:     make(map[exactKey]settlement.AdvancePaymentRecord),
		fallback:  make(map[workerMonth][]settlement.AdvancePaymentRecord),
		preferred: make(map[workerMonth]map[string]bool),
	}

	for _, rec := range records {
		if rec.WorkerID == "" || rec.YearMonth == "" {
			continue
		}
		if rec.TeamID != "" {
			k := exactKey{TeamID: rec.TeamID, WorkerID: rec.WorkerID, YearMonth: rec.YearMonth}
			if prev, ok := m.exact[k]; !ok || rec.UpdatedAt.After(prev.UpdatedAt) {
				m.exact[k] = rec
			}
		}
		wm := workerMonth{WorkerID: rec.WorkerID, YearMonth: rec.YearMonth}
		m.fallback[wm] = append(m.fallback[wm], rec)
	}

	for _, row := range rows {
		if row.PayeeWorkerID == "" || row.PayeeTeamID == "" {
			continue
		}
		for ym := range row.AmountByYearMonth {
			wm := workerMonth{WorkerID: row.PayeeWorkerID, YearMonth: ym}
			if m.preferred[wm] == nil {
				m.preferred[wm] = make(map[string]bool)
			}
			m.preferred[wm][row.PayeeTeamID] = true
		}
	}
	return m
}

// Match returns the best record for the payee in ym.
func (m *AdvanceMatcher) Match(teamID, workerID string, ym settlement.YearMonth) (Match, bool) {
	if rec, ok := m.exact[exactKey{TeamID: teamID, WorkerID: workerID, YearMonth: ym}]; ok {
		return Match{Record: rec, Score: ScorePreferred, Exact: true}, true
	}

	wm := workerMonth{WorkerID: workerID, YearMonth: ym}
	var best Match
	found := false
	for _, rec := range m.fallback[wm] {
		score := ScoreFallback
		if m.preferred[wm][rec.TeamID] {
			score = ScorePreferred
		}
		if !found || score > best.Score ||
			(score == best.Score && rec.UpdatedAt.After(best.Record.UpdatedAt)) {
			best = Match{Record: rec, Score: score}
			found = true
		}
	}
	return best, found
}
