package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUPPORT-TEAM REDIRECTION
// =============================================================================
//
// Support-team work is billed through a partner company: the attending
// worker is not paid directly, the partner's support-team leader is. An
// entry resolved to SupportTeam is redirected in three steps:
//
//   1. find the company (ordered fallback over worker, report and teams)
//   2. find that company's support team (by id, then by company name)
//   3. find the team leader in the worker directory (by id, then by name)
//
// When step 2 finds nothing the entry is NOT dropped: the caller settles it
// on the ordinary path and records a WarnSupportFallthrough warning.

// Company resolution step names.
const (
	CompanyFromWorker     = "worker.companyId"
	CompanyFromReport     = "report.companyId"
	CompanyFromWorkerTeam = "workerTeam.companyId"
	CompanyFromReportTeam = "reportTeam.companyId"
	CompanyFromName       = "companyName"
)

// CompanyRef is a resolved company: an id and name (either may be empty when
// the source data only carries the other) and the step that resolved it.
type CompanyRef struct {
	ID   string
	Name string
	Step string
}

// ResolveCompany finds the company an entry is billed to:
// worker.companyId → report.companyId → worker team's companyId → report
// team's companyId → normalized-name lookup against the company directory.
func ResolveCompany(entry ReportEntry, worker WorkerRecord, idx *Index) (CompanyRef, bool) {
	workerTeam, _ := idx.Team(worker.TeamID)
	reportTeam, _ := idx.Team(entry.TeamID)

	byID := func(name, id string) Step[CompanyRef] {
		return Step[CompanyRef]{Name: name, Resolve: func() (CompanyRef, bool) {
			if isSentinelID(id) {
				return CompanyRef{}, false
			}
			ref := CompanyRef{ID: id}
			if c, ok := idx.Company(id); ok {
				ref.Name = c.Name
			}
			return ref, true
		}}
	}

	ref, step, ok := FirstOf(
		byID(CompanyFromWorker, worker.CompanyID),
		byID(CompanyFromReport, entry.CompanyID),
		byID(CompanyFromWorkerTeam, workerTeam.CompanyID),
		byID(CompanyFromReportTeam, reportTeam.CompanyID),
		Step[CompanyRef]{Name: CompanyFromName, Resolve: func() (CompanyRef, bool) {
			for _, name := range []string{entry.CompanyName, workerTeam.CompanyName, reportTeam.CompanyName} {
				if c, found := idx.CompanyByName(name); found {
					return CompanyRef{ID: c.ID, Name: c.Name}, true
				}
			}
			return CompanyRef{}, false
		}},
	)
	if !ok {
		return CompanyRef{}, false
	}

	if ref.Name == "" {
		ref.Name = firstNonBlank(entry.CompanyName, workerTeam.CompanyName, reportTeam.CompanyName)
	}
	ref.Step = step
	return ref, true
}

// Redirect is the real payee of a support-team entry.
type Redirect struct {
	SupportTeam TeamRecord
	Company     CompanyRef
	Leader      WorkerRecord
	LeaderFound bool
	LeaderStep  string
	PayeeName   string
}

// PayeeID returns the leader's worker id, or "" when unresolved.
func (r Redirect) PayeeID() string {
	if !r.LeaderFound {
		return ""
	}
	return r.Leader.ID
}

// RowKey is support_{supportTeamId}_{companyId|companyName}_{payeeId|payeeName}
// with each component escaped. The "support" prefix keeps it apart from
// ordinary keys, which start with a salary model name.
func (r Redirect) RowKey() string {
	return r.rowID().key()
}

func (r Redirect) rowID() rowID {
	return rowID{
		model:   supportKeyPrefix,
		team:    r.SupportTeam.ID,
		company: firstNonBlank(r.Company.ID, r.Company.Name),
		payee:   firstNonBlank(r.PayeeID(), r.PayeeName),
	}
}

// Contribution is the amount one entry adds to its month. replace is true
// for the fixed model: the month is set to the flat rate, not accumulated.
// A per-man-day team without a rate bills at the entry's unit price.
func (r Redirect) Contribution(manDay, unitPrice decimal.Decimal) (amount decimal.Decimal, replace bool) {
	rate := Decimal(r.SupportTeam.SupportRate)
	if r.SupportTeam.SupportModel == SupportFixed {
		return RoundHalfUp(rate), true
	}
	if !rate.IsPositive() {
		rate = unitPrice
	}
	return RoundHalfUp(manDay.Mul(rate)), false
}

// Rate is the unit rate shown on the row.
func (r Redirect) Rate(unitPrice decimal.Decimal) decimal.Decimal {
	rate := Decimal(r.SupportTeam.SupportRate)
	if r.SupportTeam.SupportModel != SupportFixed && !rate.IsPositive() {
		return unitPrice
	}
	return rate
}

// Leader resolution step names.
const (
	LeaderFromID   = "leaderId"
	LeaderFromName = "leaderName"
)

// RedirectSupport finds the payee of a support-team entry. ok is false when
// the company has no support team.
func RedirectSupport(entry ReportEntry, worker WorkerRecord, idx *Index) (Redirect, bool) {
	company, _ := ResolveCompany(entry, worker, idx)

	team, ok := idx.SupportTeamFor(company.ID, company.Name)
	if !ok {
		return Redirect{}, false
	}
	if company.ID == "" {
		company.ID = team.CompanyID
	}
	if company.Name == "" {
		company.Name = team.CompanyName
	}

	leader, step, found := FirstOf(
		Step[WorkerRecord]{Name: LeaderFromID, Resolve: func() (WorkerRecord, bool) {
			if isSentinelID(team.LeaderID) {
				return WorkerRecord{}, false
			}
			return idx.Worker(team.LeaderID)
		}},
		Step[WorkerRecord]{Name: LeaderFromName, Resolve: func() (WorkerRecord, bool) {
			if NormalizeName(team.LeaderName) == "" {
				return WorkerRecord{}, false
			}
			return idx.WorkerByName(team.LeaderName, team.ID)
		}},
	)

	rd := Redirect{
		SupportTeam: team,
		Company:     company,
		Leader:      leader,
		LeaderFound: found,
		LeaderStep:  step,
	}
	switch {
	case found:
		rd.PayeeName = firstNonBlank(leader.Name, team.LeaderName)
	case strings.TrimSpace(team.LeaderName) != "":
		rd.PayeeName = strings.TrimSpace(team.LeaderName)
	default:
		rd.PayeeName = firstNonBlank(company.Name, team.CompanyName, team.Name) + " team leader"
	}
	return rd, true
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
