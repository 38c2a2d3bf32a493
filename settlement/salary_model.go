package settlement

// =============================================================================
// SALARY MODEL
// =============================================================================

// SalaryModel is the pay model governing one report entry.
type SalaryModel string

const (
	DailyWage   SalaryModel = "dailyWage"
	MonthlyWage SalaryModel = "monthlyWage"
	SupportTeam SalaryModel = "supportTeam"
	ServiceTeam SalaryModel = "serviceTeam"
)

// ParseSalaryModel normalizes the many spellings found in source data.
// ok is false when s names no known model.
func ParseSalaryModel(s string) (SalaryModel, bool) {
	switch NormalizeTag(s) {
	case "daily", "dailywage", "day", "일당", "일급", "일용":
		return DailyWage, true
	case "monthly", "monthlywage", "month", "월급", "월급제", "월정액":
		return MonthlyWage, true
	case "support", "supportteam", "지원", "지원팀":
		return SupportTeam, true
	case "service", "serviceteam", "용역", "용역팀":
		return ServiceTeam, true
	default:
		return "", false
	}
}

// =============================================================================
// CARRY-FORWARD STATE
// =============================================================================

type carryKey struct {
	WorkerID  string
	YearMonth YearMonth
}

// CarryForward remembers the model resolved for each (worker, month) earlier
// in the same chronological pass. It is created per run and never shared
// between runs.
type CarryForward struct {
	models map[carryKey]SalaryModel
}

// NewCarryForward returns an empty carry-forward table.
func NewCarryForward() *CarryForward {
	return &CarryForward{models: make(map[carryKey]SalaryModel)}
}

// Get returns the model recorded for the worker in ym.
func (c *CarryForward) Get(workerID string, ym YearMonth) (SalaryModel, bool) {
	m, ok := c.models[carryKey{WorkerID: workerID, YearMonth: ym}]
	return m, ok
}

func (c *CarryForward) set(workerID string, ym YearMonth, m SalaryModel) {
	c.models[carryKey{WorkerID: workerID, YearMonth: ym}] = m
}

// Len returns the number of remembered (worker, month) pairs.
func (c *CarryForward) Len() int { return len(c.models) }

// =============================================================================
// RESOLVER
// =============================================================================

// Resolution step names, in evaluation order.
const (
	StepHint          = "hint"
	StepCarryForward  = "carry_forward"
	StepTeamType      = "team_type"
	StepWorkerDefault = "worker_default"
	StepFallback      = "fallback"
)

// Resolution is the model chosen for an entry and the step that chose it.
type Resolution struct {
	Model SalaryModel
	Step  string
}

// ResolveSalaryModel decides the pay model of an entry:
//
//  1. the entry's explicit hint
//  2. the model carried forward for (worker, month)
//  3. the worker's team type (support / service)
//  4. the worker's default salary model
//  5. dailyWage
//
// The chosen model is written back to the carry-forward table, so entries
// must be fed in date order.
func ResolveSalaryModel(entry ReportEntry, worker WorkerRecord, ym YearMonth, state *CarryForward) Resolution {
	model, step, _ := FirstOf(
		Step[SalaryModel]{Name: StepHint, Resolve: func() (SalaryModel, bool) {
			return ParseSalaryModel(entry.SalaryModelHint)
		}},
		Step[SalaryModel]{Name: StepCarryForward, Resolve: func() (SalaryModel, bool) {
			return state.Get(worker.ID, ym)
		}},
		Step[SalaryModel]{Name: StepTeamType, Resolve: func() (SalaryModel, bool) {
			return modelForTeamType(worker.TeamType)
		}},
		Step[SalaryModel]{Name: StepWorkerDefault, Resolve: func() (SalaryModel, bool) {
			return ParseSalaryModel(worker.DefaultSalaryModel)
		}},
		Step[SalaryModel]{Name: StepFallback, Resolve: func() (SalaryModel, bool) {
			return DailyWage, true
		}},
	)

	state.set(worker.ID, ym, model)
	return Resolution{Model: model, Step: step}
}

func modelForTeamType(t TeamType) (SalaryModel, bool) {
	switch t {
	case TeamSupport:
		return SupportTeam, true
	case TeamService:
		return ServiceTeam, true
	default:
		return "", false
	}
}
