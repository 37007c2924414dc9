package contracts

import (
	"time"
)

// CycleError is the terminal error descriptor persisted with a failed cycle.
type CycleError struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

// CycleArtifact is the full record of one cycle. Created at cycle start with
// stage fields absent, filled as stages complete, persisted exactly once at
// cycle end whether the cycle succeeded or aborted mid-way.
type CycleArtifact struct {
	CycleID     string           `json:"cycle_id"`
	Query       string           `json:"query"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	DurationsMS map[string]int64 `json:"duration_ms"`

	FreshSnapshot     *FreshSnapshot     `json:"fresh_snapshot,omitempty"`
	PreAnalysis       *PreAnalysisResult `json:"pre_analysis,omitempty"`
	FocusSelection    *FocusSelection    `json:"focus_selection,omitempty"`
	FinancialSnapshot *FinancialSnapshot `json:"financial_snapshot,omitempty"`
	FinalDecision     *FinalDecision     `json:"final_decision,omitempty"`
	ExecutionReport   *ExecutionReport   `json:"execution_report,omitempty"`
	Account           *AccountSnapshot   `json:"account_snapshot,omitempty"`

	FollowUpQueries []string    `json:"web_follow_up_queries,omitempty"`
	Error           *CycleError `json:"error,omitempty"`
}

// NewCycleArtifact seeds an artifact for a starting cycle.
func NewCycleArtifact(cycleID, query string, startedAt time.Time) *CycleArtifact {
	return &CycleArtifact{
		CycleID:     cycleID,
		Query:       query,
		StartedAt:   startedAt,
		DurationsMS: make(map[string]int64),
	}
}

// RecordDuration stores one stage's wall time.
func (a *CycleArtifact) RecordDuration(stage string, d time.Duration) {
	if a.DurationsMS == nil {
		a.DurationsMS = make(map[string]int64)
	}
	a.DurationsMS[stage] = d.Milliseconds()
}

// Fail attaches the terminal error descriptor; the first failure wins.
func (a *CycleArtifact) Fail(stage string, err error) {
	if a.Error != nil {
		return
	}
	ce := &CycleError{Stage: stage, Message: err.Error()}
	if se, ok := AsStageError(err); ok {
		ce.Kind = string(se.Kind)
		ce.Raw = se.Raw
	}
	a.Error = ce
}

// Failed reports whether the cycle carries a terminal error.
func (a *CycleArtifact) Failed() bool { return a.Error != nil }
