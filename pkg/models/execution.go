package models

import "time"

type ExecutionState string

const (
	StatePending    ExecutionState = "pending"
	StateInProgress ExecutionState = "in_progress"
	StateCompleted  ExecutionState = "completed"
	StateFailed     ExecutionState = "failed"
	StateBlocked    ExecutionState = "blocked"
	StateCancelled  ExecutionState = "cancelled"
	StateExpired    ExecutionState = "expired"
)

func (s ExecutionState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

type StepResult string

const (
	StepPending StepResult = "pending"
	StepApplied StepResult = "applied"
	StepFailed  StepResult = "failed"
)

// ExecutionStep is one rate-limited slice of a decision's capacity delta.
// Owned exclusively by the staged executor and mutated in place as it
// completes. The deltas of all steps for one decision sum exactly to the
// decision's total delta.
type ExecutionStep struct {
	StepID      string     `json:"step_id"`
	DecisionID  string     `json:"decision_id"`
	Delta       int        `json:"step_capacity_delta"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	Result      StepResult `json:"result"`
}

// Execution is the executor's view of one decision in flight, reported to
// the API and the event stream.
type Execution struct {
	Decision   *ScalingDecision `json:"decision"`
	Steps      []*ExecutionStep `json:"steps"`
	State      ExecutionState   `json:"state"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Failure    string           `json:"failure,omitempty"`
}

func (e *Execution) AppliedDelta() int {
	var total int
	for _, step := range e.Steps {
		if step.Result == StepApplied {
			total += step.Delta
		}
	}
	return total
}

func (e *Execution) RemainingSteps() int {
	var remaining int
	for _, step := range e.Steps {
		if step.Result == StepPending {
			remaining++
		}
	}
	return remaining
}
