package executor

import (
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

// PlanSteps splits the decision's capacity delta into increments of at
// most maxPerStep units each. The deltas always sum exactly to the
// decision's delta; the final step carries the remainder and is never
// padded up, so a plan can never overshoot the target.
func PlanSteps(decision *models.ScalingDecision, maxPerStep int, interval time.Duration) []*models.ExecutionStep {
	if maxPerStep <= 0 {
		maxPerStep = 3
	}

	delta := decision.Delta()
	if delta == 0 {
		return nil
	}

	sign := 1
	if delta < 0 {
		sign = -1
		delta = -delta
	}

	count := (delta + maxPerStep - 1) / maxPerStep
	steps := make([]*models.ExecutionStep, 0, count)

	remaining := delta
	at := time.Now()
	for remaining > 0 {
		size := maxPerStep
		if remaining < size {
			size = remaining
		}
		steps = append(steps, &models.ExecutionStep{
			StepID:      models.NewUUID(),
			DecisionID:  decision.DecisionID,
			Delta:       sign * size,
			ScheduledAt: at,
			Result:      models.StepPending,
		})
		remaining -= size
		at = at.Add(interval)
	}

	return steps
}
