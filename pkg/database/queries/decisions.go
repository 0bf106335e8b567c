package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

var ErrDecisionNotFound = errors.New("decision not found")

// DecisionRecord is a persisted decision together with its execution
// outcome, as written by the event logger.
type DecisionRecord struct {
	Decision   models.ScalingDecision
	State      models.ExecutionState
	Failure    string
	FinishedAt *time.Time
}

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*DecisionRecord, error) {
	query := `
		SELECT id, pool_id, forecast_id, created_at, current_capacity, target_capacity, strategy, urgency, accommodation, estimated_steps, reason, state, failure, finished_at
		FROM decisions
		WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrDecisionNotFound
	}
	return scanDecision(rows)
}

func (r *DecisionRepository) GetRecent(ctx context.Context, poolID string, limit int) ([]*DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, pool_id, forecast_id, created_at, current_capacity, target_capacity, strategy, urgency, accommodation, estimated_steps, reason, state, failure, finished_at
		FROM decisions
		WHERE pool_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *DecisionRepository) GetSteps(ctx context.Context, decisionID string) ([]*models.ExecutionStep, error) {
	query := `
		SELECT id, decision_id, delta, scheduled_at, executed_at, result
		FROM execution_steps
		WHERE decision_id = $1
		ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*models.ExecutionStep
	for rows.Next() {
		var step models.ExecutionStep
		var result string
		if err := rows.Scan(
			&step.StepID,
			&step.DecisionID,
			&step.Delta,
			&step.ScheduledAt,
			&step.ExecutedAt,
			&result,
		); err != nil {
			return nil, err
		}
		step.Result = models.StepResult(result)
		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

func scanDecision(rows *sql.Rows) (*DecisionRecord, error) {
	var record DecisionRecord
	var forecastID, reason, failure sql.NullString
	var accommodation []byte
	var strategy, urgency, state string

	err := rows.Scan(
		&record.Decision.DecisionID,
		&record.Decision.PoolID,
		&forecastID,
		&record.Decision.CreatedAt,
		&record.Decision.CurrentCapacity,
		&record.Decision.TargetCapacity,
		&strategy,
		&urgency,
		&accommodation,
		&record.Decision.EstimatedSteps,
		&reason,
		&state,
		&failure,
		&record.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Decision.ForecastID = forecastID.String
	record.Decision.Strategy = models.Strategy(strategy)
	record.Decision.Urgency = models.Urgency(urgency)
	record.Decision.Reason = reason.String
	record.State = models.ExecutionState(state)
	record.Failure = failure.String

	if len(accommodation) > 0 {
		record.Decision.Accommodation = &models.Accommodation{}
		json.Unmarshal(accommodation, record.Decision.Accommodation)
	}

	return &record, nil
}
