package events

import (
	"context"
	"encoding/json"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/database"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type EventLogger struct {
	db        *database.DB
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	// Log to structured logger
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"pool_id":    event.PoolID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	// Persist specific events to database
	switch event.Type {
	case models.EventTypeForecastCreated:
		l.persistForecast(event)
	case models.EventTypeDecisionMade:
		l.persistDecision(event)
	case models.EventTypeStepApplied:
		l.persistStep(event)
	case models.EventTypeExecutionComplete,
		models.EventTypeExecutionFailed,
		models.EventTypeExecutionBlocked,
		models.EventTypeExecutionExpired:
		l.persistExecutionState(event)
	}
}

func (l *EventLogger) persistForecast(event *models.Event) {
	forecast, ok := event.Data.(*models.DemandForecast)
	if !ok {
		return
	}

	query := `
		INSERT INTO forecasts
			(id, pool_id, created_at, metric, current_demand, predicted_demand, confidence, horizon_minutes, pattern, recommended_capacity, urgency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := l.db.ExecContext(l.ctx, query,
		forecast.ForecastID,
		forecast.PoolID,
		forecast.CreatedAt,
		forecast.Metric,
		forecast.CurrentDemand,
		forecast.PredictedDemand,
		forecast.Confidence,
		forecast.HorizonMinutes,
		forecast.Pattern,
		forecast.RecommendedCapacity,
		forecast.Urgency,
	)

	if err != nil {
		logger.Errorf("Failed to persist forecast: %v", err)
	}
}

func (l *EventLogger) persistDecision(event *models.Event) {
	decision, ok := event.Data.(*models.ScalingDecision)
	if !ok {
		return
	}

	var accommodation []byte
	if decision.Accommodation != nil {
		accommodation, _ = json.Marshal(decision.Accommodation)
	}

	query := `
		INSERT INTO decisions
			(id, pool_id, forecast_id, created_at, current_capacity, target_capacity, strategy, urgency, accommodation, estimated_steps, reason, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := l.db.ExecContext(l.ctx, query,
		decision.DecisionID,
		decision.PoolID,
		decision.ForecastID,
		decision.CreatedAt,
		decision.CurrentCapacity,
		decision.TargetCapacity,
		decision.Strategy,
		decision.Urgency,
		accommodation,
		decision.EstimatedSteps,
		decision.Reason,
		models.StatePending,
	)

	if err != nil {
		logger.Errorf("Failed to persist decision: %v", err)
	}
}

func (l *EventLogger) persistStep(event *models.Event) {
	step, ok := event.Data.(*models.ExecutionStep)
	if !ok {
		return
	}

	query := `
		INSERT INTO execution_steps
			(id, decision_id, delta, scheduled_at, executed_at, result)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := l.db.ExecContext(l.ctx, query,
		step.StepID,
		step.DecisionID,
		step.Delta,
		step.ScheduledAt,
		step.ExecutedAt,
		step.Result,
	)

	if err != nil {
		logger.Errorf("Failed to persist execution step: %v", err)
	}
}

func (l *EventLogger) persistExecutionState(event *models.Event) {
	exec, ok := event.Data.(*models.Execution)
	if !ok {
		return
	}

	query := `
		UPDATE decisions SET state = $1, failure = $2, finished_at = $3 WHERE id = $4`

	_, err := l.db.ExecContext(l.ctx, query,
		exec.State,
		exec.Failure,
		exec.FinishedAt,
		exec.Decision.DecisionID,
	)

	if err != nil {
		logger.Errorf("Failed to persist execution state: %v", err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
