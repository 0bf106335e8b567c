package events

import (
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleCollected(poolID string, set *models.SampleSet) {
	event := models.NewEvent(models.EventTypeSampleCollected, poolID, "Samples collected").
		WithData(set)
	p.publish(event)
}

func (p *Publisher) ForecastCreated(forecast *models.DemandForecast) {
	msg := "Forecast: " + string(forecast.Pattern) + " demand"
	event := models.NewEvent(models.EventTypeForecastCreated, forecast.PoolID, msg).
		WithData(forecast)

	if forecast.Urgency == models.UrgencyHigh {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) DecisionMade(decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Direction())
	event := models.NewEvent(models.EventTypeDecisionMade, decision.PoolID, msg).
		WithData(decision)

	if decision.Urgency == models.UrgencyHigh {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) ExecutionStarted(exec *models.Execution) {
	event := models.NewEvent(models.EventTypeExecutionStarted, exec.Decision.PoolID, "Execution started").
		WithData(exec)
	p.publish(event)
}

func (p *Publisher) StepApplied(exec *models.Execution, step *models.ExecutionStep) {
	event := models.NewEvent(models.EventTypeStepApplied, exec.Decision.PoolID, "Execution step applied").
		WithData(step)
	p.publish(event)
}

func (p *Publisher) ExecutionBlocked(exec *models.Execution) {
	event := models.NewEvent(models.EventTypeExecutionBlocked, exec.Decision.PoolID, "Execution blocked").
		WithSeverity(models.SeverityWarning).
		WithData(exec)
	p.publish(event)
}

func (p *Publisher) ExecutionComplete(exec *models.Execution) {
	event := models.NewEvent(models.EventTypeExecutionComplete, exec.Decision.PoolID, "Execution complete").
		WithData(exec)
	p.publish(event)
}

func (p *Publisher) ExecutionFailed(exec *models.Execution) {
	event := models.NewEvent(models.EventTypeExecutionFailed, exec.Decision.PoolID, "Execution failed: "+exec.Failure).
		WithSeverity(models.SeverityCritical).
		WithData(exec)
	p.publish(event)
}

func (p *Publisher) ExecutionExpired(exec *models.Execution) {
	event := models.NewEvent(models.EventTypeExecutionExpired, exec.Decision.PoolID, "Decision expired unexecuted").
		WithSeverity(models.SeverityWarning).
		WithData(exec)
	p.publish(event)
}

func (p *Publisher) ConstraintInfeasible(poolID string, resolution *models.Resolution) {
	event := models.NewEvent(models.EventTypeConstraintInfeasible, poolID, "Requested capacity is infeasible").
		WithSeverity(models.SeverityCritical).
		WithData(resolution)
	p.publish(event)
}

func (p *Publisher) SoftLimitRequested(poolID string, resolution *models.Resolution) {
	msg := "Soft limit increase requested"
	event := models.NewEvent(models.EventTypeSoftLimitRequested, poolID, msg).
		WithSeverity(models.SeverityWarning).
		WithData(resolution)
	p.publish(event)
}

func (p *Publisher) Alert(poolID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, poolID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(poolID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, poolID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
