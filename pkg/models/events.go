package models

import "time"

type EventType string

const (
	EventTypeSampleCollected      EventType = "sample_collected"
	EventTypeForecastCreated      EventType = "forecast_created"
	EventTypeDecisionMade         EventType = "decision_made"
	EventTypeExecutionStarted     EventType = "execution_started"
	EventTypeStepApplied          EventType = "step_applied"
	EventTypeExecutionBlocked     EventType = "execution_blocked"
	EventTypeExecutionComplete    EventType = "execution_complete"
	EventTypeExecutionFailed      EventType = "execution_failed"
	EventTypeExecutionExpired     EventType = "execution_expired"
	EventTypeConstraintInfeasible EventType = "constraint_infeasible"
	EventTypeSoftLimitRequested   EventType = "soft_limit_requested"
	EventTypeAlert                EventType = "alert"
	EventTypeError                EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal engine event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	PoolID    string        `json:"pool_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, poolID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		PoolID:    poolID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
