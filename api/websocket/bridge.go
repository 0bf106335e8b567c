package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

// EventBridge bridges orchestrator events to WebSocket clients
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewEventBridge creates a new bridge between orchestrator events and WebSocket
func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening for events and forwarding to WebSocket clients
func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

// Stop stops the event bridge
func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsMessage := b.convertToWSMessage(event)
	if wsMessage == nil {
		return
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// Broadcast to all clients subscribed to this pool
	b.hub.BroadcastToPool(event.PoolID, data)
}

// WebSocketEvent is the message format sent to WebSocket clients
type WebSocketEvent struct {
	Type      string      `json:"type"`
	PoolID    string      `json:"pool_id"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (b *EventBridge) convertToWSMessage(event *models.Event) *WebSocketEvent {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return nil // Skip events we don't want to broadcast
	}

	return &WebSocketEvent{
		Type:      wsType,
		PoolID:    event.PoolID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeForecastCreated:
		return "forecast"
	case models.EventTypeDecisionMade:
		return "decision"
	case models.EventTypeExecutionStarted:
		return "execution_started"
	case models.EventTypeStepApplied:
		return "step_applied"
	case models.EventTypeExecutionBlocked:
		return "execution_blocked"
	case models.EventTypeExecutionComplete:
		return "execution_complete"
	case models.EventTypeExecutionFailed:
		return "execution_failed"
	case models.EventTypeExecutionExpired:
		return "execution_expired"
	case models.EventTypeConstraintInfeasible:
		return "constraint_infeasible"
	case models.EventTypeSoftLimitRequested:
		return "soft_limit_requested"
	case models.EventTypeAlert:
		return "alert"
	case models.EventTypeError:
		return "error"
	default:
		// Skip sample_collected and other high-volume internal events
		return ""
	}
}
