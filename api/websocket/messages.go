package websocket

import (
	"encoding/json"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

type MessageType string

const (
	MessageTypeForecast     MessageType = "forecast"
	MessageTypeDecision     MessageType = "decision"
	MessageTypeStepApplied  MessageType = "step_applied"
	MessageTypeAlert        MessageType = "alert"
	MessageTypePoolCapacity MessageType = "pool_capacity"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	PoolID    string      `json:"pool_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewMessage(msgType MessageType, poolID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		PoolID:    poolID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type ForecastData struct {
	PredictedDemand float64 `json:"predicted_demand"`
	Confidence      float64 `json:"confidence"`
	Pattern         string  `json:"pattern"`
	Recommended     int     `json:"recommended_capacity"`
	Urgency         string  `json:"urgency"`
}

type DecisionData struct {
	DecisionID      string `json:"decision_id"`
	CurrentCapacity int    `json:"current_capacity"`
	TargetCapacity  int    `json:"target_capacity"`
	Strategy        string `json:"strategy"`
	Reason          string `json:"reason"`
}

type AlertData struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func BroadcastForecast(hub *Hub, forecast *models.DemandForecast) {
	data := ForecastData{
		PredictedDemand: forecast.PredictedDemand,
		Confidence:      forecast.Confidence,
		Pattern:         string(forecast.Pattern),
		Recommended:     forecast.RecommendedCapacity,
		Urgency:         string(forecast.Urgency),
	}
	msg := NewMessage(MessageTypeForecast, forecast.PoolID, data)
	hub.BroadcastToPool(forecast.PoolID, msg.JSON())
}

func BroadcastDecision(hub *Hub, decision *models.ScalingDecision) {
	data := DecisionData{
		DecisionID:      decision.DecisionID,
		CurrentCapacity: decision.CurrentCapacity,
		TargetCapacity:  decision.TargetCapacity,
		Strategy:        string(decision.Strategy),
		Reason:          decision.Reason,
	}
	msg := NewMessage(MessageTypeDecision, decision.PoolID, data)
	hub.BroadcastToPool(decision.PoolID, msg.JSON())
}

func BroadcastAlert(hub *Hub, poolID string, severity, message string) {
	data := AlertData{
		Severity: severity,
		Message:  message,
	}
	msg := NewMessage(MessageTypeAlert, poolID, data)
	hub.BroadcastToPool(poolID, msg.JSON())
}
