package kafka

import (
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeWeightCorrected        EventType = "fulfillment.weight_corrected"
	EventTypeWeightCorrectionFailed EventType = "fulfillment.weight_correction_failed"
)

// TopicAdjustmentEvents — топик по умолчанию для уведомлений о корректировках.
const TopicAdjustmentEvents = "weight-adjuster.adjustment.events"

// AdjustmentEvent — JSON-представление попытки корректировки веса.
type AdjustmentEvent struct {
	EventType            EventType `json:"event_type"`
	OrderID              string    `json:"order_id"`
	TotalWeightGrams     float64   `json:"total_weight_grams"`
	CorrectedWeightGrams float64   `json:"corrected_weight_grams"`
	LineItemCount        int       `json:"line_item_count"`
	Result               string    `json:"result"`
	Error                string    `json:"error,omitempty"`
	SubmitDurationMs     int64     `json:"submit_duration_ms"`
	Timestamp            time.Time `json:"timestamp"`
}

// NewAdjustmentEvent строит событие из доменной записи о корректировке.
func NewAdjustmentEvent(adjustment domain.Adjustment) *AdjustmentEvent {
	eventType := EventTypeWeightCorrected
	result := "success"
	if !adjustment.Succeeded {
		eventType = EventTypeWeightCorrectionFailed
		result = "failure"
	}

	timestamp := adjustment.AttemptedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &AdjustmentEvent{
		EventType:            eventType,
		OrderID:              strconv.FormatInt(adjustment.OrderID, 10),
		TotalWeightGrams:     adjustment.TotalWeightGrams,
		CorrectedWeightGrams: adjustment.CorrectedWeight,
		LineItemCount:        adjustment.LineItemCount,
		Result:               result,
		Error:                adjustment.Error,
		SubmitDurationMs:     int64(adjustment.SubmitDurationSecs * 1000),
		Timestamp:            timestamp.UTC(),
	}
}
