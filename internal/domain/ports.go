package domain

import (
	"context"
	"time"
)

// FulfillmentClient описывает взаимодействие с платформой магазина.
type FulfillmentClient interface {
	// CreateFulfillment отправляет корректирующий fulfillment по заказу. Повторов не делает.
	CreateFulfillment(ctx context.Context, orderID int64, correction FulfillmentCorrection) error
}

// AdjustmentPublisher публикует уведомления о попытках корректировки веса.
type AdjustmentPublisher interface {
	PublishAdjustment(ctx context.Context, adjustment Adjustment) error
}

// Outcome — итог обработки одного webhook-заказа для логов и метрик.
type Outcome string

const (
	OutcomeSkippedNoCarrier Outcome = "skipped_no_carrier"
	OutcomeSkippedHeavy     Outcome = "skipped_heavy"
	OutcomeSkippedMalformed Outcome = "skipped_malformed"
	OutcomeSubmitted        Outcome = "submitted"
	OutcomeSubmitFailed     Outcome = "submit_failed"
	OutcomeDispatchedAsync  Outcome = "dispatched_async"
)

// Adjustment фиксирует результат одной попытки отправки корректировки.
type Adjustment struct {
	OrderID            int64
	TotalWeightGrams   float64
	CorrectedWeight    float64
	LineItemCount      int
	Succeeded          bool
	Error              string
	AttemptedAt        time.Time
	SubmitDurationSecs float64
}
