package adjuster

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/metrics"
)

const (
	// Shopify ждёт ответа на webhook около 5s, отправка должна укладываться с запасом.
	defaultSubmitTimeout  = 3 * time.Second
	defaultPublishTimeout = 2 * time.Second
)

// DispatchMode определяет, ждёт ли обработчик ответа платформы перед подтверждением webhook.
type DispatchMode string

const (
	// DispatchSync — отправка выполняется до ответа на webhook.
	DispatchSync DispatchMode = "sync"
	// DispatchAsync — webhook подтверждается сразу, отправка идёт в фоне.
	DispatchAsync DispatchMode = "async"
)

// ParseDispatchMode разбирает режим из строки конфигурации.
func ParseDispatchMode(value string) (DispatchMode, error) {
	switch DispatchMode(value) {
	case DispatchSync, DispatchAsync:
		return DispatchMode(value), nil
	default:
		return "", errors.New("dispatch mode must be sync or async")
	}
}

// Options задаёт параметры Adjuster.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.AdjusterMetrics
	Publisher     domain.AdjustmentPublisher
	SubmitTimeout  time.Duration
	PublishTimeout time.Duration
	Mode           DispatchMode
	Now            func() time.Time
}

// Option настраивает Adjuster.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт набор метрик.
func WithMetrics(m *metrics.AdjusterMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithPublisher подключает публикацию уведомлений о корректировках.
func WithPublisher(publisher domain.AdjustmentPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithSubmitTimeout ограничивает длительность вызова платформы.
func WithSubmitTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.SubmitTimeout = timeout
	}
}

// WithPublishTimeout ограничивает публикацию уведомления о корректировке.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.PublishTimeout = timeout
	}
}

// WithDispatchMode выбирает синхронную или фоновую отправку.
func WithDispatchMode(mode DispatchMode) Option {
	return func(opts *Options) {
		opts.Mode = mode
	}
}

// Adjuster применяет правило корректировки веса к одному заказу.
// Состояния между запросами не хранит, общим является только учёт фоновых отправок и публикаций.
type Adjuster struct {
	client         domain.FulfillmentClient
	publisher      domain.AdjustmentPublisher
	logger         *log.Entry
	metrics        *metrics.AdjusterMetrics
	submitTimeout  time.Duration
	publishTimeout time.Duration
	mode           DispatchMode
	now            func() time.Time

	inflight sync.WaitGroup
}

// New создаёт Adjuster поверх клиента платформы.
func New(client domain.FulfillmentClient, opts ...Option) *Adjuster {
	options := Options{
		SubmitTimeout:  defaultSubmitTimeout,
		PublishTimeout: defaultPublishTimeout,
		Mode:           DispatchSync,
		Now:            time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = log.WithField("component", "adjuster")
	}
	if options.Metrics == nil {
		options.Metrics = metrics.NewAdjusterMetrics()
	}
	if options.SubmitTimeout <= 0 {
		options.SubmitTimeout = defaultSubmitTimeout
	}
	if options.PublishTimeout <= 0 {
		options.PublishTimeout = defaultPublishTimeout
	}
	if options.Mode == "" {
		options.Mode = DispatchSync
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Adjuster{
		client:         client,
		publisher:      options.Publisher,
		logger:         options.Logger,
		metrics:        options.Metrics,
		submitTimeout:  options.SubmitTimeout,
		publishTimeout: options.PublishTimeout,
		mode:           options.Mode,
		now:            options.Now,
	}
}

// Mode возвращает режим отправки.
func (a *Adjuster) Mode() DispatchMode {
	return a.mode
}

// Handle проверяет заказ и при необходимости отправляет корректировку.
// Ошибки наружу не возвращаются: итог отражается в Outcome, логах и метриках.
func (a *Adjuster) Handle(ctx context.Context, order domain.Order) domain.Outcome {
	outcome := a.handle(ctx, order)
	a.metrics.RecordWebhook(string(outcome))
	return outcome
}

func (a *Adjuster) handle(ctx context.Context, order domain.Order) domain.Outcome {
	logger := a.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"delivery_id": DeliveryIDFromContext(ctx),
	})
	logger.Info("processing order")

	if order.ShippingLines == nil {
		return a.skipInvalid(logger, domain.ErrShippingLinesRequired, "order has no shipping_lines, skipping")
	}

	line, ok := domain.FindCarrierLine(order.ShippingLines)
	if !ok {
		logger.Info("no FedEx shipping line found, skipping")
		return domain.OutcomeSkippedNoCarrier
	}
	logger.WithFields(log.Fields{
		"shipping_title":  line.Title,
		"shipping_source": line.Source,
	}).Info("FedEx shipping line found")

	if err := order.Validate(); err != nil {
		return a.skipInvalid(logger, err, "order payload is incomplete, skipping correction")
	}

	total, err := domain.TotalWeightGrams(order.LineItems)
	if err != nil {
		return a.skipInvalid(logger, err, "order weight cannot be calculated, skipping correction")
	}
	totalGrams := total.InexactFloat64()
	a.metrics.RecordOrderWeight(totalGrams)
	logger = logger.WithField("total_weight_grams", total.String())
	logger.Info("total weight calculated")

	if !domain.BelowThreshold(total) {
		logger.Info("weight is at or above threshold, no update needed")
		return domain.OutcomeSkippedHeavy
	}

	correction := domain.NewFulfillmentCorrection(order)
	logger.WithField("corrected_weight_grams", correction.Weight).Info("weight below threshold, updating fulfillment")

	// Отправка не должна прерываться, если отправитель webhook закрыл соединение.
	submitCtx := context.WithoutCancel(ctx)

	if a.mode == DispatchAsync {
		a.inflight.Add(1)
		a.metrics.RecordAsyncStarted()
		go func() {
			defer a.inflight.Done()
			defer a.metrics.RecordAsyncFinished()
			a.submit(submitCtx, logger, order.ID, totalGrams, correction)
		}()
		return domain.OutcomeDispatchedAsync
	}

	if a.submit(submitCtx, logger, order.ID, totalGrams, correction) {
		return domain.OutcomeSubmitted
	}
	return domain.OutcomeSubmitFailed
}

// skipInvalid пропускает заказ, который нельзя обработать.
// Ошибки качества данных логируются как warning, всё остальное как error.
func (a *Adjuster) skipInvalid(logger *log.Entry, err error, msg string) domain.Outcome {
	if domain.IsDataError(err) {
		logger.WithError(err).Warn(msg)
	} else {
		logger.WithError(err).Error(msg)
	}
	return domain.OutcomeSkippedMalformed
}

// submit выполняет ровно одну попытку отправки и сообщает, была ли она успешной.
func (a *Adjuster) submit(
	ctx context.Context,
	logger *log.Entry,
	orderID int64,
	totalGrams float64,
	correction domain.FulfillmentCorrection,
) bool {
	ctx, cancel := context.WithTimeout(ctx, a.submitTimeout)
	defer cancel()

	started := a.now()
	err := a.client.CreateFulfillment(ctx, orderID, correction)
	duration := a.now().Sub(started)
	a.metrics.RecordSubmission(err == nil, duration)

	adjustment := domain.Adjustment{
		OrderID:            orderID,
		TotalWeightGrams:   totalGrams,
		CorrectedWeight:    correction.Weight,
		LineItemCount:      len(correction.LineItems),
		Succeeded:          err == nil,
		AttemptedAt:        started,
		SubmitDurationSecs: duration.Seconds(),
	}

	if err != nil {
		adjustment.Error = err.Error()
		logger.WithError(err).WithField("duration", duration).Error("error updating fulfillment")
	} else {
		logger.WithField("duration", duration).Info("fulfillment updated successfully")
	}

	a.publish(ctx, logger, adjustment)
	return err == nil
}

// publish отправляет уведомление в фоне со своим таймаутом, чтобы ответ на webhook от него не зависел.
func (a *Adjuster) publish(ctx context.Context, logger *log.Entry, adjustment domain.Adjustment) {
	if a.publisher == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()

		publishCtx, cancel := context.WithTimeout(ctx, a.publishTimeout)
		defer cancel()
		if err := a.publisher.PublishAdjustment(publishCtx, adjustment); err != nil {
			logger.WithError(err).Warn("failed to publish adjustment event")
		}
	}()
}

// Wait дожидается завершения фоновых отправок и публикаций или отмены ctx.
func (a *Adjuster) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
