package adjuster_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/metrics"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
)

type fulfillmentCall struct {
	orderID    int64
	correction domain.FulfillmentCorrection
	deadline   bool
}

type stubClient struct {
	mu    sync.Mutex
	calls []fulfillmentCall
	err   error
	block chan struct{}
}

func (s *stubClient) CreateFulfillment(ctx context.Context, orderID int64, correction domain.FulfillmentCorrection) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, hasDeadline := ctx.Deadline()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fulfillmentCall{orderID: orderID, correction: correction, deadline: hasDeadline})
	return s.err
}

func (s *stubClient) Calls() []fulfillmentCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fulfillmentCall(nil), s.calls...)
}

type stubPublisher struct {
	mu          sync.Mutex
	adjustments []domain.Adjustment
	deadlines   []bool
	err         error
	// blockUntilDone держит публикацию до отмены контекста.
	blockUntilDone bool
}

func (s *stubPublisher) PublishAdjustment(ctx context.Context, adjustment domain.Adjustment) error {
	_, hasDeadline := ctx.Deadline()
	if s.blockUntilDone {
		<-ctx.Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments = append(s.adjustments, adjustment)
	s.deadlines = append(s.deadlines, hasDeadline)
	if s.blockUntilDone {
		return ctx.Err()
	}
	return s.err
}

func (s *stubPublisher) Adjustments() []domain.Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Adjustment(nil), s.adjustments...)
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

func newAdjuster(client domain.FulfillmentClient, opts ...adjuster.Option) *adjuster.Adjuster {
	base := []adjuster.Option{
		adjuster.WithLogger(loggerForTests()),
		adjuster.WithMetrics(metrics.NewAdjusterMetricsWithRegisterer(prometheus.NewRegistry())),
	}
	return adjuster.New(client, append(base, opts...)...)
}

func fedexOrder(items ...domain.LineItem) domain.Order {
	location := int64(655441491)
	return domain.Order{
		ID:            5001,
		LocationID:    &location,
		ShippingLines: []domain.ShippingLine{{Title: "Fedex Ground Economy", Source: "other"}},
		LineItems:     items,
	}
}

// Scenario A: лёгкий заказ FedEx получает корректировку.
func TestHandle_LightFedexOrderSubmitsCorrection(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)

	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 2, Grams: 100}))

	require.Equal(t, domain.OutcomeSubmitted, outcome)
	calls := client.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, int64(5001), calls[0].orderID)
	require.Equal(t, 453.6, calls[0].correction.Weight)
	require.Equal(t, []domain.FulfillmentLineItem{{ID: 1, Quantity: 2}}, calls[0].correction.LineItems)
	require.False(t, calls[0].correction.NotifyCustomer)
	require.Empty(t, calls[0].correction.TrackingNumbers)
	require.Equal(t, int64(655441491), *calls[0].correction.LocationID)
	require.True(t, calls[0].deadline, "submission must be bounded by a timeout")
}

// Scenario B: доставка не FedEx — вызова нет.
func TestHandle_OtherCarrierIsSkipped(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)

	order := fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 10})
	order.ShippingLines = []domain.ShippingLine{{Title: "UPS Ground", Source: "ups"}}

	require.Equal(t, domain.OutcomeSkippedNoCarrier, a.Handle(context.Background(), order))
	require.Empty(t, client.Calls())
}

// Scenario C: вес на пороге или выше — вызова нет.
func TestHandle_HeavyOrderIsSkipped(t *testing.T) {
	cases := []struct {
		name  string
		items []domain.LineItem
	}{
		{name: "above", items: []domain.LineItem{{ID: 5, Quantity: 1, Grams: 500}}},
		{name: "exactly threshold", items: []domain.LineItem{{ID: 5, Quantity: 2, Grams: 226.8}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{}
			a := newAdjuster(client)

			require.Equal(t, domain.OutcomeSkippedHeavy, a.Handle(context.Background(), fedexOrder(tc.items...)))
			require.Empty(t, client.Calls())
		})
	}
}

// Scenario D: ошибка платформы не выходит за пределы Handle.
func TestHandle_PlatformErrorIsSwallowed(t *testing.T) {
	client := &stubClient{err: errors.Join(domain.ErrFulfillmentRejected, errors.New("500 internal"))}
	publisher := &stubPublisher{}
	a := newAdjuster(client, adjuster.WithPublisher(publisher))

	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 100}))

	require.Equal(t, domain.OutcomeSubmitFailed, outcome)
	require.Len(t, client.Calls(), 1, "failed submission must not be retried")
	require.NoError(t, a.Wait(context.Background()))

	adjustments := publisher.Adjustments()
	require.Len(t, adjustments, 1)
	require.False(t, adjustments[0].Succeeded)
	require.Contains(t, adjustments[0].Error, "500 internal")
}

func TestHandle_SameOrderTwiceProducesTwoCalls(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)
	order := fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 1})

	a.Handle(context.Background(), order)
	a.Handle(context.Background(), order)

	require.Len(t, client.Calls(), 2)
}

func TestHandle_LineItemsOrderPreserved(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)

	a.Handle(context.Background(), fedexOrder(
		domain.LineItem{ID: 30, Quantity: 1, Grams: 10},
		domain.LineItem{ID: 10, Quantity: 4, Grams: 5},
		domain.LineItem{ID: 20, Quantity: 2, Grams: 0},
	))

	calls := client.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, []domain.FulfillmentLineItem{
		{ID: 30, Quantity: 1},
		{ID: 10, Quantity: 4},
		{ID: 20, Quantity: 2},
	}, calls[0].correction.LineItems)
}

func TestHandle_MalformedOrders(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{name: "missing line items", mut: func(o *domain.Order) { o.LineItems = nil }},
		{name: "missing shipping lines", mut: func(o *domain.Order) { o.ShippingLines = nil }},
		{name: "missing id", mut: func(o *domain.Order) { o.ID = 0 }},
		{name: "negative grams", mut: func(o *domain.Order) { o.LineItems[0].Grams = -5 }},
		{name: "negative quantity", mut: func(o *domain.Order) { o.LineItems[0].Quantity = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{}
			a := newAdjuster(client)
			order := fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 10})
			tc.mut(&order)

			require.Equal(t, domain.OutcomeSkippedMalformed, a.Handle(context.Background(), order))
			require.Empty(t, client.Calls())
		})
	}
}

func TestHandle_EmptyShippingLinesIsNoMatch(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)
	order := fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 10})
	order.ShippingLines = []domain.ShippingLine{}

	require.Equal(t, domain.OutcomeSkippedNoCarrier, a.Handle(context.Background(), order))
	require.Empty(t, client.Calls())
}

func TestHandle_PublishesSuccessfulAdjustment(t *testing.T) {
	client := &stubClient{}
	publisher := &stubPublisher{err: errors.New("kafka down")}
	a := newAdjuster(client, adjuster.WithPublisher(publisher))

	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 3, Grams: 50}))

	require.Equal(t, domain.OutcomeSubmitted, outcome, "publisher failure must not change the outcome")
	require.NoError(t, a.Wait(context.Background()))

	adjustments := publisher.Adjustments()
	require.Len(t, adjustments, 1)
	require.True(t, adjustments[0].Succeeded)
	require.Equal(t, float64(150), adjustments[0].TotalWeightGrams)
	require.Equal(t, 1, adjustments[0].LineItemCount)
}

func TestHandle_SlowPublisherDoesNotDelayAcknowledgement(t *testing.T) {
	client := &stubClient{}
	publisher := &stubPublisher{blockUntilDone: true}
	a := newAdjuster(client,
		adjuster.WithPublisher(publisher),
		adjuster.WithSubmitTimeout(50*time.Millisecond),
		adjuster.WithPublishTimeout(200*time.Millisecond),
	)

	started := time.Now()
	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 1}))
	elapsed := time.Since(started)

	require.Equal(t, domain.OutcomeSubmitted, outcome)
	require.Less(t, elapsed, 50*time.Millisecond, "handler must not wait for event publishing")

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Wait(waitCtx), "publish timeout must release a blocked publisher")

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Equal(t, []bool{true}, publisher.deadlines)
}

func TestHandle_CanceledRequestContextDoesNotAbortSubmission(t *testing.T) {
	client := &stubClient{}
	a := newAdjuster(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Equal(t, domain.OutcomeSubmitted, a.Handle(ctx, fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 1})))
	require.Len(t, client.Calls(), 1)
}

func TestHandle_SubmitTimeout(t *testing.T) {
	client := &stubClient{block: make(chan struct{})}
	defer close(client.block)
	a := newAdjuster(client, adjuster.WithSubmitTimeout(20*time.Millisecond))

	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 1}))

	require.Equal(t, domain.OutcomeSubmitFailed, outcome)
}

func TestHandle_AsyncDispatch(t *testing.T) {
	client := &stubClient{block: make(chan struct{})}
	a := newAdjuster(client, adjuster.WithDispatchMode(adjuster.DispatchAsync))

	outcome := a.Handle(context.Background(), fedexOrder(domain.LineItem{ID: 1, Quantity: 1, Grams: 1}))
	require.Equal(t, domain.OutcomeDispatchedAsync, outcome)
	require.Empty(t, client.Calls(), "handler must not wait for the platform in async mode")

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Wait(waitCtx), context.DeadlineExceeded)

	close(client.block)
	require.NoError(t, a.Wait(context.Background()))
	require.Len(t, client.Calls(), 1)
}

func TestWait_NoInflight(t *testing.T) {
	a := newAdjuster(&stubClient{})
	require.NoError(t, a.Wait(context.Background()))
}

func TestParseDispatchMode(t *testing.T) {
	mode, err := adjuster.ParseDispatchMode("async")
	require.NoError(t, err)
	require.Equal(t, adjuster.DispatchAsync, mode)

	_, err = adjuster.ParseDispatchMode("later")
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	a := newAdjuster(&stubClient{})
	require.Equal(t, adjuster.DispatchSync, a.Mode())
}

func TestDeliveryIDContext(t *testing.T) {
	ctx := adjuster.ContextWithDeliveryID(context.Background(), "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043")
	require.Equal(t, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043", adjuster.DeliveryIDFromContext(ctx))
	require.Empty(t, adjuster.DeliveryIDFromContext(context.Background()))
}
