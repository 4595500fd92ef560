package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
)

const (
	// OrdersCreatePath — путь, на который Shopify доставляет orders/create.
	OrdersCreatePath = "/webhook/orders-create"

	HeaderWebhookID = "X-Shopify-Webhook-Id"
	HeaderTopic     = "X-Shopify-Topic"
	HeaderShop      = "X-Shopify-Shop-Domain"

	maxBodyBytes = 5 << 20
)

// OrderHandler обрабатывает один заказ. Реализуется adjuster.Adjuster.
type OrderHandler interface {
	Handle(ctx context.Context, order domain.Order) domain.Outcome
}

// OutcomeRecorder учитывает итоги webhook, которые не дошли до OrderHandler.
type OutcomeRecorder interface {
	RecordWebhook(outcome string)
}

// Handler принимает webhook-заказы и всегда отвечает 200 с пустым телом.
type Handler struct {
	orders   OrderHandler
	recorder OutcomeRecorder
	logger   *log.Entry
}

// NewHandler создаёт webhook handler. recorder может быть nil.
func NewHandler(orders OrderHandler, recorder OutcomeRecorder, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "webhook")
	}
	return &Handler{
		orders:   orders,
		recorder: recorder,
		logger:   logger,
	}
}

// OrdersCreate — обработчик POST /webhook/orders-create.
func (h *Handler) OrdersCreate(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.Header.Get(HeaderWebhookID)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	logger := h.logger.WithFields(log.Fields{
		"delivery_id": deliveryID,
		"topic":       r.Header.Get(HeaderTopic),
		"shop":        r.Header.Get(HeaderShop),
	})

	// Ответ 200 гарантирован даже при панике внутри обработки.
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithField("panic", fmt.Sprint(rec)).Error("order processing panicked")
		}
		w.WriteHeader(http.StatusOK)
	}()

	order, err := decodeOrder(r.Body)
	if err != nil {
		logger.WithError(err).Warn("invalid order payload, acknowledging without processing")
		h.record(domain.OutcomeSkippedMalformed)
		return
	}

	ctx := adjuster.ContextWithDeliveryID(r.Context(), deliveryID)
	outcome := h.orders.Handle(ctx, order)
	logger.WithFields(log.Fields{
		"order_id": order.ID,
		"outcome":  outcome,
	}).Info("processing complete")
}

func (h *Handler) record(outcome domain.Outcome) {
	if h.recorder != nil {
		h.recorder.RecordWebhook(string(outcome))
	}
}

func decodeOrder(body io.Reader) (domain.Order, error) {
	var order domain.Order
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrMalformedOrder, err)
	}
	return order, nil
}
