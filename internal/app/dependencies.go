package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/metrics"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/shopify"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Fulfillments domain.FulfillmentClient
	// Producer равен nil, если публикация событий не настроена или брокеры недоступны.
	Producer *kafka.Producer
	Metrics  *metrics.AdjusterMetrics
	Logger   *log.Entry
}

// NewDependencies создаёт клиентов внешних систем по конфигурации.
// Недоступность Kafka не останавливает сервис: корректировки работают и без событий.
func NewDependencies(cfg Config, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	opts := []shopify.Option{
		shopify.WithAPIVersion(cfg.ShopifyAPIVersion),
		shopify.WithTimeout(cfg.SubmitTimeout),
		shopify.WithLogger(logger.WithField("layer", "shopify")),
	}
	if cfg.ShopifyBaseURL != "" {
		opts = append(opts, shopify.WithBaseURL(cfg.ShopifyBaseURL))
	}

	producer, _ := initKafkaProducer(cfg.KafkaBrokerList(), cfg.KafkaTopic, logger)

	return &Dependencies{
		Fulfillments: shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyAccessToken, opts...),
		Producer:     producer,
		Metrics:      metrics.NewAdjusterMetrics(),
		Logger:       logger,
	}
}

// createAdjuster собирает Adjuster с публикацией событий или без неё
// в зависимости от наличия kafka producer.
func createAdjuster(cfg Config, deps *Dependencies) *adjuster.Adjuster {
	opts := []adjuster.Option{
		adjuster.WithLogger(deps.Logger.WithField("layer", "adjuster")),
		adjuster.WithMetrics(deps.Metrics),
		adjuster.WithSubmitTimeout(cfg.SubmitTimeout),
		adjuster.WithDispatchMode(cfg.DispatchMode),
	}
	if deps.Producer != nil {
		opts = append(opts, adjuster.WithPublisher(deps.Producer))
	}
	return adjuster.New(deps.Fulfillments, opts...)
}
