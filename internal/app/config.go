package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/shopify"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	WebhookAddr string
	MetricsAddr string

	ShopifyStore       string
	ShopifyAccessToken string
	ShopifyAPIVersion  string
	// ShopifyBaseURL заменяет https://<store>, если задан.
	ShopifyBaseURL string

	SubmitTimeout time.Duration
	DispatchMode  adjuster.DispatchMode

	// KafkaBrokers: брокеры через запятую. Пустая строка выключает публикацию событий.
	KafkaBrokers string
	KafkaTopic   string
}

// DefaultConfig возвращает базовые настройки без учётных данных магазина.
func DefaultConfig() Config {
	return Config{
		WebhookAddr:       ":3000",
		MetricsAddr:       ":9090",
		ShopifyAPIVersion: shopify.DefaultAPIVersion,
		SubmitTimeout:     3 * time.Second,
		DispatchMode:      adjuster.DispatchSync,
	}
}

// Validate проверяет, что конфигурации достаточно для запуска.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.WebhookAddr) == "" {
		errs = append(errs, errors.New("webhook address is required"))
	}
	if strings.TrimSpace(c.ShopifyStore) == "" && strings.TrimSpace(c.ShopifyBaseURL) == "" {
		errs = append(errs, errors.New("shopify store domain is required"))
	}
	if strings.TrimSpace(c.ShopifyAccessToken) == "" {
		errs = append(errs, errors.New("shopify access token is required"))
	}
	if c.SubmitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("submit timeout must be > 0, got %s", c.SubmitTimeout))
	}
	if _, err := adjuster.ParseDispatchMode(string(c.DispatchMode)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// KafkaBrokerList разбирает KafkaBrokers, отбрасывая пустые элементы.
func (c Config) KafkaBrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
