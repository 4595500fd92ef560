package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/app"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/version"
)

const (
	envPort               = "PORT"
	envWebhookAddr        = "WEIGHT_ADJUSTER_WEBHOOK_ADDR"
	envMetricsAddr        = "WEIGHT_ADJUSTER_METRICS_ADDR"
	envShopifyStore       = "SHOPIFY_STORE"
	envAccessToken        = "ACCESS_TOKEN"
	envShopifyAccessToken = "SHOPIFY_ACCESS_TOKEN"
	envShopifyAPIVersion  = "SHOPIFY_API_VERSION"
	envShopifyBaseURL     = "SHOPIFY_BASE_URL"
	envSubmitTimeout      = "WEIGHT_ADJUSTER_SUBMIT_TIMEOUT"
	envDispatchMode       = "WEIGHT_ADJUSTER_DISPATCH_MODE"
	envKafkaBrokers       = "KAFKA_BROKERS"
	envKafkaTopic         = "KAFKA_TOPIC"
	envLogLevel           = "LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if strings.TrimSpace(level) == "" {
		return nil
	}
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}

// readConfigFromEnv формирует конфигурацию приложения из переменных окружения.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию, а причина попадает в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookupTrimmed(lookup, envPort); ok {
		if _, err := parseInt(v, func(p int) bool { return p > 0 && p <= 65535 }, "must be in 1..65535"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envPort, err))
		} else {
			cfg.WebhookAddr = ":" + v
		}
	}
	if v, ok := lookupTrimmed(lookup, envWebhookAddr); ok {
		cfg.WebhookAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envShopifyStore); ok {
		cfg.ShopifyStore = v
	}
	if v, ok := lookupTrimmed(lookup, envAccessToken); ok {
		cfg.ShopifyAccessToken = v
	}
	if v, ok := lookupTrimmed(lookup, envShopifyAccessToken); ok {
		cfg.ShopifyAccessToken = v
	}
	if v, ok := lookupTrimmed(lookup, envShopifyAPIVersion); ok {
		cfg.ShopifyAPIVersion = v
	}
	if v, ok := lookupTrimmed(lookup, envShopifyBaseURL); ok {
		cfg.ShopifyBaseURL = v
	}
	if v, ok := lookupTrimmed(lookup, envSubmitTimeout); ok {
		timeout, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envSubmitTimeout, err))
		} else {
			cfg.SubmitTimeout = timeout
		}
	}
	if v, ok := lookupTrimmed(lookup, envDispatchMode); ok {
		mode, err := adjuster.ParseDispatchMode(strings.ToLower(v))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envDispatchMode, err))
		} else {
			cfg.DispatchMode = mode
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = v
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%s %s", value, rule)
	}
	return value, nil
}

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	if err := setupLogger(os.Getenv(envLogLevel)); err != nil {
		log.WithError(err).Warn("invalid LOG_LEVEL, using info")
	}

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn("invalid configuration value, default kept: " + warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"webhook_addr":  cfg.WebhookAddr,
		"metrics_addr":  cfg.MetricsAddr,
		"shopify_store": cfg.ShopifyStore,
		"api_version":   cfg.ShopifyAPIVersion,
		"dispatch_mode": cfg.DispatchMode,
		"version":       version.String(),
	}).Info("запускаем weight-adjuster")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("weight-adjuster остановлен")
}
