package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/weight-adjuster/internal/health"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/service/adjuster"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/version"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/webhook"
)

const shutdownTimeout = 5 * time.Second

// Run запускает приём webhook и служебный HTTP-сервер и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.WithField("component", "app")
	deps := NewDependencies(cfg, logger)
	defer closeKafka(deps.Producer, logger)

	adj := createAdjuster(cfg, deps)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	registerHealthChecks(healthHandler, cfg, deps)

	handler := webhook.NewHandler(adj, deps.Metrics, logger.WithField("layer", "webhook"))
	webhookSrv := &http.Server{
		Addr:              cfg.WebhookAddr,
		Handler:           webhook.NewRouter(handler, logger.WithField("layer", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":          cfg.WebhookAddr,
			"path":          webhook.OrdersCreatePath,
			"dispatch_mode": adj.Mode(),
		}).Info("webhook server running")
		errCh <- webhookSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем webhook сервер")
		shutdownHTTP(webhookSrv, logger)
		drainAdjuster(adj, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		drainAdjuster(adj, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// drainAdjuster ждёт фоновые отправки корректировок не дольше shutdownTimeout.
func drainAdjuster(adj *adjuster.Adjuster, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := adj.Wait(ctx); err != nil {
		logger.WithError(err).Warn("background fulfillment submissions did not finish before shutdown")
	}
}

// registerHealthChecks добавляет проверки конфигурации Shopify и публикации событий.
func registerHealthChecks(h *healthcheck.Handler, cfg Config, deps *Dependencies) {
	h.RegisterChecker("shopify", healthcheck.NewSimpleChecker("shopify", func() error {
		if cfg.ShopifyAccessToken == "" {
			return errors.New("access token is not configured")
		}
		if cfg.ShopifyStore == "" && cfg.ShopifyBaseURL == "" {
			return errors.New("store domain is not configured")
		}
		return nil
	}))

	if len(cfg.KafkaBrokerList()) == 0 {
		return
	}
	h.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", func() error {
		if deps.Producer == nil {
			return errors.New("producer is not connected, adjustment events are not published")
		}
		return nil
	}))
}

// startMetricsServer запускает служебный HTTP-сервер: /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
