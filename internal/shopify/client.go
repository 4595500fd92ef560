package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/weight-adjuster/internal/domain"
	"github.com/vladislavdragonenkov/weight-adjuster/internal/version"
)

const (
	// DefaultAPIVersion — версия Admin REST API, под которую написан клиент.
	DefaultAPIVersion = "2025-10"
	// HeaderAccessToken — заголовок авторизации приватного приложения Shopify.
	HeaderAccessToken = "X-Shopify-Access-Token"

	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 64 << 10
)

// APIError описывает не-2xx ответ Admin API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify responded %d: %s", e.StatusCode, e.Body)
}

// Unwrap связывает ошибку с доменной ErrFulfillmentRejected.
func (e *APIError) Unwrap() error {
	return domain.ErrFulfillmentRejected
}

// Options задаёт параметры клиента.
type Options struct {
	APIVersion string
	Timeout    time.Duration
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Entry
}

// Option настраивает Client.
type Option func(*Options)

// WithAPIVersion переопределяет версию Admin API.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *Options) {
		opts.APIVersion = apiVersion
	}
}

// WithTimeout ограничивает длительность одного запроса.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithBaseURL заменяет https://<store> на произвольный адрес (тесты, прокси).
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient подставляет готовый http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Client — REST-клиент Shopify Admin API для создания fulfillment.
type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	httpClient  *http.Client
	logger      *log.Entry
}

// NewClient создаёт клиента для магазина store (домен вида shop.myshopify.com).
func NewClient(store, accessToken string, opts ...Option) *Client {
	options := Options{
		APIVersion: DefaultAPIVersion,
		Timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = log.WithField("component", "shopify-client")
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: options.Timeout}
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://" + strings.TrimSuffix(store, "/")
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiVersion:  options.APIVersion,
		accessToken: accessToken,
		httpClient:  options.HTTPClient,
		logger:      options.Logger,
	}
}

// FulfillmentURL возвращает адрес создания fulfillment для заказа.
func (c *Client) FulfillmentURL(orderID int64) string {
	return fmt.Sprintf("%s/admin/api/%s/orders/%d/fulfillments.json", c.baseURL, c.apiVersion, orderID)
}

// CreateFulfillment отправляет корректирующий fulfillment. Запрос выполняется ровно один раз.
func (c *Client) CreateFulfillment(ctx context.Context, orderID int64, correction domain.FulfillmentCorrection) error {
	body, err := json.Marshal(domain.FulfillmentRequest{Fulfillment: correction})
	if err != nil {
		return fmt.Errorf("marshal fulfillment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.FulfillmentURL(orderID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fulfillment request: %w", err)
	}
	req.Header.Set(HeaderAccessToken, c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	c.logger.WithFields(log.Fields{
		"order_id": orderID,
		"payload":  string(body),
	}).Debug("sending fulfillment update")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(domain.ErrFulfillmentTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if readErr != nil {
		c.logger.WithError(readErr).WithField("order_id", orderID).Warn("failed to read error response body")
	}
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

var _ domain.FulfillmentClient = (*Client)(nil)
