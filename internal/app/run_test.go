package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfig(t *testing.T) {
	err := Run(context.Background(), Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")
}

func TestRun_WebhookToFulfillment(t *testing.T) {
	var (
		fulfillments atomic.Int32
		gotPath      atomic.Value
		gotBody      atomic.Value
	)
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fulfillments.Add(1)
		body, _ := io.ReadAll(r.Body)
		gotPath.Store(r.URL.Path)
		gotBody.Store(string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer shop.Close()

	webhookPort := findFreePort(t)
	metricsPort := findFreePort(t)

	cfg := DefaultConfig()
	cfg.WebhookAddr = fmt.Sprintf("127.0.0.1:%d", webhookPort)
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", metricsPort)
	cfg.ShopifyBaseURL = shop.URL
	cfg.ShopifyAccessToken = "shpat_test"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	webhookURL := fmt.Sprintf("http://127.0.0.1:%d/webhook/orders-create", webhookPort)
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/readyz", metricsPort))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	order := `{"id": 450789469, "location_id": 24826418, "shipping_lines": [{"title": "Fedex Ground Economy", "source": "other"}], "line_items": [{"id": 1, "quantity": 2, "grams": 100}]}`
	require.Eventually(t, func() bool {
		resp, err := http.Post(webhookURL, "application/json", strings.NewReader(order))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && len(body) == 0
	}, 2*time.Second, 20*time.Millisecond)

	require.Equal(t, int32(1), fulfillments.Load())
	require.Equal(t, "/admin/api/2025-10/orders/450789469/fulfillments.json", gotPath.Load())
	require.JSONEq(t, `{"fulfillment": {"location_id": 24826418, "tracking_numbers": [], "notify_customer": false, "line_items": [{"id": 1, "quantity": 2}], "weight": 453.6}}`, gotBody.Load().(string))

	cancel()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled), "unexpected run error: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
