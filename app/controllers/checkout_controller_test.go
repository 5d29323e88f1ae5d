package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

func newCheckoutTestApp(svc *billing.Service) *fiber.App {
	app := fiber.New()
	app.Post("/api/payments/create-checkout", HandleCreateCheckout(svc))
	return app
}

func postCheckout(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-checkout", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHandleCreateCheckout_StaleTimestamp(t *testing.T) {
	app := newCheckoutTestApp(billing.NewService(nil, nil, nil))

	old := time.Now().Add(-10 * time.Minute).UnixMilli()
	body := fmt.Sprintf(`{"productId":%q,"timestamp":%d}`, billing.ProductBasic, old)
	resp := postCheckout(t, app, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Request expired", out["error"])
}

func TestHandleCreateCheckout_UnknownProduct(t *testing.T) {
	app := newCheckoutTestApp(billing.NewService(nil, nil, nil))

	body := fmt.Sprintf(`{"productId":"pdt_nope","timestamp":%d}`, time.Now().UnixMilli())
	resp := postCheckout(t, app, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Invalid product ID", out["error"])
}

func TestHandleCreateCheckout_MissingFields(t *testing.T) {
	app := newCheckoutTestApp(billing.NewService(nil, nil, nil))

	resp := postCheckout(t, app, `{"successUrl":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleCreateCheckout_ProviderNotConfigured(t *testing.T) {
	app := newCheckoutTestApp(billing.NewService(nil, nil, nil))

	body := fmt.Sprintf(`{"productId":%q,"timestamp":%d}`, billing.ProductPro, time.Now().UnixMilli())
	resp := postCheckout(t, app, body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Payment service unavailable", out["error"])
}
