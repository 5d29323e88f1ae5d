package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const (
	dodoTestBaseURL = "https://test.dodopayments.com"
	dodoLiveBaseURL = "https://live.dodopayments.com"
)

// DodoAPI is the slice of the Dodo Payments API the billing service uses.
// The concrete client is constructed once at process start and injected.
type DodoAPI interface {
	CreateCheckoutSession(ctx context.Context, productID, returnURL string) (*CheckoutSession, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, cancelAtNextBillingDate bool) error
	GetSubscription(ctx context.Context, subscriptionID string) (json.RawMessage, error)
}

// CheckoutSession is the provider-hosted purchase flow handed back to the
// client for redirect.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type DodoClient struct {
	APIKey  string
	BaseURL string

	HTTPClient *http.Client
}

// NewDodoClientFromEnv builds the Dodo client from DODO_PAYMENTS_API_KEY.
// Test-mode keys and dev environments route to the provider sandbox.
func NewDodoClientFromEnv() (*DodoClient, error) {
	apiKey := strings.TrimSpace(env.GetEnv("DODO_PAYMENTS_API_KEY", ""))
	if apiKey == "" {
		return nil, errors.New("DODO_PAYMENTS_API_KEY is not configured")
	}

	baseURL := strings.TrimSpace(env.GetEnv("DODO_PAYMENTS_BASE_URL", ""))
	if baseURL == "" {
		if strings.HasPrefix(apiKey, "test_") || env.IsDev() {
			baseURL = dodoTestBaseURL
		} else {
			baseURL = dodoLiveBaseURL
		}
	}

	return &DodoClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// CreateCheckoutSession requests a hosted checkout URL for exactly one
// unit of the given product.
func (c *DodoClient) CreateCheckoutSession(ctx context.Context, productID, returnURL string) (*CheckoutSession, error) {
	body := map[string]any{
		"product_cart": []map[string]any{
			{"product_id": productID, "quantity": 1},
		},
		"return_url": returnURL,
	}

	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkouts", body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.CheckoutURL) == "" {
		return nil, errors.New("checkout session response missing checkout_url")
	}
	return &out, nil
}

// UpdateSubscription requests cancellation, either at the next billing
// date or immediately.
func (c *DodoClient) UpdateSubscription(ctx context.Context, subscriptionID string, cancelAtNextBillingDate bool) error {
	body := map[string]any{
		"cancel_at_next_billing_date": cancelAtNextBillingDate,
	}
	if !cancelAtNextBillingDate {
		body["status"] = "cancelled"
	}
	return c.do(ctx, http.MethodPatch, "/subscriptions/"+url.PathEscape(subscriptionID), body, nil)
}

// GetSubscription retrieves the provider's current view of a subscription.
// The raw document is returned so it can be persisted verbatim.
func (c *DodoClient) GetSubscription(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DodoClient) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dodo %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
