package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckoutConfig holds the credentials and endpoints of the hosted
// checkout provider.
type CheckoutConfig struct {
	SecretKey  string
	BaseURL    string
	SuccessURL string
	CancelURL  string
}

// CheckoutClient talks to the hosted checkout API over HTTP.
type CheckoutClient struct {
	config CheckoutConfig
	client *http.Client
}

func NewCheckoutClient(config CheckoutConfig) *CheckoutClient {
	return &CheckoutClient{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type sessionRequest struct {
	Reference   string `json:"reference"`
	AmountCents uint64 `json:"amount_cents"`
	Currency    string `json:"currency"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

type sessionResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Reference   string `json:"reference"`
	AmountCents uint64 `json:"amount_cents"`
	Status      string `json:"status"`
}

// GatewayError is a non-2xx response from the checkout provider.
type GatewayError struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("checkout gateway: %s (http %d)", e.Message, e.StatusCode)
}

func (c *CheckoutClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(sessionRequest{
		Reference:   req.Reference,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/checkout/sessions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	return c.do(httpReq)
}

func (c *CheckoutClient) GetSession(ctx context.Context, id string) (*Session, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/v1/checkout/sessions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create session lookup: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	httpReq.Header.Set("Accept", "application/json")

	session, err := c.do(httpReq)
	if err != nil {
		var gerr *GatewayError
		if errors.As(err, &gerr) && gerr.StatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (c *CheckoutClient) do(req *http.Request) (*Session, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gerr := &GatewayError{StatusCode: resp.StatusCode, Message: resp.Status}
		_ = json.Unmarshal(bodyBytes, gerr)
		return nil, gerr
	}

	var sr sessionResponse
	if err := json.Unmarshal(bodyBytes, &sr); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	return &Session{
		ID:          sr.ID,
		URL:         sr.URL,
		Reference:   sr.Reference,
		AmountCents: sr.AmountCents,
		Status:      sr.Status,
	}, nil
}
