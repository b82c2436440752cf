package orderfeed

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

	"creatorsync/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	searchPath         = "orders/search"
)

// Doer executes authenticated HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the order feed client configuration.
type Config struct {
	BaseURL     string
	AccessToken string
	HTTPClient  Doer
	Timeout     time.Duration
}

// Client wraps the order search endpoint.
type Client struct {
	baseURL *url.URL
	token   string
	http    Doer
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "orderfeed", "init", "access token is required", nil)
	}
	baseURL, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || baseURL.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "orderfeed", "init", "invalid base url", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, token: token, http: client}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// SearchOrders fetches one page of orders.
func (c *Client) SearchOrders(ctx context.Context, req PageRequest) (Page, error) {
	if c == nil {
		return Page{}, errors.New("orderfeed: client is nil")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Page{}, services.Wrap(services.ErrValidation, "orderfeed", "search", "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(searchPath).String(), bytes.NewReader(body))
	if err != nil {
		return Page{}, services.Wrap(services.ErrValidation, "orderfeed", "search", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Page{}, services.Wrap(services.ErrTransient, "orderfeed", "search", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Page{}, services.Wrap(services.ErrTransient, "orderfeed", "search", "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Page{}, services.Wrap(services.ErrConfiguration, "orderfeed", "search", resp.Status, nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Page{}, services.Wrap(services.ErrTransient, "orderfeed", "search", resp.Status, nil)
	case resp.StatusCode >= 400:
		return Page{}, services.Wrap(services.ErrValidation, "orderfeed", "search",
			fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(payload))), nil)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Page{}, services.Wrap(services.ErrTransient, "orderfeed", "search", "decode response", err)
	}
	if env.Code != 0 {
		return Page{}, services.Wrap(services.ErrValidation, "orderfeed", "search",
			fmt.Sprintf("provider code %d: %s", env.Code, env.Message), nil)
	}
	raw := env.Data
	if len(raw) == 0 || string(raw) == "null" {
		raw = payload
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return Page{}, services.Wrap(services.ErrTransient, "orderfeed", "search", "decode page", err)
	}
	return page, nil
}
