package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"creatorsync/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	searchPath         = "creators/search"
)

// Doer executes authenticated HTTP requests. *http.Client satisfies it; token
// refresh wrappers can be substituted.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the marketplace client configuration.
type Config struct {
	BaseURL         string
	AccessToken     string
	QuotaErrorCodes []int
	HTTPClient      Doer
	Timeout         time.Duration
}

// Client wraps the marketplace creator search endpoint.
type Client struct {
	baseURL    *url.URL
	token      string
	quotaCodes []int
	http       Doer
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "marketplace", "init", "access token is required", nil)
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "marketplace", "init", "base url is required", nil)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "marketplace", "init", "parse base url", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		quotaCodes: slices.Clone(cfg.QuotaErrorCodes),
		http:       client,
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type searchPayload struct {
	Creators []candidatePayload `json:"creators"`
}

// SearchCreators returns the candidates the marketplace lists for keyword.
func (c *Client) SearchCreators(ctx context.Context, keyword string) ([]Candidate, error) {
	if c == nil {
		return nil, errors.New("marketplace: client is nil")
	}
	keyword = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(keyword), "@"))
	if keyword == "" {
		return nil, services.Wrap(services.ErrValidation, "marketplace", "search", "keyword is required", nil)
	}

	endpoint := c.baseURL.JoinPath(searchPath)
	params := url.Values{}
	params.Set("keyword", keyword)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "marketplace", "search", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "marketplace", "search", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "marketplace", "search", "read response", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	if err := c.classify(resp.StatusCode, env.Code, env.Message, body); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, services.Wrap(services.ErrTransient, "marketplace", "search", "decode response", decodeErr)
	}

	var payload searchPayload
	raw := env.Data
	if len(raw) == 0 || string(raw) == "null" {
		raw = body
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "marketplace", "search", "decode creators", err)
	}

	candidates := make([]Candidate, 0, len(payload.Creators))
	for _, entry := range payload.Creators {
		candidate, err := entry.toCandidate()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "marketplace", "search", fmt.Sprintf("parse creator %q", entry.Username), err)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// classify maps HTTP status and provider error codes onto error markers.
// A 429 is a rate limit, not a spent quota, unless its code is configured as one.
func (c *Client) classify(status, providerCode int, message string, body []byte) error {
	if slices.Contains(c.quotaCodes, status) || (providerCode != 0 && slices.Contains(c.quotaCodes, providerCode)) {
		return services.Wrap(services.ErrQuotaExceeded, "marketplace", "search", describe(status, providerCode, message), nil)
	}
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, "marketplace", "search", describe(status, providerCode, message), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "marketplace", "search", describe(status, providerCode, message), nil)
	case status >= 400:
		detail := describe(status, providerCode, message)
		if message == "" {
			detail += ": " + strings.TrimSpace(string(truncate(body, 256)))
		}
		return services.Wrap(services.ErrValidation, "marketplace", "search", detail, nil)
	case providerCode != 0:
		return services.Wrap(services.ErrValidation, "marketplace", "search", describe(status, providerCode, message), nil)
	}
	return nil
}

func describe(status, providerCode int, message string) string {
	parts := []string{fmt.Sprintf("status %d", status)}
	if providerCode != 0 {
		parts = append(parts, fmt.Sprintf("code %d", providerCode))
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, " ")
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
