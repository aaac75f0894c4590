package ordersapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// ErrUnauthorized indicates the server rejected the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// Client reads the caller's orders from the API server.
type Client interface {
	Orders(ctx context.Context) ([]model.Order, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// orderResponse mirrors the JSON order representation served by the API.
type orderResponse struct {
	ID           string    `json:"id"`
	VendorID     string    `json:"vendor_id"`
	CustomerID   string    `json:"customer_id"`
	Status       string    `json:"status"`
	CancelReason string    `json:"cancel_reason"`
	CancelledBy  string    `json:"cancelled_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewHTTPClient creates an API client with default timeout.
func NewHTTPClient(baseURL, token string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("server url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Orders fetches every order the caller takes part in. No orders is not an error.
func (c *HTTPClient) Orders(ctx context.Context) ([]model.Order, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/orders")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data []orderResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, err
		}
		orders := make([]model.Order, 0, len(data))
		for _, o := range data {
			orders = append(orders, o.toModel())
		}
		return orders, nil
	case http.StatusNoContent:
		return nil, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("orders request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("orders api error: %s", resp.Status)
	}
}

func (o orderResponse) toModel() model.Order {
	return model.Order{
		ID:           o.ID,
		VendorID:     o.VendorID,
		CustomerID:   o.CustomerID,
		Status:       model.OrderStatus(o.Status),
		CancelReason: o.CancelReason,
		CancelledBy:  model.Role(o.CancelledBy),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// SessionURL derives the websocket endpoint from the API base URL.
func SessionURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", parsed.Scheme)
	}
	parsed.Path = path.Join(parsed.Path, "/api/ws")
	return parsed.String(), nil
}
