// Package apiclient talks to the remote order-management API. It is the only
// package that does network I/O against that server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/order"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"go.uber.org/zap"
)

// ErrNotFound is returned (wrapped in *APIError) for 404 responses. It is
// the same value as tracking.ErrNotFound so callers may match either.
var ErrNotFound = tracking.ErrNotFound

const requestIDHeader = "X-Request-ID"

// APIError is a non-2xx response. Detail is the server's message, taken
// from the "detail" field when the body has one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// ServerDetail returns the message the server sent.
func (e *APIError) ServerDetail() string { return e.Detail }

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client is the order API client. A zero timeout means no client timeout.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse api base url: %q is not absolute", baseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}, log: log}, nil
}

// FetchMenu calls GET /pizzas/menu.
func (c *Client) FetchMenu(ctx context.Context) ([]catalog.MenuItem, error) {
	var items []catalog.MenuItem
	if err := c.do(ctx, http.MethodGet, "pizzas/menu", nil, &items); err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}
	return items, nil
}

// FetchToppings calls GET /topping/menu.
func (c *Client) FetchToppings(ctx context.Context) ([]catalog.Topping, error) {
	var toppings []catalog.Topping
	if err := c.do(ctx, http.MethodGet, "topping/menu", nil, &toppings); err != nil {
		return nil, fmt.Errorf("get toppings: %w", err)
	}
	return toppings, nil
}

// PlaceOrder calls POST /orders.
func (c *Client) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Receipt, error) {
	var receipt order.Receipt
	if err := c.do(ctx, http.MethodPost, "orders", req, &receipt); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &receipt, nil
}

// OrderStatus calls GET /orders/{id}/status.
func (c *Client) OrderStatus(ctx context.Context, orderID int64) (*tracking.Snapshot, error) {
	var snap tracking.Snapshot
	path := "orders/" + strconv.FormatInt(orderID, 10) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return nil, fmt.Errorf("get order %d status: %w", orderID, err)
	}
	return &snap, nil
}

type adminOrdersResponse struct {
	OrdersByStatus map[string][]tracking.Snapshot `json:"orders_by_status"`
}

// AdminOrders calls GET /admin/orders and returns the orders grouped by
// status.
func (c *Client) AdminOrders(ctx context.Context) (map[string][]tracking.Snapshot, error) {
	var resp adminOrdersResponse
	if err := c.do(ctx, http.MethodGet, "admin/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("get admin orders: %w", err)
	}
	if resp.OrdersByStatus == nil {
		resp.OrdersByStatus = map[string][]tracking.Snapshot{}
	}
	return resp.OrdersByStatus, nil
}

// AdvanceOrder calls POST /admin/orders/{id}/{action}.
func (c *Client) AdvanceOrder(ctx context.Context, orderID int64, action string) error {
	path := "admin/orders/" + strconv.FormatInt(orderID, 10) + "/" + url.PathEscape(action)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("advance order %d: %w", orderID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Detail: parseDetail(raw, resp.Status)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseDetail extracts the server message. The API answers {"detail": "..."}
// for business errors and {"detail": [{"msg": "..."}, ...]} for request
// validation errors.
func parseDetail(raw []byte, fallback string) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		if s := strings.TrimSpace(string(raw)); s != "" && !strings.HasPrefix(s, "{") {
			return s
		}
		return fallback
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(body.Detail)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
