package falabella

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

const (
	defaultBaseURL           = "https://sellercenter-api.falabella.com"
	apiVersion               = "1.0"
	timestampLayout          = "2006-01-02T15:04:05-07:00"
	errorBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("falabella user id and api key are required")

// Client calls the Seller Center API with HMAC-signed query strings.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	apiKey     string
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithClock pins the request timestamp; used by tests to get stable signatures.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(userID, apiKey string, opts ...Option) (*Client, error) {
	userID = strings.TrimSpace(userID)
	apiKey = strings.TrimSpace(apiKey)
	if userID == "" || apiKey == "" {
		return nil, errCredentialsRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		userID:     userID,
		apiKey:     apiKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var body ordersBody
	if err := c.call(ctx, "GetOrder", url.Values{"OrderId": {orderID}}, &body); err != nil {
		return nil, err
	}
	if len(body.Orders.Order) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "falabella order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}
	order := body.Orders.Order[0]
	return &order, nil
}

func (c *Client) GetOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	var body orderItemsBody
	if err := c.call(ctx, "GetOrderItems", url.Values{"OrderId": {orderID}}, &body); err != nil {
		return nil, err
	}
	return body.OrderItems.OrderItem, nil
}

func (c *Client) call(ctx context.Context, action string, params url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "falabella client not configured")
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("Action", action)
	query.Set("Format", "JSON")
	query.Set("Timestamp", c.now().Format(timestampLayout))
	query.Set("UserID", c.userID)
	query.Set("Version", apiVersion)
	query.Set("Signature", Sign(c.apiKey, query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+query.Encode(), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build falabella request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "falabella request failed").
			WithDetails(map[string]any{"action": action})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"falabella request failed").
			WithDetails(map[string]any{"action": action, "status": resp.StatusCode})
	}

	var envelope successEnvelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode falabella response")
	}
	if envelope.ErrorResponse != nil {
		head := envelope.ErrorResponse.Head
		code := pkgerrors.CodeUpstream
		if isNotFoundCode(head.ErrorCode) {
			code = pkgerrors.CodeNotFound
		}
		return pkgerrors.New(code, "falabella error: "+head.ErrorMessage).
			WithDetails(map[string]any{"action": action, "error_code": head.ErrorCode})
	}
	if envelope.SuccessResponse == nil {
		return pkgerrors.New(pkgerrors.CodeUpstream, "falabella response missing body")
	}
	if err := json.Unmarshal(envelope.SuccessResponse.Body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode falabella body")
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of the key-sorted, URL-encoded parameters.
func Sign(apiKey string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "Signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
