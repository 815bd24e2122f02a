package mercadolibre

import (
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

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

const (
	defaultBaseURL           = "https://api.mercadolibre.com"
	defaultTimeout           = 15 * time.Second
	searchTimeLayout         = "2006-01-02T15:04:05.000-07:00"
	errorBodyReadLimit int64 = 1024

	// DateFieldCreated and DateFieldUpdated pick the timestamp SearchOrders filters on.
	DateFieldCreated = "date_created"
	DateFieldUpdated = "last_updated"
)

var errTokenSourceRequired = errors.New("mercadolibre token source is required")

// TokenSource hands out bearer tokens per seller and can force a refresh.
type TokenSource interface {
	Token(ctx context.Context, sellerID int64) (string, error)
	Refresh(ctx context.Context, sellerID int64) (string, error)
}

// Client calls the Mercado Libre REST API on behalf of a seller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// Option configures optional client behavior.
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

func NewClient(tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errTokenSourceRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		tokens:     tokens,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SearchParams selects one page of a seller's orders in a time window.
type SearchParams struct {
	From      time.Time
	To        time.Time
	DateField string
	Offset    int
	Limit     int
}

func (c *Client) SearchOrders(ctx context.Context, sellerID int64, params SearchParams) (*SearchResult, error) {
	field := params.DateField
	if field == "" {
		field = DateFieldCreated
	}
	q := url.Values{}
	q.Set("seller", strconv.FormatInt(sellerID, 10))
	q.Set("order."+field+".from", params.From.Format(searchTimeLayout))
	q.Set("order."+field+".to", params.To.Format(searchTimeLayout))
	q.Set("sort", "date_asc")
	q.Set("offset", strconv.Itoa(params.Offset))
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var out SearchResult
	if err := c.get(ctx, sellerID, "/orders/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, sellerID, orderID int64) (*Order, error) {
	var out Order
	if err := c.get(ctx, sellerID, fmt.Sprintf("/orders/%d", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrderShipment(ctx context.Context, sellerID, orderID int64) (*Shipment, error) {
	var out Shipment
	if err := c.get(ctx, sellerID, fmt.Sprintf("/orders/%d/shipments", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetShipment(ctx context.Context, sellerID, shipmentID int64) (*Shipment, error) {
	var out Shipment
	if err := c.get(ctx, sellerID, fmt.Sprintf("/shipments/%d", shipmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetShipmentCosts(ctx context.Context, sellerID, shipmentID int64) (*ShipmentCosts, error) {
	var out ShipmentCosts
	if err := c.get(ctx, sellerID, fmt.Sprintf("/shipments/%d/costs", shipmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrderBillingInfo(ctx context.Context, sellerID, orderID int64) (BillingInfo, error) {
	var out json.RawMessage
	if err := c.get(ctx, sellerID, fmt.Sprintf("/orders/%d/billing_info", orderID), nil, &out); err != nil {
		return nil, err
	}
	return BillingInfo(out), nil
}

// get issues an authenticated GET. Each call owns a refresh budget of one: the
// first 401 refreshes the seller token and retries, a second 401 is AUTH_EXPIRED.
func (c *Client) get(ctx context.Context, sellerID int64, path string, query url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mercadolibre client not configured")
	}

	token, err := c.tokens.Token(ctx, sellerID)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	refreshBudget := 1
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build mercadolibre request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "mercadolibre request failed").
				WithDetails(map[string]any{"path": path})
		}

		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			if refreshBudget == 0 {
				return pkgerrors.New(pkgerrors.CodeAuthExpired, "mercadolibre rejected the refreshed token")
			}
			refreshBudget--
			token, err = c.tokens.Refresh(ctx, sellerID)
			if err != nil {
				return err
			}
			continue
		}

		return decodeResponse(resp, path, out)
	}
}

func decodeResponse(resp *http.Response, path string, out any) error {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "mercadolibre resource not found").
			WithDetails(map[string]any{"path": path})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"mercadolibre request failed").
			WithDetails(map[string]any{"path": path, "status": resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode mercadolibre response").
			WithDetails(map[string]any{"path": path})
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))
	_ = resp.Body.Close()
}
