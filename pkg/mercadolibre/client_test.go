package mercadolibre

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type fakeTokens struct {
	token     string
	refreshed string
	refreshes int32
	err       error
}

func (f *fakeTokens) Token(context.Context, int64) (string, error) {
	return f.token, f.err
}

func (f *fakeTokens) Refresh(context.Context, int64) (string, error) {
	atomic.AddInt32(&f.refreshes, 1)
	return f.refreshed, nil
}

func newTestClient(t *testing.T, tokens TokenSource, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(tokens, WithBaseURL("http://meli.test/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSearchOrdersBuildsQuery(t *testing.T) {
	loc := time.FixedZone("CLT", -3*3600)
	var captured *http.Request
	client := newTestClient(t, &fakeTokens{token: "tok"}, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"results":[{"id":2000001,"status":"paid","status_detail":null,"pack_id":null,"total_amount":15990,"date_created":"2024-03-01T10:00:00.000-03:00"}],"paging":{"total":1,"offset":0,"limit":50}}`), nil
	})

	res, err := client.SearchOrders(context.Background(), 123, SearchParams{
		From:   time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		To:     time.Date(2024, 3, 1, 23, 59, 59, 999000000, loc),
		Limit:  50,
		Offset: 0,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if captured.URL.Path != "/orders/search" {
		t.Fatalf("unexpected path %s", captured.URL.Path)
	}
	q := captured.URL.Query()
	if q.Get("seller") != "123" || q.Get("order.date_created.from") != "2024-03-01T00:00:00.000-03:00" || q.Get("limit") != "50" {
		t.Fatalf("unexpected query %v", q)
	}
	if captured.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("missing bearer token")
	}
	if res.Paging.Total != 1 || len(res.Results) != 1 || res.Results[0].ID != 2000001 || res.Results[0].PackID != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Results[0].TotalAmount.String() != "15990" {
		t.Fatalf("unexpected total %s", res.Results[0].TotalAmount)
	}
}

func TestStatusChangeSearchUsesLastUpdated(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, &fakeTokens{token: "tok"}, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"results":[],"paging":{"total":0}}`), nil
	})
	_, err := client.SearchOrders(context.Background(), 1, SearchParams{DateField: DateFieldUpdated, From: time.Now(), To: time.Now()})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if captured.URL.Query().Get("order.last_updated.from") == "" {
		t.Fatalf("expected last_updated filter, got %v", captured.URL.Query())
	}
}

func TestUnauthorizedRefreshesOnce(t *testing.T) {
	tokens := &fakeTokens{token: "stale", refreshed: "fresh"}
	var calls int32
	client := newTestClient(t, tokens, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		if req.Header.Get("Authorization") != "Bearer fresh" {
			return jsonResponse(http.StatusUnauthorized, `{"message":"invalid_token"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":99,"logistic_type":"self_service"}`), nil
	})

	shipment, err := client.GetShipment(context.Background(), 1, 99)
	if err != nil {
		t.Fatalf("get shipment: %v", err)
	}
	if shipment.RawLogisticType() != "self_service" {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
	if tokens.refreshes != 1 || calls != 2 {
		t.Fatalf("expected one refresh and two calls, got refreshes=%d calls=%d", tokens.refreshes, calls)
	}
}

func TestSecondUnauthorizedIsAuthExpired(t *testing.T) {
	tokens := &fakeTokens{token: "stale", refreshed: "still-bad"}
	client := newTestClient(t, tokens, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})

	_, err := client.GetOrder(context.Background(), 1, 2)
	if !pkgerrors.IsCode(err, pkgerrors.CodeAuthExpired) {
		t.Fatalf("expected AUTH_EXPIRED, got %v", err)
	}
	if tokens.refreshes != 1 {
		t.Fatalf("refresh budget must be one per request, got %d", tokens.refreshes)
	}

	// the budget is per request, so the next call may refresh again
	_, _ = client.GetOrder(context.Background(), 1, 2)
	if tokens.refreshes != 2 {
		t.Fatalf("expected a fresh budget on the next request, got %d refreshes", tokens.refreshes)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripFunc
		want pkgerrors.Code
	}{
		{"not found", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusNotFound, `{}`), nil }, pkgerrors.CodeNotFound},
		{"server error", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusBadGateway, `oops`), nil }, pkgerrors.CodeUpstream},
		{"rate limited", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusTooManyRequests, `{}`), nil }, pkgerrors.CodeUpstream},
		{"transport", func(*http.Request) (*http.Response, error) { return nil, errors.New("dial tcp: timeout") }, pkgerrors.CodeUpstream},
		{"bad json", func(*http.Request) (*http.Response, error) { return jsonResponse(http.StatusOK, `{`), nil }, pkgerrors.CodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, &fakeTokens{token: "tok"}, tc.rt)
			_, err := client.GetShipmentCosts(context.Background(), 1, 2)
			if got := pkgerrors.CodeOf(err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}
}

func TestDecodeOrderPayload(t *testing.T) {
	body := `{
		"id": 2000003,
		"status": "paid",
		"status_detail": {"code": "x", "description": "partially refunded"},
		"date_created": "2024-03-02T14:10:00.000-03:00",
		"total_amount": 20000,
		"paid_amount": 23990,
		"pack_id": 2000000055,
		"buyer": {"id": 77, "nickname": "BUYER77"},
		"seller": {"id": 123, "nickname": "SELLER"},
		"order_items": [{"item": {"id": "MLC1", "title": "Polera", "variation_id": 555, "seller_sku": "PCR0007"}, "quantity": 2, "unit_price": 10000, "full_unit_price": 12000, "sale_fee": 1500}],
		"payments": [{"id": 9001, "status": "approved", "transaction_amount": 20000, "shipping_cost": 3990, "total_paid_amount": 23990}],
		"shipping": {"id": 4001}
	}`
	client := newTestClient(t, &fakeTokens{token: "tok"}, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	})
	order, err := client.GetOrder(context.Background(), 123, 2000003)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.StatusDetail != "partially refunded" || *order.PackID != 2000000055 || *order.Shipping.ID != 4001 {
		t.Fatalf("unexpected order %+v", order)
	}
	item := order.OrderItems[0]
	if *item.Item.SellerSKU != "PCR0007" || *item.Item.VariationID != 555 || item.SaleFee.String() != "1500" {
		t.Fatalf("unexpected item %+v", item)
	}
	if order.Payments[0].ShippingCost.String() != "3990" {
		t.Fatalf("unexpected payment %+v", order.Payments[0])
	}
}

func TestNewClientRequiresTokens(t *testing.T) {
	if _, err := NewClient(nil); !errors.Is(err, errTokenSourceRequired) {
		t.Fatalf("expected errTokenSourceRequired, got %v", err)
	}
}
