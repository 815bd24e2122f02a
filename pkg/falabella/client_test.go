package falabella

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient("seller@example.com", "secret-key",
		WithBaseURL("http://falabella.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSignSortsAndSkipsSignature(t *testing.T) {
	params := url.Values{
		"Version":   {"1.0"},
		"Action":    {"GetOrder"},
		"UserID":    {"seller@example.com"},
		"Signature": {"ignored"},
	}
	mac := hmac.New(sha256.New, []byte("k"))
	mac.Write([]byte("Action=GetOrder&UserID=seller%40example.com&Version=1.0"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign("k", params); got != want {
		t.Fatalf("signature mismatch: got %s want %s", got, want)
	}
}

func TestGetOrderItemsAcceptsSingleObject(t *testing.T) {
	var captured url.Values
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req.URL.Query()
		return respond(http.StatusOK, `{"SuccessResponse":{"Body":{"OrderItems":{"OrderItem":{"OrderItemId":"1","Sku":"FAL-1","ShopSku":"SHOP-1","Status":"pending","ShippingType":"Dropshipping"}}}}}`), nil
	})

	items, err := client.GetOrderItems(context.Background(), "555")
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 1 || items[0].Sku != "FAL-1" || items[0].FulfilledByPlatform() {
		t.Fatalf("unexpected items %+v", items)
	}
	if captured.Get("Action") != "GetOrderItems" || captured.Get("OrderId") != "555" || captured.Get("Format") != "JSON" {
		t.Fatalf("unexpected query %v", captured)
	}
	if captured.Get("Timestamp") != "2024-03-01T12:00:00+00:00" {
		t.Fatalf("unexpected timestamp %q", captured.Get("Timestamp"))
	}
	if captured.Get("Signature") != Sign("secret-key", captured) {
		t.Fatalf("request signature does not verify")
	}
}

func TestGetOrderItemsAcceptsArray(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"SuccessResponse":{"Body":{"OrderItems":{"OrderItem":[{"OrderItemId":"1","Sku":"A"},{"OrderItemId":"2","Sku":"B","ShippingType":"Own Warehouse","Status":"canceled"}]}}}}`), nil
	})
	items, err := client.GetOrderItems(context.Background(), "555")
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 2 || !items[1].FulfilledByPlatform() || !items[1].Cancelled() {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestGetOrderStatuses(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"SuccessResponse":{"Body":{"Orders":{"Order":{"OrderId":"555","CreatedAt":"2024-03-01 10:00:00","Statuses":{"Status":["pending","canceled"]}}}}}}`), nil
	})
	order, err := client.GetOrder(context.Background(), "555")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !order.HasStatus("canceled") || order.HasStatus("shipped") {
		t.Fatalf("unexpected statuses %+v", order.Statuses)
	}
}

func TestErrorResponses(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"ErrorResponse":{"Head":{"ErrorCode":"16","ErrorMessage":"E016: Invalid Order ID"}}}`), nil
	})
	if _, err := client.GetOrder(context.Background(), "x"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	client = newTestClient(t, func(*http.Request) (*http.Response, error) {
		return respond(http.StatusServiceUnavailable, "maintenance"), nil
	})
	if _, err := client.GetOrderItems(context.Background(), "x"); !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %v", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Fatalf("expected credentials error")
	}
}
