package railway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/copperspur/rodeo-backend/pkg/config"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), config.RailwayConfig{
		BaseURL: server.URL,
		APIKey:  "key123",
		Timeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestGetEventParsesPrices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events/summer-rodeo-2026" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"slug":"summer-rodeo-2026","name":"Summer Rodeo","on_sale":true,"ticket_prices":{"individual":"25.00","family":"75.00"}}`))
	})

	event, err := client.GetEvent(context.Background(), "summer-rodeo-2026")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !event.OnSale {
		t.Fatal("expected on-sale event")
	}
	if got := event.TicketPrices["family"].String(); got != "75" {
		t.Fatalf("unexpected family price %s", got)
	}
}

func TestGetEventNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetEvent(context.Background(), "nope")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestListProducts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"sku":"HAT-01","name":"Ball Cap","price":"30.00"}]`))
	})

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].SKU != "HAT-01" {
		t.Fatalf("unexpected products %+v", products)
	}
}
