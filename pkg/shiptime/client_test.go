package shiptime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

func validRequest() ShipmentRequest {
	return ShipmentRequest{
		OrderNo:       "MER-20250601-ABC123",
		RecipientName: "Dale Gervais",
		Address: types.Address{
			Line1:      "12 River Rd",
			City:       "Cochrane",
			Province:   "AB",
			PostalCode: "T4C 1A1",
			Country:    "CA",
		},
		WeightKG: 0.6,
	}
}

func TestCreateShipment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "acct" || pass != "secret" {
			t.Fatalf("missing basic auth")
		}
		var req ShipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OrderNo != "MER-20250601-ABC123" {
			t.Fatalf("unexpected order_no %q", req.OrderNo)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"shp_1","tracking_number":"CP123456789CA","carrier":"canada-post"}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), config.ShiptimeConfig{
		BaseURL:  server.URL,
		Username: "acct",
		Password: "secret",
		Timeout:  time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	shipment, err := client.CreateShipment(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.TrackingNumber != "CP123456789CA" {
		t.Fatalf("unexpected tracking %q", shipment.TrackingNumber)
	}
}

func TestCreateShipmentRejectsBadAddress(t *testing.T) {
	client := &Client{httpClient: http.DefaultClient, baseURL: "http://unused", username: "u", password: "p"}

	req := validRequest()
	req.Address.PostalCode = ""
	if _, err := client.CreateShipment(context.Background(), req); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCreateShipmentRequiresTracking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"shp_2","tracking_number":""}`))
	}))
	defer server.Close()

	client := &Client{httpClient: http.DefaultClient, baseURL: server.URL, username: "u", password: "p"}
	if _, err := client.CreateShipment(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error for missing tracking number")
	}
}
