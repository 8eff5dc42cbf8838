package shiptime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/config"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

var (
	errBaseURLRequired     = errors.New("shiptime base url is required")
	errCredentialsRequired = errors.New("shiptime credentials are required")
)

// Client books carrier shipments for merch orders over the ShipTime REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	logger     *logger.Logger
}

// ShipmentRequest describes one outbound parcel.
type ShipmentRequest struct {
	OrderNo       string        `json:"order_no"`
	RecipientName string        `json:"recipient_name"`
	Email         string        `json:"email,omitempty"`
	Address       types.Address `json:"address"`
	WeightKG      float64       `json:"weight_kg"`
}

// Shipment is the booked result.
type Shipment struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

// NewClient prepares the ShipTime transport.
func NewClient(ctx context.Context, cfg config.ShiptimeConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errCredentialsRequired
	}

	if logg != nil {
		logg.Info(ctx, "shiptime client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		logger:     logg,
	}, nil
}

// RateRequest asks carriers for quotes to one destination.
type RateRequest struct {
	Destination types.Address `json:"destination"`
	WeightKG    float64       `json:"weight_kg"`
}

// Rate is a single carrier quote.
type Rate struct {
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Currency     string          `json:"currency"`
	DeliveryDays int             `json:"delivery_days,omitempty"`
}

// GetRates fetches carrier quotes for the destination.
func (c *Client) GetRates(ctx context.Context, req RateRequest) ([]Rate, error) {
	if err := req.Destination.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate destination")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal rate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rates", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling shiptime")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read shiptime response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shiptime returned status %d", resp.StatusCode))
	}

	var quotes struct {
		Rates []Rate `json:"rates"`
	}
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("decode shiptime response: %w", err)
	}
	return quotes.Rates, nil
}

// CreateShipment books a parcel and returns the tracking record.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if strings.TrimSpace(req.OrderNo) == "" {
		return nil, errors.New("order_no is required")
	}
	if err := req.Address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal shipment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/shipments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build shipment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling shiptime")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read shiptime response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shiptime returned status %d", resp.StatusCode))
	}

	var shipment Shipment
	if err := json.Unmarshal(raw, &shipment); err != nil {
		return nil, fmt.Errorf("decode shiptime response: %w", err)
	}
	if shipment.TrackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiptime booked shipment without tracking number")
	}
	return &shipment, nil
}
