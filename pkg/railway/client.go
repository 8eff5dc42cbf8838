package railway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/config"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

var errBaseURLRequired = errors.New("railway base url is required")

// Client reads the event and merch catalog from the public site API. Prices
// always come from here, never from the browser.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

// Event is a published rodeo event with its admission price list.
type Event struct {
	Slug         string                     `json:"slug"`
	Name         string                     `json:"name"`
	StartsAt     string                     `json:"starts_at"`
	TicketPrices map[string]decimal.Decimal `json:"ticket_prices"`
	OnSale       bool                       `json:"on_sale"`
}

// Product is a merch catalog entry.
type Product struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// NewClient prepares the catalog reader.
func NewClient(ctx context.Context, cfg config.RailwayConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if logg != nil {
		logg.Info(ctx, "railway catalog client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		logger:     logg,
	}, nil
}

// GetEvent fetches one event by slug.
func (c *Client) GetEvent(ctx context.Context, slug string) (*Event, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, errors.New("event slug is required")
	}

	var event Event
	path := fmt.Sprintf("/api/events/%s", url.PathEscape(slug))
	if err := c.get(ctx, path, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListProducts fetches the merch catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/api/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling catalog")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
	case resp.StatusCode != http.StatusOK:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
