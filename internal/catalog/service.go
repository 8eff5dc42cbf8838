package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/railway"
)

const (
	eventCacheTTL   = 5 * time.Minute
	productCacheTTL = 5 * time.Minute
)

type catalogAPI interface {
	GetEvent(ctx context.Context, slug string) (*railway.Event, error)
	ListProducts(ctx context.Context) ([]railway.Product, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service resolves events and merch products from the external catalog.
type Service interface {
	Event(ctx context.Context, slug string) (*railway.Event, error)
	TicketPrice(ctx context.Context, eventSlug string, ticketType enums.TicketType) (decimal.Decimal, error)
	Product(ctx context.Context, sku string) (*railway.Product, error)
}

type service struct {
	api    catalogAPI
	cache  cacheStore
	logger *logger.Logger
}

// NewService builds the catalog proxy. The cache is optional; a nil cache
// forwards every lookup to the backend.
func NewService(api catalogAPI, cache cacheStore, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("catalog api required")
	}
	return &service{api: api, cache: cache, logger: logg}, nil
}

func (s *service) Event(ctx context.Context, slug string) (*railway.Event, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event slug required")
	}

	cacheKey := "catalog:event:" + slug
	if cached := s.readCache(ctx, cacheKey); cached != "" {
		var event railway.Event
		if err := json.Unmarshal([]byte(cached), &event); err == nil {
			return &event, nil
		}
	}

	event, err := s.api.GetEvent(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cacheKey, event, eventCacheTTL)
	return event, nil
}

func (s *service) TicketPrice(ctx context.Context, eventSlug string, ticketType enums.TicketType) (decimal.Decimal, error) {
	if !ticketType.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket type")
	}
	event, err := s.Event(ctx, eventSlug)
	if err != nil {
		return decimal.Zero, err
	}
	if !event.OnSale {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "event is not on sale")
	}
	price, ok := event.TicketPrices[string(ticketType)]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "ticket price not set for type").
			WithDetails(map[string]any{"ticket_type": string(ticketType)})
	}
	return price, nil
}

func (s *service) Product(ctx context.Context, sku string) (*railway.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product sku required")
	}

	products, err := s.listProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].SKU == sku {
			return &products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *service) listProducts(ctx context.Context) ([]railway.Product, error) {
	const cacheKey = "catalog:products"
	if cached := s.readCache(ctx, cacheKey); cached != "" {
		var products []railway.Product
		if err := json.Unmarshal([]byte(cached), &products); err == nil {
			return products, nil
		}
	}

	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cacheKey, products, productCacheTTL)
	return products, nil
}

func (s *service) readCache(ctx context.Context, key string) string {
	if s.cache == nil {
		return ""
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return ""
	}
	return value
}

func (s *service) writeCache(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), ttl); err != nil && s.logger != nil {
		s.logger.Warn(ctx, "catalog cache write failed")
	}
}
