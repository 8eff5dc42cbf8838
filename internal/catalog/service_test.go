package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/railway"
)

type stubCatalogAPI struct {
	event        *railway.Event
	eventErr     error
	products     []railway.Product
	eventCalls   int
	productCalls int
}

func (s *stubCatalogAPI) GetEvent(_ context.Context, _ string) (*railway.Event, error) {
	s.eventCalls++
	if s.eventErr != nil {
		return nil, s.eventErr
	}
	return s.event, nil
}

func (s *stubCatalogAPI) ListProducts(_ context.Context) ([]railway.Product, error) {
	s.productCalls++
	return s.products, nil
}

type memoryCache struct {
	data map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", assert.AnError
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	m.data[key] = str
	return nil
}

func onSaleEvent() *railway.Event {
	return &railway.Event{
		Slug: "bull-riding-finals",
		Name: "Bull Riding Finals",
		TicketPrices: map[string]decimal.Decimal{
			"individual": decimal.RequireFromString("75.00"),
			"family":     decimal.RequireFromString("220.00"),
		},
		OnSale: true,
	}
}

func TestTicketPriceResolves(t *testing.T) {
	api := &stubCatalogAPI{event: onSaleEvent()}
	svc, err := NewService(api, nil, nil)
	require.NoError(t, err)

	price, err := svc.TicketPrice(context.Background(), "bull-riding-finals", enums.TicketTypeIndividual)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("75.00")))
}

func TestTicketPriceMissingTypeRejected(t *testing.T) {
	api := &stubCatalogAPI{event: onSaleEvent()}
	svc, err := NewService(api, nil, nil)
	require.NoError(t, err)

	_, err = svc.TicketPrice(context.Background(), "bull-riding-finals", enums.TicketTypeGeneral)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestTicketPriceOffSaleRejected(t *testing.T) {
	event := onSaleEvent()
	event.OnSale = false
	api := &stubCatalogAPI{event: event}
	svc, err := NewService(api, nil, nil)
	require.NoError(t, err)

	_, err = svc.TicketPrice(context.Background(), "bull-riding-finals", enums.TicketTypeIndividual)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestEventUsesCacheOnSecondLookup(t *testing.T) {
	api := &stubCatalogAPI{event: onSaleEvent()}
	cache := &memoryCache{data: map[string]string{}}
	svc, err := NewService(api, cache, nil)
	require.NoError(t, err)

	_, err = svc.Event(context.Background(), "bull-riding-finals")
	require.NoError(t, err)
	_, err = svc.Event(context.Background(), "bull-riding-finals")
	require.NoError(t, err)
	assert.Equal(t, 1, api.eventCalls)
}

func TestProductLookup(t *testing.T) {
	api := &stubCatalogAPI{products: []railway.Product{
		{SKU: "HAT-01", Name: "Rodeo Hat", Price: decimal.RequireFromString("40.00")},
	}}
	svc, err := NewService(api, nil, nil)
	require.NoError(t, err)

	product, err := svc.Product(context.Background(), "HAT-01")
	require.NoError(t, err)
	assert.Equal(t, "Rodeo Hat", product.Name)

	_, err = svc.Product(context.Background(), "HAT-99")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
