package shipping

import (
	"context"
	"fmt"
	"sort"

	"github.com/copperspur/rodeo-backend/pkg/db/models"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/shiptime"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

// itemWeightKG is the flat per-unit estimate used for quotes and bookings.
// Merch at a rodeo is shirts and hats; nothing freight-class ships here.
const itemWeightKG = 0.5

type carrierAPI interface {
	GetRates(ctx context.Context, req shiptime.RateRequest) ([]shiptime.Rate, error)
	CreateShipment(ctx context.Context, req shiptime.ShipmentRequest) (*shiptime.Shipment, error)
}

// Service quotes and books carrier shipments for merch orders.
type Service interface {
	GetRates(ctx context.Context, destination types.Address, itemCount int) ([]shiptime.Rate, error)
	CreateShipment(ctx context.Context, order *models.MerchOrder) (*shiptime.Shipment, error)
}

type service struct {
	api    carrierAPI
	logger *logger.Logger
}

// NewService builds the shipping service.
func NewService(api carrierAPI, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("carrier api required")
	}
	return &service{api: api, logger: logg}, nil
}

// GetRates returns carrier quotes cheapest first.
func (s *service) GetRates(ctx context.Context, destination types.Address, itemCount int) ([]shiptime.Rate, error) {
	if itemCount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item count must be positive")
	}
	normalized := destination.Normalized()
	if err := normalized.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid destination")
	}

	rates, err := s.api.GetRates(ctx, shiptime.RateRequest{
		Destination: normalized,
		WeightKG:    float64(itemCount) * itemWeightKG,
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].TotalPrice.LessThan(rates[j].TotalPrice)
	})
	return rates, nil
}

// CreateShipment books the parcel for a shipped merch order. Pickup orders
// (no address) book nothing and return nil.
func (s *service) CreateShipment(ctx context.Context, order *models.MerchOrder) (*shiptime.Shipment, error) {
	if order == nil {
		return nil, fmt.Errorf("merch order required")
	}
	if order.ShippingAddress == nil {
		return nil, nil
	}

	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	if units == 0 {
		units = 1
	}

	shipment, err := s.api.CreateShipment(ctx, shiptime.ShipmentRequest{
		OrderNo:       order.ConfirmationCode,
		RecipientName: order.CustomerName,
		Email:         order.CustomerEmail,
		Address:       *order.ShippingAddress,
		WeightKG:      float64(units) * itemWeightKG,
	})
	if err != nil {
		if s.logger != nil {
			logCtx := s.logger.WithOrderNo(ctx, order.ConfirmationCode)
			s.logger.Error(logCtx, "shipment booking failed", err)
		}
		return nil, err
	}
	return shipment, nil
}
