package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gitshopapp/orderhook/internal/envia"
	"github.com/gitshopapp/orderhook/internal/logging"
)

var ErrInvalidQuoteRequest = errors.New("invalid shipping quote request")

type QuotePackage struct {
	Weight   float64 `json:"weight" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=1"`
}

type QuoteRequest struct {
	ZipCode  string         `json:"zip_code" validate:"required"`
	Province string         `json:"province"`
	Packages []QuotePackage `json:"packages" validate:"dive"`
}

// QuoteRate keeps the Spanish field names the storefront checkout reads.
type QuoteRate struct {
	Carrier  string      `json:"correo"`
	Service  string      `json:"servicio"`
	Price    json.Number `json:"precio"`
	HoursMin int         `json:"horas_min"`
	HoursMax int         `json:"horas_max"`
}

type QuoteResponse struct {
	Rates []QuoteRate `json:"rates"`
}

// QuoteService estimates shipping prices for checkout from the rate table in
// the shipment profile. It never calls the carrier.
type QuoteService struct {
	table    envia.QuoteTable
	validate *validator.Validate
	logger   *slog.Logger
}

func NewQuoteService(table envia.QuoteTable, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		table:    table,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *QuoteService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuoteRequest, err)
	}

	totalWeight := decimal.Zero
	for _, pkg := range req.Packages {
		totalWeight = totalWeight.Add(decimal.NewFromFloat(pkg.Weight).Mul(decimal.NewFromInt(int64(pkg.Quantity))))
	}
	base := decimal.NewFromFloat(s.table.BasePrice).Add(totalWeight.Mul(decimal.NewFromFloat(s.table.PricePerKg)))

	resp := &QuoteResponse{Rates: make([]QuoteRate, 0, len(s.table.Rates))}
	for _, rate := range s.table.Rates {
		price := base.Mul(decimal.NewFromFloat(rate.Multiplier)).Round(2)
		resp.Rates = append(resp.Rates, QuoteRate{
			Carrier:  rate.Carrier,
			Service:  rate.Service,
			Price:    json.Number(price.StringFixed(2)),
			HoursMin: rate.HoursMin,
			HoursMax: rate.HoursMax,
		})
	}

	logging.FromContext(ctx, s.logger).Debug("shipping quote computed", "zip_code", req.ZipCode, "total_weight", totalWeight.String(), "rates", len(resp.Rates))
	return resp, nil
}
