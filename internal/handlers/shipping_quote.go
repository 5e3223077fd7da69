package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gitshopapp/orderhook/internal/observability"
	"github.com/gitshopapp/orderhook/internal/services"
)

const maxQuoteBodyBytes = 64 << 10

// ShippingQuote returns carrier rate estimates for the checkout page.
func (h *Handlers) ShippingQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	setCORSHeaders(w.Header())

	if !h.quoteLimiter.Allow() {
		observability.Count(ctx, "shipping.quote.rate_limited")
		h.writeJSON(ctx, w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxQuoteBodyBytes)
	var req services.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid shipping quote body", "error", err)
		h.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	quote, err := h.quoter.Quote(ctx, req)
	switch {
	case errors.Is(err, services.ErrInvalidQuoteRequest):
		h.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		logger.Error("failed to quote shipping", "error", err)
		h.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "failed to quote shipping"})
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, quote)
}
