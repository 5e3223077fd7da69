package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gitshopapp/orderhook/internal/models"
	"github.com/gitshopapp/orderhook/internal/services"
)

// webhookPayload covers both notification shapes MercadoPago sends: the
// current {"type":"payment","data":{"id":…}} and the legacy {"id":…,"topic":…}.
type webhookPayload struct {
	ID    models.FlexibleID `json:"id"`
	Type  string            `json:"type"`
	Topic string            `json:"topic"`
	Data  struct {
		ID models.FlexibleID `json:"id"`
	} `json:"data"`
}

// MercadoPagoWebhook reconciles the order referenced by a payment notification.
// Every handled or ignored notification is acknowledged with 200 so the
// provider stops retrying; only store failures answer 500.
func (h *Handlers) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	setCORSHeaders(w.Header())
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	note := h.notificationFromRequest(ctx, r)

	result, err := h.reconciler.Reconcile(context.WithoutCancel(ctx), note)
	if err != nil {
		logger.Error("failed to reconcile payment notification", "error", err, "payment_id", note.PaymentID)
		h.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "failed to process notification"})
		return
	}

	logger.Info("payment notification processed", "payment_id", note.PaymentID, "result", result.Message)
	h.writeJSON(ctx, w, http.StatusOK, messageResponse{Message: result.Message})
}

// notificationFromRequest reads the payment id and topic from the query string
// first and falls back to the JSON body. A malformed body yields whatever the
// query carried, which may be nothing.
func (h *Handlers) notificationFromRequest(ctx context.Context, r *http.Request) services.Notification {
	query := r.URL.Query()
	note := services.Notification{
		PaymentID: firstNonEmpty(query.Get("id"), query.Get("data.id")),
		Topic:     firstNonEmpty(query.Get("type"), query.Get("topic")),
	}
	if note.PaymentID != "" && note.Topic != "" {
		return note
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.loggerFromContext(ctx).Warn("webhook body too large", "limit", maxErr.Limit)
		} else {
			h.loggerFromContext(ctx).Warn("failed to read webhook body", "error", err)
		}
		return note
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return note
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.loggerFromContext(ctx).Debug("ignoring undecodable webhook body", "error", err)
		return note
	}

	if note.PaymentID == "" {
		note.PaymentID = firstNonEmpty(payload.Data.ID.String(), payload.ID.String())
	}
	if note.Topic == "" {
		note.Topic = firstNonEmpty(payload.Type, payload.Topic)
	}
	return note
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
