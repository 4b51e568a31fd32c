// Package payment receives Mollie payment notifications.
package payment

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/mollie-recurring/internal/mollie"
	"github.com/noah-isme/mollie-recurring/internal/obs"
)

// Fetcher loads a payment by id.
type Fetcher interface {
	GetPayment(ctx context.Context, paymentID string) (mollie.Payment, error)
}

// Webhook handles POST /api/webhook. Mollie only sends the payment id, so the
// status is always fetched back from the API. The response is 200 in every
// case: the provider retries on anything else and the outcome is only
// observable through logs and metrics.
type Webhook struct {
	Payments Fetcher
	Logger   zerolog.Logger
}

// Handle processes one notification.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("payment.Webhook").Start(r.Context(), "PaymentWebhook.Handle")
	defer span.End()
	log := obs.LoggerFrom(ctx, h.Logger)

	outcome := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.webhook.result", outcome))
		if obs.PaymentWebhookTotal != nil {
			obs.PaymentWebhookTotal.WithLabelValues(outcome).Inc()
		}
		w.WriteHeader(http.StatusOK)
	}()

	if err := r.ParseForm(); err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("payment_webhook_invalid_body")
		outcome = "invalid_body"
		return
	}
	id := strings.TrimSpace(r.PostForm.Get("id"))
	if id == "" {
		log.Warn().Msg("payment_webhook_missing_id")
		outcome = "missing_id"
		return
	}
	span.SetAttributes(attribute.String("payment.id", id))
	if h.Payments == nil {
		log.Error().Str("payment_id", id).Msg("payment_webhook_not_configured")
		return
	}

	payment, err := h.Payments.GetPayment(ctx, id)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("payment_id", id).Msg("payment_webhook_fetch_failed")
		return
	}
	outcome = strings.ToLower(mollie.NormaliseStatus(payment.Status))
	log.Info().
		Str("payment_id", payment.ID).
		Str("status", payment.Status).
		Bool("paid", payment.IsPaid()).
		Str("sequence_type", payment.SequenceType).
		Str("subscription_id", payment.SubscriptionID).
		Msg("payment_webhook_processed")
}
