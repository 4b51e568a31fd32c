package recurring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mollie-recurring/internal/common"
	"github.com/noah-isme/mollie-recurring/internal/mollie"
	"github.com/noah-isme/mollie-recurring/internal/obs"
)

// Acknowledgment is the body returned once a demo run completed.
const Acknowledgment = "Mollie recurring payment demo completed"

// Runner executes a demo run.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// DefaultRunTimeout bounds a demo run when Handler.RunTimeout is unset.
const DefaultRunTimeout = 2 * time.Minute

// Handler exposes the demo flow over HTTP. A run is detached from the inbound
// request: once the customer and first payment exist at Mollie the chain goes
// on to the subscription step even if the caller disconnects. RunTimeout is
// the server-side bound instead.
type Handler struct {
	Svc        Runner
	Logger     zerolog.Logger
	RunTimeout time.Duration
}

// Trigger runs the demo chain and answers with a static acknowledgment.
func (h Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "RECURRING_NOT_CONFIGURED", "demo flow unavailable", nil)
		return
	}
	log := obs.LoggerFrom(r.Context(), h.Logger)
	timeout := h.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()

	res, err := h.Svc.Run(ctx)
	if r.Context().Err() != nil {
		log.Info().Str("run_id", res.RunID).Msg("demo_caller_gone")
	}
	if err != nil {
		log.Error().Err(err).
			Int("status", common.StatusOf(toAppError(err))).
			Str("run_id", res.RunID).
			Str("customer_id", res.CustomerID).
			Int("subscriptions", len(res.Subscriptions)).
			Msg("demo_run_failed")
		common.WriteError(w, toAppError(err).WithDetails(map[string]any{"runId": res.RunID}))
		return
	}
	log.Info().
		Str("run_id", res.RunID).
		Str("customer_id", res.CustomerID).
		Int("mandates", len(res.Mandates)).
		Int("subscriptions", len(res.Subscriptions)).
		Msg("demo_run_completed")

	common.Text(w, http.StatusOK, Acknowledgment)
}

func toAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("UPSTREAM_TIMEOUT", "payment provider did not answer in time", http.StatusGatewayTimeout, err)
	case mollie.IsValidation(err):
		return common.NewAppError("INVALID_DEMO_CONFIG", "demo request is incomplete", http.StatusInternalServerError, err)
	case mollie.IsOperationFailed(err), mollie.IsMalformed(err):
		return common.NewAppError("PROVIDER_ERROR", "payment provider request failed", http.StatusBadGateway, err)
	default:
		return common.NewAppError("INTERNAL", "demo run failed", http.StatusInternalServerError, err)
	}
}
