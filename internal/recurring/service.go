// Package recurring runs the recurring-payment demo flow: create a customer,
// start a first payment, wait for the resulting mandate and subscribe every
// valid mandate.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/mollie-recurring/internal/config"
	"github.com/noah-isme/mollie-recurring/internal/mollie"
	"github.com/noah-isme/mollie-recurring/internal/obs"
	"github.com/noah-isme/mollie-recurring/internal/resilience"
)

const maxPollInterval = 10 * time.Second

// Provider is the part of the Mollie client the demo flow depends on.
type Provider interface {
	CreateCustomer(ctx context.Context, req mollie.CustomerRequest) (mollie.Customer, error)
	CreatePayment(ctx context.Context, req mollie.PaymentRequest) (mollie.Payment, error)
	ListMandates(ctx context.Context, customerID string) (mollie.MandateList, error)
	CreateSubscription(ctx context.Context, req mollie.SubscriptionRequest) (mollie.Subscription, error)
}

// Service drives one demo run per call to Run.
type Service struct {
	Provider Provider
	Demo     config.Demo

	// PollTimeout bounds the wait for a valid mandate. After it elapses one
	// final lookup is made and the flow continues with its outcome.
	PollTimeout  time.Duration
	PollInterval time.Duration
	PollJitter   float64
	Concurrency  int
	Logger       zerolog.Logger
}

// NewService builds a Service from configuration.
func NewService(provider Provider, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		Provider:     provider,
		Demo:         cfg.Demo,
		PollTimeout:  cfg.MandatePollWait,
		PollInterval: cfg.MandatePollBase,
		PollJitter:   cfg.MandatePollJitter,
		Concurrency:  cfg.SubscriptionConcurrency,
		Logger:       logger.With().Str("component", "recurring").Logger(),
	}
}

// Result summarises a demo run. It is returned alongside an error as well so
// partial progress stays visible.
type Result struct {
	RunID         string
	CustomerID    string
	PaymentID     string
	CheckoutURL   string
	Mandates      []mollie.Mandate
	Subscriptions []mollie.Subscription
}

// Run executes the demo chain. Subscription failures do not stop the other
// subscriptions; they are joined into the returned error once all finished.
func (s *Service) Run(ctx context.Context) (res Result, err error) {
	if s == nil || s.Provider == nil {
		return Result{}, errors.New("recurring service not configured")
	}
	res.RunID = uuid.NewString()
	ctx, span := otel.Tracer("recurring.Service").Start(ctx, "RecurringService.Run")
	defer span.End()
	span.SetAttributes(attribute.String("recurring.run_id", res.RunID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	log := obs.LoggerFrom(ctx, s.Logger).With().Str("run_id", res.RunID).Logger()
	ctx = obs.WithLogger(ctx, log)

	customer, err := s.Provider.CreateCustomer(ctx, mollie.CustomerRequest{
		Name:     s.Demo.CustomerName,
		Email:    s.Demo.CustomerEmail,
		Locale:   s.Demo.CustomerLocale,
		Metadata: s.Demo.CustomerMetadata,
	})
	if err != nil {
		return res, fmt.Errorf("create customer: %w", err)
	}
	res.CustomerID = customer.ID
	log.Info().Str("customer_id", customer.ID).Msg("customer_created")

	payment, err := s.Provider.CreatePayment(ctx, mollie.PaymentRequest{
		CustomerID:   customer.ID,
		SequenceType: mollie.SequenceFirst,
		Description:  s.Demo.Description,
		Amount:       s.amount(),
		RedirectURL:  s.Demo.RedirectURL,
	})
	if err != nil {
		return res, fmt.Errorf("create first payment: %w", err)
	}
	res.PaymentID = payment.ID
	checkout, err := payment.CheckoutURL()
	if err != nil {
		return res, fmt.Errorf("create first payment: %w", err)
	}
	res.CheckoutURL = checkout
	log.Info().Str("payment_id", payment.ID).Str("checkout_url", checkout).Msg("first_payment_created")

	mandates, err := s.awaitMandates(ctx, customer.ID, log)
	if err != nil {
		return res, fmt.Errorf("await mandate: %w", err)
	}
	res.Mandates = mandates
	if len(mandates) == 0 {
		log.Warn().Dur("waited", s.pollTimeout()).Msg("no_valid_mandate")
		return res, nil
	}

	subs, err := s.subscribe(ctx, customer.ID, mandates, log)
	res.Subscriptions = subs
	span.SetAttributes(attribute.Int("recurring.subscriptions", len(subs)))
	if err != nil {
		return res, fmt.Errorf("create subscriptions: %w", err)
	}
	return res, nil
}

// awaitMandates polls the customer's mandates with exponential backoff until
// a valid one shows up or the poll window closes.
func (s *Service) awaitMandates(ctx context.Context, customerID string, log zerolog.Logger) ([]mollie.Mandate, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout())
	defer cancel()

	for attempt := 1; ; attempt++ {
		valid, err := s.validMandates(pollCtx, customerID)
		if err != nil {
			if pollCtx.Err() != nil && ctx.Err() == nil {
				break
			}
			return nil, err
		}
		if len(valid) > 0 {
			log.Info().Int("attempt", attempt).Int("valid", len(valid)).Msg("mandate_ready")
			return valid, nil
		}

		wait := resilience.Backoff(s.pollInterval(), attempt, s.PollJitter)
		if wait > maxPollInterval {
			wait = maxPollInterval
		}
		log.Debug().Int("attempt", attempt).Dur("next_in", wait).Msg("mandate_pending")
		if resilience.Sleep(pollCtx, wait) != nil {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.validMandates(ctx, customerID)
}

func (s *Service) validMandates(ctx context.Context, customerID string) ([]mollie.Mandate, error) {
	if obs.MandatePollAttempts != nil {
		obs.MandatePollAttempts.Inc()
	}
	list, err := s.Provider.ListMandates(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return list.Valid()
}

// subscribe creates one subscription per mandate in a bounded task group and
// waits for all of them. Results keep the order of mandates; failed entries
// are left out.
func (s *Service) subscribe(ctx context.Context, customerID string, mandates []mollie.Mandate, log zerolog.Logger) ([]mollie.Subscription, error) {
	results := make([]*mollie.Subscription, len(mandates))
	errs := make([]error, len(mandates))

	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for i, mandate := range mandates {
		g.Go(func() error {
			sub, err := s.Provider.CreateSubscription(ctx, s.subscriptionRequest(customerID, mandate.ID))
			if err != nil {
				countSubscription("error")
				log.Error().Err(err).Str("mandate_id", mandate.ID).Msg("subscription_failed")
				errs[i] = fmt.Errorf("mandate %s: %w", mandate.ID, err)
				return nil
			}
			countSubscription("success")
			log.Info().Str("mandate_id", mandate.ID).Str("subscription_id", sub.ID).Msg("subscription_created")
			results[i] = &sub
			return nil
		})
	}
	_ = g.Wait()

	subs := make([]mollie.Subscription, 0, len(mandates))
	for _, sub := range results {
		if sub != nil {
			subs = append(subs, *sub)
		}
	}
	return subs, errors.Join(errs...)
}

func (s *Service) subscriptionRequest(customerID, mandateID string) mollie.SubscriptionRequest {
	req := mollie.SubscriptionRequest{
		CustomerID:  customerID,
		MandateID:   mandateID,
		Description: s.Demo.Description,
		WebhookURL:  s.Demo.SubscriptionWebhookURL,
		Amount:      s.amount(),
		Interval:    s.Demo.SubscriptionInterval,
	}
	if s.Demo.SubscriptionTimes > 0 {
		times := s.Demo.SubscriptionTimes
		req.Times = &times
	}
	return req
}

func (s *Service) amount() mollie.Amount {
	return mollie.Amount{Currency: s.Demo.Currency, Value: s.Demo.Value}
}

func (s *Service) pollTimeout() time.Duration {
	if s.PollTimeout <= 0 {
		return 40 * time.Second
	}
	return s.PollTimeout
}

func (s *Service) pollInterval() time.Duration {
	if s.PollInterval <= 0 {
		return 2 * time.Second
	}
	return s.PollInterval
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return 1
	}
	return s.Concurrency
}

func countSubscription(result string) {
	if obs.SubscriptionsCreatedTotal != nil {
		obs.SubscriptionsCreatedTotal.WithLabelValues(result).Inc()
	}
}
