package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/mollie-recurring/internal/config"
	"github.com/noah-isme/mollie-recurring/internal/health"
	"github.com/noah-isme/mollie-recurring/internal/mollie"
	"github.com/noah-isme/mollie-recurring/internal/obs"
	"github.com/noah-isme/mollie-recurring/internal/payment"
	"github.com/noah-isme/mollie-recurring/internal/ratelimit"
	"github.com/noah-isme/mollie-recurring/internal/recurring"
	"github.com/noah-isme/mollie-recurring/internal/resilience"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "mollie-recurring",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	resilience.MustRegisterMetrics(cfg.MetricsNamespace, nil)
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "mollie",
		MinRequests:  cfg.CircuitMinReq,
		FailureRatio: cfg.CircuitFailRatio,
		OpenFor:      cfg.CircuitOpenFor,
		Logger:       &logger,
	})
	transport := http.DefaultTransport
	if tracingEnabled {
		transport = otelhttp.NewTransport(transport)
	}
	mollieClient := mollie.NewClient(mollie.Options{
		BaseURL: cfg.MollieBaseURL,
		Credentials: cfg.MollieCredentials(),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: transport},
			Breaker:     breaker,
			MaxAttempts: 1,
			Timeout:     cfg.MollieTimeout,
		},
		Logger: logger,
	})
	tier := "test"
	if cfg.IsProduction() {
		tier = "live"
	}
	logger.Info().Str("tier", tier).Str("base_url", cfg.MollieBaseURL).Msg("mollie client configured")

	healthHandler := health.Handler{Timeout: cfg.ReadyCheckTimeout}
	store := ratelimit.NewMemoryStore("")
	if cfg.RedisURL != "" {
		redisClient, redisStore, err := connectRedis(cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		store = redisStore
		healthHandler.Checks = map[string]health.Check{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}
	}

	// poll window plus the customer, payment, final mandate and subscription calls
	runTimeout := cfg.MandatePollWait + 4*cfg.MollieTimeout
	handler := newRouter(routes{
		cfg:         cfg,
		logger:      logger,
		httpMetrics: httpMetrics,
		metrics:     metricsHandler(cfg.MetricsEnabled),
		tracing:     tracingEnabled,
		limiter:     ratelimit.Limiter{Store: store},
		demo: recurring.Handler{
			Svc:        recurring.NewService(mollieClient, cfg, logger),
			Logger:     logger,
			RunTimeout: runTimeout,
		},
		webhook: payment.Webhook{Payments: mollieClient, Logger: logger},
		health:  healthHandler,
	})

	// The demo route blocks for up to the mandate poll window, so the write
	// timeout has to outlast it.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      runTimeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func connectRedis(cfg *config.Config, logger zerolog.Logger) (*redis.Client, limiter.Store, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	store, err := ratelimit.NewRedisStore(client, "")
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, store, nil
}
