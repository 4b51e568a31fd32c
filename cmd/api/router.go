package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mollie-recurring/internal/common"
	"github.com/noah-isme/mollie-recurring/internal/config"
	"github.com/noah-isme/mollie-recurring/internal/health"
	"github.com/noah-isme/mollie-recurring/internal/obs"
	"github.com/noah-isme/mollie-recurring/internal/payment"
	"github.com/noah-isme/mollie-recurring/internal/ratelimit"
	"github.com/noah-isme/mollie-recurring/internal/recurring"
	"github.com/noah-isme/mollie-recurring/internal/security"
)

type routes struct {
	cfg         *config.Config
	logger      zerolog.Logger
	httpMetrics *obs.HTTPMetrics
	metrics     http.Handler
	tracing     bool
	limiter     ratelimit.Limiter
	demo        recurring.Handler
	webhook     payment.Webhook
	health      health.Handler
}

func newRouter(rt routes) http.Handler {
	cfg := rt.cfg
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if rt.tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rt.httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rt.httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rt.logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, HSTSMaxAge: cfg.HSTSMaxAge}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics)
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	r.Get("/health/live", rt.health.Live)
	r.Get("/health/ready", rt.health.Ready)

	demoLimit := ratelimit.Handler{
		Name:    "demo",
		Limiter: rt.limiter,
		Config: ratelimit.Config{
			Key:    func(req *http.Request) string { return "demo:" + common.ClientIP(req) },
			Window: cfg.DemoRateLimitWin,
			Max:    cfg.DemoRateLimitMax,
		},
		OnError: func(req *http.Request, err error) {
			log := obs.LoggerFrom(req.Context(), rt.logger)
			log.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	r.With(demoLimit.Middleware).Get("/", rt.demo.Trigger)
	r.With(security.BodyLimit{Max: cfg.WebhookMaxBody}.Middleware).Post("/api/webhook", rt.webhook.Handle)

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func metricsHandler(enabled bool) http.Handler {
	if !enabled {
		return nil
	}
	return promhttp.Handler()
}

// newPprofMux serves the runtime profiles under /debug/pprof. chi.Mount keeps
// the full path, so patterns carry the prefix.
func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
