package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return newLogger(os.Stdout, format)
}

func newLogger(writer io.Writer, format string) zerolog.Logger {
	out := writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "mollie-recurring").Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing
// metadata. Handlers further down the chain can pick up the request-scoped
// logger through LoggerFrom.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := l.Logger.With().Str("request_id", middleware.GetReqID(r.Context()))
		if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.IsValid() {
			fields = fields.
				Str("trace_id", spanCtx.TraceID().String()).
				Str("span_id", spanCtx.SpanID().String())
		}
		reqLog := fields.Logger()

		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(WithLogger(r.Context(), reqLog)))

		status := recorder.Status()
		route := routeFor(r)
		if route == "" {
			route = r.URL.Path
		}

		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = reqLog.Error()
		case status >= http.StatusBadRequest:
			evt = reqLog.Warn()
		default:
			evt = reqLog.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int64("bytes", recorder.BytesWritten())
		if status == http.StatusTooManyRequests {
			evt = evt.Bool("rate_limited", true)
		}
		for key, val := range map[string]string{
			"host":        r.Host,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		} {
			if v := strings.TrimSpace(val); v != "" {
				evt = evt.Str(key, v)
			}
		}
		evt.Msg("http_request")
	})
}
