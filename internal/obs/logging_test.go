package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerEmitsStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json")
	handler := RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRoutePattern(req.Context(), "/"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/", entry["route"])
	require.EqualValues(t, http.StatusTooManyRequests, entry["status"])
	require.EqualValues(t, len("slow down"), entry["bytes"])
	require.Equal(t, true, entry["rate_limited"])
	require.Equal(t, "mollie-recurring", entry["service"])
	require.Equal(t, "warn", entry["level"])
}

func TestRequestLoggerSharesScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json")
	handler := RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := LoggerFrom(r.Context(), zerolog.Nop())
		log.Info().Msg("inner")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/webhook", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		require.Equal(t, "req-42", entry["request_id"])
	}
}

func TestLoggerFromFallsBack(t *testing.T) {
	var buf bytes.Buffer
	fallback := newLogger(&buf, "json")
	log := LoggerFrom(context.Background(), fallback)
	log.Info().Msg("hello")
	require.Contains(t, buf.String(), `"message":"hello"`)
}
