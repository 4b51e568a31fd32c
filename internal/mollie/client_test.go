package mollie_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mollie-recurring/internal/mollie"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Form   url.Values
}

type fakeMollie struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newFakeMollie(t *testing.T, status int, body string) (*fakeMollie, *httptest.Server) {
	t.Helper()
	f := &fakeMollie{t: t, status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeMollie) serve(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Errorf("read body: %v", err)
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		f.t.Errorf("parse form: %v", err)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Header: r.Header.Clone(), Form: form})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/hal+json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeMollie) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newClient(srv *httptest.Server, env string) *mollie.Client {
	return mollie.NewClient(mollie.Options{
		BaseURL:     srv.URL,
		Credentials: mollie.Credentials{Environment: env, LiveKey: "live_abc", TestKey: "test_xyz"},
		Logger:      zerolog.Nop(),
	})
}

func TestCredentialsSelectKeyByEnvironment(t *testing.T) {
	creds := mollie.Credentials{LiveKey: "live_abc", TestKey: "test_xyz"}

	creds.Environment = "production"
	require.Equal(t, "live_abc", creds.APIKey())

	for _, env := range []string{"", "development", "staging", "test", "Production"} {
		creds.Environment = env
		require.Equal(t, "test_xyz", creds.APIKey(), "environment %q", env)
	}
}

func TestClientSendsBearerForSelectedTier(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusOK, `{"resource":"payment","id":"tr_1","status":"open"}`)

	_, err := newClient(srv, "production").GetPayment(context.Background(), "tr_1")
	require.NoError(t, err)
	_, err = newClient(srv, "development").GetPayment(context.Background(), "tr_1")
	require.NoError(t, err)

	calls := fake.calls()
	require.Len(t, calls, 2)
	require.Equal(t, "Bearer live_abc", calls[0].Header.Get("Authorization"))
	require.Equal(t, "Bearer test_xyz", calls[1].Header.Get("Authorization"))
}

func TestOperationFailedOnNon2xx(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusUnauthorized, `{"status":401,"title":"Unauthorized Request"}`)

	_, err := newClient(srv, "development").GetPayment(context.Background(), "tr_1")
	require.Error(t, err)

	var opErr *mollie.OperationFailedError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, mollie.OpGetPayment, opErr.Op)
	require.Equal(t, http.StatusUnauthorized, opErr.StatusCode)
	require.NotContains(t, err.Error(), "Unauthorized Request")
	require.Len(t, fake.calls(), 1)
}

func TestOperationFailedOnTransportError(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusOK, `{}`)
	client := newClient(srv, "development")
	srv.Close()

	_, err := client.ListMandates(context.Background(), "cst_1")
	require.True(t, mollie.IsOperationFailed(err))
}

func TestMalformedBodyOn2xx(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusOK, `<html>not json</html>`)

	_, err := newClient(srv, "development").GetPayment(context.Background(), "tr_1")
	require.True(t, mollie.IsMalformed(err))
}
