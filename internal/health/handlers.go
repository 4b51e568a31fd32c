package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/noah-isme/mollie-recurring/internal/common"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the process-wide readiness flag. It is cleared when the
// server starts draining so load balancers stop routing new traffic.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness flag.
func IsReady() bool {
	return ready.Load()
}

// Check probes one dependency.
type Check func(ctx context.Context) error

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	// Checks are optional named dependency probes, e.g. "redis".
	Checks  map[string]Check
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.Text(w, http.StatusOK, "ok")
}

// Ready reports readiness based on the shutdown flag and dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	if !IsReady() {
		status["server"] = "shutting down"
		healthy = false
	} else {
		status["server"] = "ok"
	}

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := h.Checks[name](ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
