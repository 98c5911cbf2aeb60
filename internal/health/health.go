// Package health serves liveness and readiness probes.
//
//   - GET /healthz reports that the process is up, with its version and
//     uptime.
//   - GET /readyz runs every registered [Checker] concurrently and answers
//     200 only when all of them pass.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const checkTimeout = 3 * time.Second

// Checker probes one dependency.
type Checker struct {
	// Name keys the result in the readiness response, e.g. "store".
	Name string

	// Check returns nil when the dependency is usable. It must honour ctx.
	Check func(ctx context.Context) error
}

// Pinger is anything with a Ping method, such as a kv.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts p to a Checker.
func PingCheck(name string, p Pinger) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	}}
}

type liveness struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probes. The checker list is fixed at construction.
type Handler struct {
	version  string
	started  time.Time
	now      func() time.Time
	checkers []Checker
}

// New returns a Handler for a process of the given version.
func New(version string, checkers ...Checker) *Handler {
	return &Handler{
		version:  version,
		started:  time.Now(),
		now:      time.Now,
		checkers: append([]Checker(nil), checkers...),
	}
}

// Healthz answers 200 as long as the process can serve HTTP.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, liveness{
		Status:  "ok",
		Version: h.version,
		Uptime:  h.now().Sub(h.started).Truncate(time.Second).String(),
	})
}

// Readyz answers 200 when every checker passes and 503 otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(h.checkers))
		failed bool
	)
	for _, c := range h.checkers {
		wg.Go(func() {
			err := c.Check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				failed = true
				return
			}
			checks[c.Name] = "ok"
		})
	}
	wg.Wait()

	if failed {
		writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "fail", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, readiness{Status: "ok", Checks: checks})
}

// Register mounts both probes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
