package httpx

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	healthResponse = `{"status":"ok"}`
	readyTimeout   = 2 * time.Second
)

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// readyHandler runs every check concurrently and reports 503 if any fails.
func readyHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		results := make(map[string]string, len(names))
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, name := range names {
			wg.Add(1)
			go func(name string, check ReadinessCheck) {
				defer wg.Done()
				status := "ok"
				if err := check(ctx); err != nil {
					status = err.Error()
				}
				mu.Lock()
				results[name] = status
				mu.Unlock()
			}(name, checks[name])
		}
		wg.Wait()

		code := http.StatusOK
		for _, status := range results {
			if status != "ok" {
				code = http.StatusServiceUnavailable
				break
			}
		}
		state := "ok"
		if code != http.StatusOK {
			state = "unavailable"
		}
		WriteJSON(w, code, map[string]any{"status": state, "checks": results})
	}
}
