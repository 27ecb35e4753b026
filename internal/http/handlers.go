package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"hhspend/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if ds := s.snapshot(); ds == nil || ds.forest.Len() == 0 {
		checks["dataset"] = "failed: no categories loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]interface{}{
			"categories": ds.forest.Len(),
			"loaded_at":  ds.loadedAt.Format(time.RFC3339),
		}
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed",
				log.FieldComponent, log.ComponentBackend,
				log.FieldError, err)
			checks["backend"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	cacheStats := s.panelCache.Stats()
	checks["cache"] = map[string]interface{}{
		"entries": cacheStats.Size,
		"hits":    cacheStats.Hits,
		"misses":  cacheStats.Misses,
	}

	writeJSON(w, r, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "JSON encoding failed", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
}

// writeJSONError reports err as {"error": "..."} with the mapped status.
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, errorStatus(err), map[string]string{"error": errorMessage(err)})
}

// writeHTMLError reports err as an error fragment with the mapped status.
// HTMX requests also get an error notification. Server-side failures are
// logged, client mistakes are not.
func writeHTMLError(w http.ResponseWriter, r *http.Request, err error, component, operation string) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, component, operation, log.NewFields())
	}
	resp := ErrorResponse(status, errorMessage(err))
	if isHTMX(r) {
		resp.NotifyError(errorMessage(err))
	}
	resp.Write(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
