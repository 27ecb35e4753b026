package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_HTML(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().HTML([]byte("<p>ok</p>")).Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected HX-Trigger %q", w.Header().Get("HX-Trigger"))
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerDrillChanged("30 - 34", 2).
		TriggerEstimateUpdated(123456).
		NotifyError("Unknown dwelling").
		Write(w)

	var events map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &events); err != nil {
		t.Fatalf("decode HX-Trigger %q: %v", w.Header().Get("HX-Trigger"), err)
	}

	if got := events["drill:changed"]; got["age"] != "30 - 34" || got["depth"] != float64(2) {
		t.Errorf("drill:changed = %v", got)
	}
	if got := events["estimate:updated"]; got["total_cents"] != float64(123456) {
		t.Errorf("estimate:updated = %v", got)
	}
	note := events["show-notification"]
	if note["type"] != "error" || note["message"] != "Unknown dwelling" || note["duration"] != float64(errorNotificationMs) {
		t.Errorf("show-notification = %v", note)
	}
}

func TestHTMXResponseBuilder_TriggerReplacesEvent(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerEstimateUpdated(1).
		TriggerEstimateUpdated(2).
		Write(w)

	if trig := w.Header().Get("HX-Trigger"); trig != `{"estimate:updated":{"total_cents":2}}` {
		t.Errorf("HX-Trigger = %s", trig)
	}
}

func TestHTMXResponseBuilder_StatusAndHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusAccepted).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.Len() != 0 {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		wantBody string
	}{
		{"not found", http.StatusNotFound, "Category not found", `<div class="error">Category not found</div>`},
		{"internal", http.StatusInternalServerError, "Failed to render page", `<div class="error">Failed to render page</div>`},
		{"escapes html", http.StatusBadRequest, "<script>alert('x')</script>", `<div class="error">&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;</div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(tt.status, tt.message).Write(w)

			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if strings.Contains(w.Header().Get("HX-Trigger"), "show-notification") {
				t.Error("plain error responses must not notify")
			}
		})
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("GET, HEAD").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if w.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow header = %q, want %q", w.Header().Get("Allow"), "GET, HEAD")
	}
}
