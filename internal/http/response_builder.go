package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HX-Trigger event names the page scripts listen for.
const (
	eventDrillChanged     = "drill:changed"
	eventEstimateUpdated  = "estimate:updated"
	eventShowNotification = "show-notification"
)

// errorNotificationMs is how long an error toast stays visible.
const errorNotificationMs = 5000

// HTMXResponseBuilder assembles one HTML response: status, headers, body and
// the events sent to the page in HX-Trigger.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

// NewHTMXResponse starts a 200 response.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger queues an event. A later event with the same name replaces the
// earlier one.
func (b *HTMXResponseBuilder) Trigger(event string, detail any) *HTMXResponseBuilder {
	b.events[event] = detail
	return b
}

// TriggerDrillChanged tells the explorer which age group and level the
// panels now show.
func (b *HTMXResponseBuilder) TriggerDrillChanged(ageGroup string, depth int) *HTMXResponseBuilder {
	return b.Trigger(eventDrillChanged, struct {
		Age   string `json:"age"`
		Depth int    `json:"depth"`
	}{ageGroup, depth})
}

// TriggerEstimateUpdated carries the new estimate total.
func (b *HTMXResponseBuilder) TriggerEstimateUpdated(totalCents int64) *HTMXResponseBuilder {
	return b.Trigger(eventEstimateUpdated, struct {
		TotalCents int64 `json:"total_cents"`
	}{totalCents})
}

// NotifyError shows message in the page's notification box. htmx does not
// swap error responses, so this toast is what the user sees of a failed
// partial.
func (b *HTMXResponseBuilder) NotifyError(message string) *HTMXResponseBuilder {
	return b.Trigger(eventShowNotification, struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}{"error", message, errorNotificationMs})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// HTML sets an HTML body.
func (b *HTMXResponseBuilder) HTML(body []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

// Write sends the response. Events that fail to encode are dropped; the
// body still goes out.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if len(b.events) > 0 {
		if encoded, err := json.Marshal(b.events); err == nil {
			dst.Set("HX-Trigger", string(encoded))
		}
	}

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an escaped error fragment with the given status.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		HTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

// MethodNotAllowedError is an empty 405 listing the allowed methods.
func MethodNotAllowedError(allowed string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowed)
}
