package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"expensedocs/internal/core"
)

// Client-side events announced through HX-Trigger.
const (
	EventCategoriesChanged = "categories:changed"
	EventDocumentsChanged  = "documents:changed"
	EventProfileChanged    = "profile:changed"
	EventSessionChanged    = "session:changed"
	EventFileUploaded      = "file:uploaded"
	EventFormReset         = "form:reset"
)

// flashTarget receives every error fragment regardless of the form's target.
const flashTarget = "#flash"

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.triggers[name] = data
	return b
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, nil)
}

// TriggerFileUploaded hands the public URL to the document form.
func (b *HTMXResponseBuilder) TriggerFileUploaded(url string) *HTMXResponseBuilder {
	return b.Trigger(EventFileUploaded, map[string]string{"url": url})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Retarget swaps the body into selector instead of the element that issued the request.
func (b *HTMXResponseBuilder) Retarget(selector string) *HTMXResponseBuilder {
	b.headers["HX-Retarget"] = selector
	b.headers["HX-Reswap"] = "innerHTML"
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message as an escaped error fragment in the flash area.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		Retarget(flashTarget).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// SuccessResponse renders message as an escaped success fragment in the flash area.
func SuccessResponse(message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Retarget(flashTarget).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// BackendFailure shows a backend error's message verbatim. Anything that is
// not a *core.BackendError is reported generically.
func BackendFailure(err error) *HTMXResponseBuilder {
	if be, ok := core.AsBackendError(err); ok {
		return ErrorResponse(http.StatusBadGateway, be.Error())
	}
	return ErrorResponse(http.StatusInternalServerError, "Unexpected error")
}
