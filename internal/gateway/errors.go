package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wildrydes/dispatch/internal/domain"
)

// apiError is the wire envelope for every failure.
type apiError struct {
	Message   string `json:"Message"`
	RequestID string `json:"RequestId,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope, echoing the request id when present.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Message: msg, RequestID: rid})
}

// WriteDomainError is the single place internal failures become HTTP status
// codes. Handlers and stores never pick codes themselves.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredential):
		w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrNotVerified):
		WriteError(w, http.StatusForbidden, "Email not verified")
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrCodeExpired):
		WriteError(w, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrStorage):
		WriteError(w, http.StatusBadGateway, "Ride could not be recorded")
	default:
		WriteError(w, http.StatusInternalServerError, "Internal error")
	}
}

// userMessage strips wrapped internals, returning only the sentinel's text.
func userMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidInput, domain.ErrInvalidEmail,
		domain.ErrInvalidCode, domain.ErrCodeExpired,
	} {
		if errors.Is(err, sentinel) {
			return strings.ToUpper(sentinel.Error()[:1]) + sentinel.Error()[1:]
		}
	}
	return "Bad request"
}

// ReadJSON decodes a JSON body, capping it at 1MB. Unknown fields are
// tolerated.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
