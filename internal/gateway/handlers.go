package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wildrydes/dispatch/internal/dispatch"
	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/identity"
	"github.com/wildrydes/dispatch/internal/ledger"
)

// rideRequest is the POST /ride body.
type rideRequest struct {
	PickupLocation *domain.Location `json:"PickupLocation"`
}

// rideResponse is the 201 body: what the client sees is this return value,
// not the stored record.
type rideResponse struct {
	RideID  string          `json:"RideId"`
	Unicorn domain.Unicorn  `json:"Unicorn"`
	DropIn  domain.Location `json:"DropIn"`
	Eta     float64         `json:"Eta"`
}

type rideHandlers struct {
	dispatcher *dispatch.Handler
	ledger     ledger.Store
}

func (h *rideHandlers) postRide(w http.ResponseWriter, r *http.Request) {
	riderID := RiderID(r.Context())
	if riderID == "" {
		// RequireAuth always runs first on this route; reaching here without
		// a rider id is a wiring bug, not a client error.
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req rideRequest
	if !ReadJSON(w, r, &req) {
		CountDispatch("invalid")
		return
	}
	if req.PickupLocation == nil {
		CountDispatch("invalid")
		WriteError(w, http.StatusBadRequest, "PickupLocation is required")
		return
	}

	a, err := h.dispatcher.Handle(r.Context(), riderID, *req.PickupLocation)
	if err != nil {
		if domain.IsStorage(err) {
			CountDispatch("storage_error")
		} else {
			CountDispatch("invalid")
		}
		WriteDomainError(w, err)
		return
	}
	CountDispatch("ok")

	WriteJSON(w, http.StatusCreated, rideResponse{
		RideID:  a.RideID,
		Unicorn: a.Unicorn,
		DropIn:  a.DropIn,
		Eta:     a.Eta,
	})
}

// getRide returns one of the rider's own rides. A ride belonging to someone
// else reads as absent rather than forbidden.
func (h *rideHandlers) getRide(w http.ResponseWriter, r *http.Request) {
	riderID := RiderID(r.Context())
	rideID := chi.URLParam(r, "id")

	ride, err := h.ledger.Get(r.Context(), rideID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if ride.RiderID != riderID {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, ride)
}

// ---- identity surface ----

type signUpRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type confirmRequest struct {
	Email string `json:"Email"`
	Code  string `json:"Code"`
}

type signInRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type authHandlers struct {
	identity *identity.Service
}

func (h *authHandlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	u, err := h.identity.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"UserId": u.ID,
		"Email":  u.Email,
	})
}

func (h *authHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if err := h.identity.Verify(r.Context(), req.Email, req.Code); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"Message": "Email verified"})
}

func (h *authHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	tok, exp, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"Token":     tok,
		"ExpiresAt": exp.UTC().Format(time.RFC3339),
	})
}

func (h *authHandlers) jwks(w http.ResponseWriter, r *http.Request) {
	b, err := h.identity.PublicKeys()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(b)
}

// ---- health ----

type healthHandlers struct {
	readiness []func() error
}

func (h *healthHandlers) healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthHandlers) readyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.readiness {
		if err := check(); err != nil {
			WriteError(w, http.StatusServiceUnavailable, fmt.Sprintf("not ready: %v", err))
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
