package main

import (
	"errors"
	"net/http"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/middleware"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/go-chi/chi/v5"
)

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *application) status(w http.ResponseWriter, r *http.Request) {
	httputil.NoStore(w)

	resp, err := app.tournaments.GetStatuses(r.Context(), r.URL.Query().Get("slug"), app.clock.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			httputil.Error(w, "Failed to fetch status", err)
			return
		}
		httputil.Failed(w, "STATUS_FETCH_FAILED", err)
		return
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// legacyCSRFField lets request bodies carry the CSRF token for clients that
// cannot set the header. The guard has already checked it.
type legacyCSRFField struct {
	CSRFToken string `json:"csrf_token"`
}

type registerRequest struct {
	legacyCSRFField
	ReadRules    bool `json:"read_rules"`
	WantsCaptain bool `json:"wants_captain"`
}

func (app *application) register(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())

	var req registerRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "INVALID_BODY", "Invalid request body", err)
		return
	}

	if err := app.registrations.Register(r.Context(), claims.Subject, req.ReadRules, req.WantsCaptain); err != nil {
		writeRegistrationError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"registered": true, "wants_captain": req.WantsCaptain})
}

func (app *application) unregister(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())

	if err := app.registrations.Unregister(r.Context(), claims.Subject); err != nil {
		writeRegistrationError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"registered": false})
}

func writeRegistrationError(w http.ResponseWriter, err error) {
	var regErr *service.RegistrationError
	if errors.As(err, &regErr) {
		httputil.BadRequest(w, regErr.Code, regErr.Message, nil)
		return
	}
	httputil.Error(w, "Failed to update registration", err)
}

func (app *application) bracket(w http.ResponseWriter, r *http.Request) {
	status, _ := middleware.BracketStatusFromContext(r.Context())
	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, status)
}

func (app *application) checkIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := middleware.SessionFromContext(ctx)
	t, _ := middleware.TournamentFromContext(ctx)
	round := chi.URLParam(r, "round")

	if err := app.tournaments.CheckIn(ctx, t.ID, claims.Subject, round, app.clock.Now()); err != nil {
		httputil.InternalServerError(w, "Failed to record check-in", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"checked_in": true, "round": round})
}

type registrationOverrideRequest struct {
	legacyCSRFField
	Active *bool   `json:"active"`
	Reason *string `json:"reason"`
}

func (app *application) setRegistrationOverride(w http.ResponseWriter, r *http.Request) {
	var req registrationOverrideRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "INVALID_BODY", "Invalid request body", err)
		return
	}

	slug := chi.URLParam(r, "slug")
	if err := app.tournaments.SetRegistrationOverride(r.Context(), slug, req.Active, req.Reason); err != nil {
		httputil.Error(w, "Failed to set registration override", err)
		return
	}
	app.writeStatuses(w, r, slug)
}

type bracketOverrideRequest struct {
	legacyCSRFField
	Active       *bool   `json:"active"`
	CurrentRound *string `json:"current_round"`
}

func (app *application) setBracketOverride(w http.ResponseWriter, r *http.Request) {
	var req bracketOverrideRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "INVALID_BODY", "Invalid request body", err)
		return
	}

	slug := chi.URLParam(r, "slug")
	if err := app.tournaments.SetBracketOverride(r.Context(), slug, req.Active, req.CurrentRound); err != nil {
		httputil.Error(w, "Failed to set bracket override", err)
		return
	}
	app.writeStatuses(w, r, slug)
}

func (app *application) writeStatuses(w http.ResponseWriter, r *http.Request, slug string) {
	resp, err := app.tournaments.GetStatuses(r.Context(), slug, app.clock.Now())
	if err != nil {
		httputil.Error(w, "Failed to fetch status", err)
		return
	}
	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, resp)
}
