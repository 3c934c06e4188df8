package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/csrf"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/tournament"
	"github.com/go-chi/chi/v5"
)

const (
	CodeRegistrationClosed      = "REGISTRATION_CLOSED"
	CodeBracketNotActive        = "BRACKET_NOT_ACTIVE"
	CodeWrongRound              = "WRONG_ROUND"
	CodeRegistrationCheckFailed = "REGISTRATION_CHECK_FAILED"
	CodeBracketCheckFailed      = "BRACKET_CHECK_FAILED"
	CodeRoundCheckFailed        = "ROUND_CHECK_FAILED"

	defaultClosedMessage = "Registrations are closed."
)

// StatusResolver derives tournament lifecycle state.
type StatusResolver interface {
	ResolveTournament(ctx context.Context, slug string) (*tournament.Tournament, error)
	ComputeRegistrationStatus(ctx context.Context, tournamentID int64, now time.Time) (*tournament.RegistrationStatus, error)
	ComputeBracketStatus(ctx context.Context, tournamentID int64, now time.Time) (*tournament.BracketStatus, error)
}

// Gate composes session verification, the CSRF check and lifecycle policy
// into request admission middleware. Every rejection is a JSON body with a
// machine-readable code.
type Gate struct {
	sessions   SessionVerifier
	cookieName string
	csrf       *csrf.Guard
	resolver   StatusResolver
	clock      clock.Clock
}

func NewGate(sessions SessionVerifier, cookieName string, guard *csrf.Guard, resolver StatusResolver, clk clock.Clock) *Gate {
	return &Gate{
		sessions:   sessions,
		cookieName: cookieName,
		csrf:       guard,
		resolver:   resolver,
		clock:      clk,
	}
}

// AttachTournament resolves the tournament named by the {slug} route
// parameter or the ?slug query, falling back to the latest tournament.
func (g *Gate) AttachTournament(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tournament(w, r, "TOURNAMENT_LOOKUP_FAILED")
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), TournamentKey, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) RequireRegistrationOpen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tournament(w, r, CodeRegistrationCheckFailed)
		if !ok {
			return
		}

		status, err := g.resolver.ComputeRegistrationStatus(r.Context(), t.ID, g.clock.Now())
		if err != nil {
			httputil.Failed(w, CodeRegistrationCheckFailed, err)
			return
		}

		if !status.IsActive {
			msg := defaultClosedMessage
			if status.OverrideReason != nil && *status.OverrideReason != "" {
				msg = *status.OverrideReason
			}
			httputil.Reject(w, http.StatusForbidden, httputil.ErrorBody{Error: CodeRegistrationClosed, Message: msg})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) RequireBracketActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok := g.bracketStatus(w, r, CodeBracketCheckFailed)
		if !ok {
			return
		}

		if !status.IsActive {
			httputil.Reject(w, http.StatusForbidden, httputil.ErrorBody{
				Error:   CodeBracketNotActive,
				Message: "The bracket is not active.",
			})
			return
		}

		ctx := context.WithValue(r.Context(), BracketStatusKey, status)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRound admits requests only while the bracket is active and its
// current round is name.
func (g *Gate) RequireRound(name string) func(http.Handler) http.Handler {
	return g.requireRound(func(*http.Request) string { return name })
}

// RequireRoundParam is RequireRound with the expected round taken from a
// route parameter.
func (g *Gate) RequireRoundParam(param string) func(http.Handler) http.Handler {
	return g.requireRound(func(r *http.Request) string { return chi.URLParam(r, param) })
}

func (g *Gate) requireRound(expectedFor func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := expectedFor(r)

			status, ok := g.bracketStatus(w, r, CodeRoundCheckFailed)
			if !ok {
				return
			}

			if !status.IsActive || status.CurrentRound == nil || *status.CurrentRound != expected {
				httputil.Reject(w, http.StatusForbidden, httputil.ErrorBody{
					Error:    CodeWrongRound,
					Message:  fmt.Sprintf("This action is only available during %s.", expected),
					Expected: &expected,
					Current:  status.CurrentRound,
				})
				return
			}

			ctx := context.WithValue(r.Context(), BracketStatusKey, status)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) bracketStatus(w http.ResponseWriter, r *http.Request, failCode string) (*tournament.BracketStatus, bool) {
	t, ok := g.tournament(w, r, failCode)
	if !ok {
		return nil, false
	}

	status, err := g.resolver.ComputeBracketStatus(r.Context(), t.ID, g.clock.Now())
	if err != nil {
		httputil.Failed(w, failCode, err)
		return nil, false
	}
	return status, true
}

// tournament returns the tournament attached earlier in the chain, or
// resolves it. An unknown slug is a 404; anything else is a failCode 500.
func (g *Gate) tournament(w http.ResponseWriter, r *http.Request, failCode string) (*tournament.Tournament, bool) {
	if t, ok := TournamentFromContext(r.Context()); ok {
		return t, true
	}

	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}

	t, err := g.resolver.ResolveTournament(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			httputil.Error(w, "resolve tournament", err)
			return nil, false
		}
		httputil.Failed(w, failCode, err)
		return nil, false
	}
	return t, true
}

func TournamentFromContext(ctx context.Context) (*tournament.Tournament, bool) {
	t, ok := ctx.Value(TournamentKey).(*tournament.Tournament)
	return t, ok && t != nil
}

func BracketStatusFromContext(ctx context.Context) (*tournament.BracketStatus, bool) {
	s, ok := ctx.Value(BracketStatusKey).(*tournament.BracketStatus)
	return s, ok && s != nil
}
