package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/middleware"
	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"github.com/AdamBeresnev/tourney-registration/internal/session"
	"github.com/AdamBeresnev/tourney-registration/internal/utils"
	"github.com/google/uuid"
)

const (
	osuStateKey       = "osu_state"
	returnToKey       = "return_to"
	discordStateKey   = "discord_state"
	discordSessionKey = "discord_session"
)

type meResponse struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	CountryCode string    `json:"country_code"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Roles       []string  `json:"roles"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newMeResponse(c *session.Claims) meResponse {
	return meResponse{
		UserID:      c.Subject,
		Username:    c.Username,
		CountryCode: c.CountryCode,
		AvatarURL:   c.AvatarURL,
		Roles:       c.Roles,
		ExpiresAt:   c.ExpiresAt,
	}
}

func (app *application) osuLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	app.handshakes.Put(r.Context(), osuStateKey, state)
	app.handshakes.Put(r.Context(), returnToKey, safeReturnTo(r.URL.Query().Get("returnTo")))

	http.Redirect(w, r, app.osu.AuthCodeURL(state), http.StatusFound)
}

func (app *application) osuCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	expected := app.handshakes.PopString(ctx, osuStateKey)
	if expected == "" || q.Get("state") != expected {
		httputil.BadRequest(w, "INVALID_STATE", "Login expired or was tampered with, please try again.", nil)
		return
	}
	if oauthErr := q.Get("error"); oauthErr != "" {
		httputil.BadRequest(w, "AUTHORIZATION_DENIED", "osu! authorization was denied.", errors.New(oauthErr))
		return
	}

	profile, err := app.profiles.CompleteLogin(ctx, q.Get("code"))
	if err != nil {
		httputil.Error(w, "Failed to complete osu! login", err)
		return
	}

	if err := app.handshakes.RenewToken(ctx); err != nil {
		httputil.InternalServerError(w, "Failed to renew handshake session", err)
		return
	}

	if _, err := app.issueSession(w, profile); err != nil {
		httputil.InternalServerError(w, "Failed to issue session", err)
		return
	}

	http.Redirect(w, r, app.frontendURL(app.handshakes.PopString(ctx, returnToKey)), http.StatusFound)
}

func (app *application) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())
	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, newMeResponse(claims))
}

// refreshProfile re-reads the osu! profile and reissues the session, which
// also picks up role changes since the last login.
func (app *application) refreshProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())

	profile, err := app.profiles.RefreshProfile(r.Context(), claims.Subject)
	if err != nil {
		httputil.Error(w, "Failed to refresh profile", err)
		return
	}

	fresh, err := app.issueSession(w, profile)
	if err != nil {
		httputil.InternalServerError(w, "Failed to issue session", err)
		return
	}
	httputil.NoStore(w)
	httputil.JSON(w, http.StatusOK, newMeResponse(fresh))
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())

	if err := app.credentials.Forget(r.Context(), claims.Subject); err != nil {
		httputil.InternalServerError(w, "Failed to delete credentials", err)
		return
	}
	app.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) discordLogin(w http.ResponseWriter, r *http.Request) {
	if app.discord == nil {
		httputil.NotFound(w, "Discord linking is not configured", nil)
		return
	}

	state := uuid.NewString()
	authURL, sess, err := app.discord.BeginAuth(state)
	if err != nil {
		httputil.InternalServerError(w, "Failed to start Discord login", err)
		return
	}
	app.handshakes.Put(r.Context(), discordStateKey, state)
	app.handshakes.Put(r.Context(), discordSessionKey, sess)

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (app *application) discordCallback(w http.ResponseWriter, r *http.Request) {
	if app.discord == nil {
		httputil.NotFound(w, "Discord linking is not configured", nil)
		return
	}

	ctx := r.Context()
	claims, _ := middleware.SessionFromContext(ctx)
	q := r.URL.Query()

	expected := app.handshakes.PopString(ctx, discordStateKey)
	sess := app.handshakes.PopString(ctx, discordSessionKey)
	if expected == "" || sess == "" || q.Get("state") != expected {
		httputil.BadRequest(w, "INVALID_STATE", "Discord link expired or was tampered with, please try again.", nil)
		return
	}

	discordUser, err := app.discord.CompleteAuth(sess, q)
	if err != nil {
		httputil.Error(w, "Failed to complete Discord login", apperrors.Upstream("Discord authorization failed", err))
		return
	}

	if _, err := app.discordLinks.Link(ctx, claims.Subject, discordUser); err != nil {
		httputil.Error(w, "Failed to link Discord", err)
		return
	}

	app.cookies.RotateCSRF(w, app.codec.TTL())
	http.Redirect(w, r, app.frontendURL(""), http.StatusFound)
}

func (app *application) discordUnlink(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())

	if err := app.discordLinks.Unlink(r.Context(), claims.Subject); err != nil {
		httputil.Error(w, "Failed to unlink Discord", err)
		return
	}
	app.cookies.RotateCSRF(w, app.codec.TTL())
	w.WriteHeader(http.StatusNoContent)
}

// issueSession signs a session for profile, sets it with a fresh CSRF token,
// and returns the claims as a client will see them.
func (app *application) issueSession(w http.ResponseWriter, profile *service.Profile) (*session.Claims, error) {
	token, err := app.codec.Issue(session.Claims{
		Subject:     profile.User.UserID,
		Username:    profile.User.Username,
		CountryCode: profile.User.CountryCode,
		AvatarURL:   utils.OrZero(profile.User.AvatarURL),
		Roles:       profile.Roles,
	})
	if err != nil {
		return nil, err
	}

	claims, err := app.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	app.cookies.SetSession(w, token, app.codec.TTL())
	app.cookies.RotateCSRF(w, app.codec.TTL())
	return claims, nil
}

func (app *application) frontendURL(returnTo string) string {
	base := strings.TrimRight(app.cfg.FrontendURL, "/")
	if returnTo != "" {
		return base + returnTo
	}
	if base == "" {
		return "/"
	}
	return base
}

// safeReturnTo only accepts same-origin absolute paths.
func safeReturnTo(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return ""
	}
	return raw
}
