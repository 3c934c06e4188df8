package middleware

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/session"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
)

type ContextKey string

const (
	SessionKey       ContextKey = "session"
	TournamentKey    ContextKey = "tournament"
	BracketStatusKey ContextKey = "bracketStatus"
)

// SessionVerifier checks a session token and returns its claims.
type SessionVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// RequireAuth admits requests carrying a valid session cookie and stores the
// claims in the request context.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(g.cookieName)
		if err != nil || cookie.Value == "" {
			httputil.Error(w, "authenticate", apperrors.InvalidSession("Not authenticated", nil))
			return
		}

		claims, err := g.sessions.Verify(cookie.Value)
		if err != nil {
			httputil.Error(w, "authenticate", err)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// VerifyCSRF rejects state-changing requests whose anti-forgery token does
// not match the cookie. Safe methods pass through.
func (g *Gate) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if err := g.csrf.Check(r); err != nil {
			httputil.Error(w, "csrf", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole authorizes against the role snapshot in the session, so a role
// change takes effect once the session is reissued.
func (g *Gate) RequireRole(roles ...users.RoleName) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := SessionFromContext(r.Context())
			if !ok {
				httputil.Error(w, "authorize", apperrors.InvalidSession("Not authenticated", nil))
				return
			}
			if !claims.HasRole(names...) {
				httputil.Reject(w, http.StatusForbidden, httputil.ErrorBody{
					Error:   string(apperrors.KindForbidden),
					Message: "You do not have permission to do this.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SessionFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(SessionKey).(*session.Claims)
	return claims, ok && claims != nil
}
