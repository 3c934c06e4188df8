package httputil

import (
	"net/http"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/csrf"
)

// Cookies writes the session and CSRF cookies with consistent attributes.
type Cookies struct {
	SessionName string
	Secure      bool
}

// SetSession stores the signed session token. It is never readable from scripts.
func (c Cookies) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.SessionName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RotateCSRF issues a new token in a cookie scripts can read, so the client
// can echo it back in the header.
func (c Cookies) RotateCSRF(w http.ResponseWriter, ttl time.Duration) string {
	token := csrf.NewToken()
	http.SetCookie(w, &http.Cookie{
		Name:     csrf.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{c.SessionName, csrf.CookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == c.SessionName,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
