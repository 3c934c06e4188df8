package csrf

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/google/uuid"
)

const (
	CookieName = "csrf_token"
	HeaderName = "X-CSRF-Token"
	// FieldName is the body/query field accepted in legacy mode.
	FieldName = "csrf_token"

	maxLegacyBody = 1 << 20
)

// Guard implements the double-submit check: the value presented by the
// client must equal the csrf_token cookie.
type Guard struct {
	allowLegacyFields bool
}

func NewGuard(allowLegacyFields bool) *Guard {
	return &Guard{allowLegacyFields: allowLegacyFields}
}

// NewToken returns a fresh random token.
func NewToken() string {
	return uuid.NewString()
}

// Check returns a Forbidden error when the cookie or the presented value is
// missing, or when they differ.
func (g *Guard) Check(r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return apperrors.Forbidden("Invalid CSRF token")
	}

	presented := r.Header.Get(HeaderName)
	if presented == "" && g.allowLegacyFields {
		presented = legacyToken(r)
	}
	if presented == "" {
		return apperrors.Forbidden("Invalid CSRF token")
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(presented)) != 1 {
		return apperrors.Forbidden("Invalid CSRF token")
	}
	return nil
}

// legacyToken reads FieldName from the query string, or from a JSON or
// urlencoded body. The body is put back so the handler can still decode it.
func legacyToken(r *http.Request) string {
	if v := r.URL.Query().Get(FieldName); v != "" {
		return v
	}
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLegacyBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}
	if err != nil {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return values.Get(FieldName)
	case "application/json", "":
		var body struct {
			Token string `json:"csrf_token"`
		}
		if json.Unmarshal(raw, &body) != nil {
			return ""
		}
		return body.Token
	}
	return ""
}
