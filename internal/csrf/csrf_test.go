package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func newRequest(cookie, header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/registration/register", nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	if header != "" {
		r.Header.Set(HeaderName, header)
	}
	return r
}

func TestCheck(t *testing.T) {
	token := NewToken()

	testCases := []struct {
		name      string
		cookie    string
		header    string
		expectErr bool
	}{
		{name: "matching", cookie: token, header: token},
		{name: "missing cookie", header: token, expectErr: true},
		{name: "missing header", cookie: token, expectErr: true},
		{name: "mismatch", cookie: token, header: NewToken(), expectErr: true},
		{name: "prefix only", cookie: token, header: token[:10], expectErr: true},
	}

	guard := NewGuard(false)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Check(newRequest(tc.cookie, tc.header))
			if tc.expectErr {
				assert.ErrorIs(t, err, apperrors.ErrForbidden)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheck_LegacyFields(t *testing.T) {
	token := NewToken()

	form := url.Values{FieldName: {token}}
	newFormRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/registration/register", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		return r
	}

	assert.ErrorIs(t, NewGuard(false).Check(newFormRequest()), apperrors.ErrForbidden)
	assert.NoError(t, NewGuard(true).Check(newFormRequest()))

	r := httptest.NewRequest(http.MethodPost, "/registration/register?csrf_token="+token, nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	assert.NoError(t, NewGuard(true).Check(r))
}

func TestCheck_LegacyJSONBodyIsKept(t *testing.T) {
	token := NewToken()
	body := `{"csrf_token":"` + token + `","read_rules":true}`

	r := httptest.NewRequest(http.MethodPost, "/registration/register", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	assert.NoError(t, NewGuard(true).Check(r))

	rest, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	assert.Equal(t, body, string(rest))

	r = httptest.NewRequest(http.MethodPost, "/registration/register", strings.NewReader(`{"csrf_token":"other"}`))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	assert.ErrorIs(t, NewGuard(true).Check(r), apperrors.ErrForbidden)
}

func TestNewTokenIsRandom(t *testing.T) {
	assert.NotEqual(t, NewToken(), NewToken())
}
