package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/csrf"
	"github.com/AdamBeresnev/tourney-registration/internal/httputil"
	"github.com/AdamBeresnev/tourney-registration/internal/session"
	"github.com/AdamBeresnev/tourney-registration/internal/tournament"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/AdamBeresnev/tourney-registration/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "session"

type fakeResolver struct {
	tournaments  map[string]*tournament.Tournament
	registration *tournament.RegistrationStatus
	bracket      *tournament.BracketStatus
	resolveErr   error
	statusErr    error
	resolved     []string
}

func (f *fakeResolver) ResolveTournament(_ context.Context, slug string) (*tournament.Tournament, error) {
	f.resolved = append(f.resolved, slug)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if slug == "" {
		slug = "latest"
	}
	t, ok := f.tournaments[slug]
	if !ok {
		return nil, apperrors.NotFound("Tournament not found")
	}
	return t, nil
}

func (f *fakeResolver) ComputeRegistrationStatus(context.Context, int64, time.Time) (*tournament.RegistrationStatus, error) {
	return f.registration, f.statusErr
}

func (f *fakeResolver) ComputeBracketStatus(context.Context, int64, time.Time) (*tournament.BracketStatus, error) {
	return f.bracket, f.statusErr
}

type gateFixture struct {
	gate     *Gate
	codec    *session.Codec
	resolver *fakeResolver
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	codec, err := session.NewCodec([]byte(strings.Repeat("s", 32)), time.Hour, clk)
	require.NoError(t, err)

	resolver := &fakeResolver{
		tournaments: map[string]*tournament.Tournament{
			"latest":  {ID: 2, Slug: "latest"},
			"abc2026": {ID: 1, Slug: "abc2026"},
		},
		registration: &tournament.RegistrationStatus{IsActive: true},
		bracket:      &tournament.BracketStatus{IsActive: true, CurrentRound: utils.Ptr("QF"), Rounds: []string{"R16", "QF"}},
	}

	return &gateFixture{
		gate:     NewGate(codec, cookieName, csrf.NewGuard(false), resolver, clk),
		codec:    codec,
		resolver: resolver,
	}
}

func (f *gateFixture) authed(t *testing.T, req *http.Request, roles ...string) *http.Request {
	t.Helper()
	token, err := f.codec.Issue(session.Claims{Subject: "7", Username: "player", Roles: roles})
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorBody {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	f := newGateFixture(t)

	var seen *session.Claims
	h := f.gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "garbage"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, f.authed(t, httptest.NewRequest(http.MethodGet, "/auth/me", nil)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "7", seen.Subject)
}

func TestVerifyCSRF(t *testing.T) {
	f := newGateFixture(t)
	h := f.gate.VerifyCSRF(okHandler())

	tests := []struct {
		name   string
		method string
		cookie string
		header string
		want   int
	}{
		{"safe method skips check", http.MethodGet, "", "", http.StatusNoContent},
		{"matching", http.MethodPost, "tok", "tok", http.StatusNoContent},
		{"missing cookie", http.MethodPost, "", "tok", http.StatusForbidden},
		{"missing header", http.MethodPost, "tok", "", http.StatusForbidden},
		{"mismatch", http.MethodPost, "tok", "other", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/registration/register", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrf.HeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRegistrationOpen(t *testing.T) {
	tests := []struct {
		name        string
		status      *tournament.RegistrationStatus
		statusErr   error
		wantCode    int
		wantError   string
		wantMessage string
	}{
		{"open", &tournament.RegistrationStatus{IsActive: true}, nil, http.StatusNoContent, "", ""},
		{"closed by window", &tournament.RegistrationStatus{IsActive: false}, nil, http.StatusForbidden, CodeRegistrationClosed, "Registrations are closed."},
		{"closed by override", &tournament.RegistrationStatus{IsActive: false, OverrideReason: utils.Ptr("Paused, back soon")}, nil, http.StatusForbidden, CodeRegistrationClosed, "Paused, back soon"},
		{"config missing", nil, apperrors.ConfigMissing("no row"), http.StatusInternalServerError, CodeRegistrationCheckFailed, "Internal Server Error"},
		{"database down", nil, errors.New("disk I/O error"), http.StatusInternalServerError, CodeRegistrationCheckFailed, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t)
			f.resolver.registration = tt.status
			f.resolver.statusErr = tt.statusErr

			rec := httptest.NewRecorder()
			f.gate.RequireRegistrationOpen(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registration/register", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantError != "" {
				body := decodeBody(t, rec)
				assert.Equal(t, tt.wantError, body.Error)
				assert.Equal(t, tt.wantMessage, body.Message)
			}
		})
	}
}

func TestTournamentResolution(t *testing.T) {
	f := newGateFixture(t)
	h := f.gate.RequireRegistrationOpen(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registration/register?slug=abc2026", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registration/register?slug=unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec).Error)

	assert.Equal(t, []string{"abc2026", "unknown"}, f.resolver.resolved)

	f.resolver.resolveErr = errors.New("database is locked")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registration/register", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeRegistrationCheckFailed, decodeBody(t, rec).Error)
}

func TestAttachTournament_ResolvesOnce(t *testing.T) {
	f := newGateFixture(t)

	var attached *tournament.Tournament
	h := f.gate.AttachTournament(f.gate.RequireBracketActive(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached, _ = TournamentFromContext(r.Context())
		_, ok := BracketStatusFromContext(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bracket?slug=abc2026", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, attached)
	assert.Equal(t, int64(1), attached.ID)
	assert.Len(t, f.resolver.resolved, 1)
}

func TestRequireBracketActive(t *testing.T) {
	f := newGateFixture(t)
	f.resolver.bracket = &tournament.BracketStatus{IsActive: false, Rounds: []string{}}

	rec := httptest.NewRecorder()
	f.gate.RequireBracketActive(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bracket", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeBracketNotActive, decodeBody(t, rec).Error)

	f.resolver.statusErr = errors.New("boom")
	rec = httptest.NewRecorder()
	f.gate.RequireBracketActive(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bracket", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeBracketCheckFailed, decodeBody(t, rec).Error)
}

func TestRequireRound(t *testing.T) {
	tests := []struct {
		name        string
		bracket     *tournament.BracketStatus
		expected    string
		wantCode    int
		wantCurrent *string
	}{
		{"current round matches", &tournament.BracketStatus{IsActive: true, CurrentRound: utils.Ptr("QF")}, "QF", http.StatusNoContent, nil},
		{"different round", &tournament.BracketStatus{IsActive: true, CurrentRound: utils.Ptr("QF")}, "SF", http.StatusForbidden, utils.Ptr("QF")},
		{"inactive with forced round", &tournament.BracketStatus{IsActive: false, CurrentRound: utils.Ptr("SF")}, "SF", http.StatusForbidden, utils.Ptr("SF")},
		{"inactive", &tournament.BracketStatus{IsActive: false}, "R16", http.StatusForbidden, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t)
			f.resolver.bracket = tt.bracket

			rec := httptest.NewRecorder()
			f.gate.RequireRound(tt.expected)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkin", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusForbidden {
				body := decodeBody(t, rec)
				assert.Equal(t, CodeWrongRound, body.Error)
				require.NotNil(t, body.Expected)
				assert.Equal(t, tt.expected, *body.Expected)
				assert.Equal(t, tt.wantCurrent, body.Current)
			}
		})
	}
}

func TestRequireRoundParam(t *testing.T) {
	f := newGateFixture(t)

	r := chi.NewRouter()
	r.With(f.gate.RequireRoundParam("round")).Post("/bracket/rounds/{round}/checkin", okHandler().ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bracket/rounds/QF/checkin", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bracket/rounds/F/checkin", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	f := newGateFixture(t)
	h := f.gate.RequireAuth(f.gate.RequireRole(users.RoleAdministrator, users.RoleOrganiser)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, f.authed(t, httptest.NewRequest(http.MethodPut, "/admin", nil), "player"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, f.authed(t, httptest.NewRequest(http.MethodPut, "/admin", nil), "player", "organiser"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	f.gate.RequireRole(users.RoleAdministrator)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
