package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/refreshgate"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func createPlayer(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	err := store.NewUserStore(db).UpsertOsuUser(context.Background(), &users.User{
		UserID:      id,
		Username:    "player" + id,
		CountryCode: "DE",
	})
	require.NoError(t, err)
}

func invalidGrantError() error {
	return &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest},
		ErrorCode: "invalid_grant",
	}
}

// fakeRefresher hands out sequential tokens, or err when set.
type fakeRefresher struct {
	mu     sync.Mutex
	calls  int
	err    error
	expiry time.Time
	keepRT bool
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tok := &oauth2.Token{AccessToken: "access-refreshed", Expiry: f.expiry}
	if !f.keepRT {
		tok.RefreshToken = "refresh-rotated"
	}
	return tok, nil
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeOsu serves a fixed profile. meDelay widens the window in which
// concurrent refreshes overlap; revoked is an access token answered with 401.
type fakeOsu struct {
	user      provider.OsuUser
	token     *oauth2.Token
	meErr     error
	revoked   string
	meDelay   time.Duration
	meCalls   atomic.Int32
	lastToken atomic.Value
}

func (f *fakeOsu) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	return f.token, nil
}

func (f *fakeOsu) Me(_ context.Context, accessToken string) (*provider.OsuUser, error) {
	f.meCalls.Add(1)
	f.lastToken.Store(accessToken)
	if f.meDelay > 0 {
		time.Sleep(f.meDelay)
	}
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.revoked != "" && accessToken == f.revoked {
		return nil, &provider.APIError{StatusCode: http.StatusUnauthorized, Body: `{"authentication":"basic"}`}
	}
	u := f.user
	return &u, nil
}

// staleCooldownStore misses on its first read, as if another flight marked
// the subject refreshed right after the caller looked.
type staleCooldownStore struct {
	*refreshgate.MemoryStore
	reads atomic.Int32
}

func (s *staleCooldownStore) LastRefresh(ctx context.Context, subjectID string) (time.Time, bool, error) {
	if s.reads.Add(1) == 1 {
		return time.Time{}, false, nil
	}
	return s.MemoryStore.LastRefresh(ctx, subjectID)
}

func (f *fakeOsu) UserByID(_ context.Context, userID string) (*provider.OsuUser, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	u := f.user
	return &u, nil
}
