package session

import (
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-signing-0123456789"

func newTestCodec(t *testing.T, clk clock.Clock) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte(testSecret), DefaultTTL, clk)
	require.NoError(t, err)
	return codec
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, clock.NewFixed(now))

	input := Claims{
		Subject:     "12345",
		Username:    "mrekk",
		CountryCode: "AU",
		AvatarURL:   "https://a.ppy.sh/12345",
		Roles:       []string{"player", "captain"},
	}

	token, err := codec.Issue(input)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, input.Subject, claims.Subject)
	assert.Equal(t, input.Username, claims.Username)
	assert.Equal(t, input.CountryCode, claims.CountryCode)
	assert.Equal(t, input.AvatarURL, claims.AvatarURL)
	assert.Equal(t, input.Roles, claims.Roles)
	assert.Equal(t, now, claims.IssuedAt)
	assert.Equal(t, now.Add(DefaultTTL), claims.ExpiresAt)
}

func TestVerify_Expired(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clk)

	token, err := codec.Issue(Claims{Subject: "12345"})
	require.NoError(t, err)

	clk.Advance(DefaultTTL - time.Minute)
	_, err = codec.Verify(token)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSession)
}

func TestVerify_Tampered(t *testing.T) {
	codec := newTestCodec(t, clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	token, err := codec.Issue(Claims{Subject: "12345", Roles: []string{"player"}})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSession)
}

func TestVerify_WrongSecret(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clk)
	other, err := NewCodec([]byte(strings.Repeat("x", 32)), DefaultTTL, clk)
	require.NoError(t, err)

	token, err := other.Issue(Claims{Subject: "12345"})
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSession)
}

func TestVerify_Malformed(t *testing.T) {
	codec := newTestCodec(t, clock.System())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrInvalidSession, "token %q", token)
	}
}

func TestNewCodec_ShortSecret(t *testing.T) {
	_, err := NewCodec([]byte("short"), DefaultTTL, nil)
	assert.Error(t, err)
}

func TestIssue_RequiresSubject(t *testing.T) {
	codec := newTestCodec(t, clock.System())
	_, err := codec.Issue(Claims{Username: "nobody"})
	assert.Error(t, err)
}

func TestClaimsHasRole(t *testing.T) {
	claims := &Claims{Roles: []string{"player", "referee"}}
	assert.True(t, claims.HasRole("administrator", "referee"))
	assert.False(t, claims.HasRole("administrator"))
}
