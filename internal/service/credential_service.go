package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"golang.org/x/oauth2"
)

// tokenExpirySkew refreshes slightly early so a token does not expire in flight.
const tokenExpirySkew = time.Minute

// defaultTokenLifetime is assumed when a provider omits expires_in.
const defaultTokenLifetime = time.Hour

// TokenRefresher performs a refresh-token grant against one provider.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// CredentialService keeps delegated provider tokens fresh.
type CredentialService struct {
	store      *store.UserStore
	refreshers map[users.Provider]TokenRefresher
	clock      clock.Clock
}

func NewCredentialService(store *store.UserStore, clk clock.Clock, refreshers map[users.Provider]TokenRefresher) *CredentialService {
	return &CredentialService{store: store, refreshers: refreshers, clock: clk}
}

// SaveToken stores tok for the subject. An empty refresh token keeps the
// previously stored one.
func (s *CredentialService) SaveToken(ctx context.Context, userID string, prov users.Provider, tok *oauth2.Token) error {
	now := s.clock.Now()

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		existing, err := s.store.GetCredential(ctx, userID, prov)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultTokenLifetime)
	}

	return s.store.UpsertCredential(ctx, &users.Credential{
		UserID:       userID,
		Provider:     prov,
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		IssuedAt:     now,
	})
}

// EnsureFreshToken returns a usable access token, refreshing and persisting
// it first when the stored one has expired. A refresh token rejected by the
// provider deletes the record and yields ReauthRequired; any other refresh
// failure is Upstream.
func (s *CredentialService) EnsureFreshToken(ctx context.Context, userID string, prov users.Provider) (string, error) {
	cred, err := s.load(ctx, userID, prov)
	if err != nil {
		return "", err
	}
	if !cred.Expired(s.clock.Now(), tokenExpirySkew) {
		return cred.AccessToken, nil
	}
	return s.refresh(ctx, cred)
}

// ForceRefresh runs the refresh-token grant regardless of the stored expiry,
// for access tokens the provider revoked early. Failures are classified as in
// EnsureFreshToken.
func (s *CredentialService) ForceRefresh(ctx context.Context, userID string, prov users.Provider) (string, error) {
	cred, err := s.load(ctx, userID, prov)
	if err != nil {
		return "", err
	}
	return s.refresh(ctx, cred)
}

func (s *CredentialService) load(ctx context.Context, userID string, prov users.Provider) (*users.Credential, error) {
	cred, err := s.store.GetCredential(ctx, userID, prov)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ReauthRequired(fmt.Sprintf("No stored %s credentials", prov), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s credentials: %w", prov, err)
	}
	return cred, nil
}

func (s *CredentialService) refresh(ctx context.Context, cred *users.Credential) (string, error) {
	userID, prov := cred.UserID, cred.Provider

	refresher, ok := s.refreshers[prov]
	if !ok {
		return "", apperrors.Upstream(fmt.Sprintf("No token refresher for %s", prov), nil)
	}
	if cred.RefreshToken == "" {
		return "", s.forget(ctx, userID, prov, nil)
	}

	tok, err := refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if provider.IsInvalidGrant(err) {
			return "", s.forget(ctx, userID, prov, err)
		}
		return "", apperrors.Upstream(fmt.Sprintf("Refreshing %s token failed", prov), err)
	}

	if err := s.SaveToken(ctx, userID, prov, tok); err != nil {
		return "", fmt.Errorf("store refreshed %s credentials: %w", prov, err)
	}
	return tok.AccessToken, nil
}

// Revoke deletes the credential after the provider rejected a token that was
// just refreshed, and reports ReauthRequired.
func (s *CredentialService) Revoke(ctx context.Context, userID string, prov users.Provider, cause error) error {
	return s.forget(ctx, userID, prov, cause)
}

func (s *CredentialService) forget(ctx context.Context, userID string, prov users.Provider, cause error) error {
	if err := s.store.DeleteCredential(ctx, userID, prov); err != nil {
		return fmt.Errorf("delete revoked %s credentials: %w", prov, err)
	}
	return apperrors.ReauthRequired(fmt.Sprintf("The %s session has expired, please log in again", prov), cause)
}

// Forget drops every stored credential of the subject, e.g. on logout.
func (s *CredentialService) Forget(ctx context.Context, userID string) error {
	return s.store.DeleteCredentials(ctx, userID)
}

func (s *CredentialService) ForgetProvider(ctx context.Context, userID string, prov users.Provider) error {
	return s.store.DeleteCredential(ctx, userID, prov)
}
