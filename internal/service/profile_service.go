package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/refreshgate"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/AdamBeresnev/tourney-registration/internal/utils"
	"golang.org/x/oauth2"
)

// OsuAPI is the part of the osu! client the profile flows need.
type OsuAPI interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Me(ctx context.Context, accessToken string) (*provider.OsuUser, error)
}

// Profile is a user with the role set current at load time.
type Profile struct {
	User  *users.User
	Roles []string
}

type ProfileService struct {
	users       *store.UserStore
	credentials *CredentialService
	osu         OsuAPI
	gate        *refreshgate.Gate
	clock       clock.Clock
}

func NewProfileService(users *store.UserStore, credentials *CredentialService, osu OsuAPI, gate *refreshgate.Gate, clk clock.Clock) *ProfileService {
	return &ProfileService{users: users, credentials: credentials, osu: osu, gate: gate, clock: clk}
}

// CompleteLogin finishes the osu! authorization-code flow: it exchanges the
// code, stores the profile and credentials, and returns the fresh profile.
func (s *ProfileService) CompleteLogin(ctx context.Context, code string) (*Profile, error) {
	tok, err := s.osu.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Upstream("osu! token exchange failed", err)
	}

	me, err := s.osu.Me(ctx, tok.AccessToken)
	if err != nil {
		return nil, apperrors.Upstream("Fetching osu! profile failed", err)
	}

	user := userFromOsu(me)
	if err := s.users.UpsertOsuUser(ctx, user); err != nil {
		return nil, fmt.Errorf("store osu user: %w", err)
	}
	if err := s.credentials.SaveToken(ctx, user.UserID, users.ProviderOsu, tok); err != nil {
		return nil, fmt.Errorf("store osu credentials: %w", err)
	}

	return s.LoadProfile(ctx, user.UserID)
}

// RefreshProfile re-reads the subject's osu! profile, at most once per
// cooldown window. Concurrent calls for the same subject share one upstream
// round-trip and its outcome.
func (s *ProfileService) RefreshProfile(ctx context.Context, userID string) (*Profile, error) {
	if err := s.checkCooldown(ctx, userID); err != nil {
		return nil, err
	}

	// Waiters share this task, so it must not die with the first caller's request.
	taskCtx := context.WithoutCancel(ctx)

	return refreshgate.RunOncePerUser(s.gate, userID, func() (*Profile, error) {
		// A previous flight may have finished between the check above and now.
		if err := s.checkCooldown(taskCtx, userID); err != nil {
			return nil, err
		}

		me, err := s.fetchMe(taskCtx, userID)
		if err != nil {
			return nil, err
		}

		if err := s.users.UpsertOsuUser(taskCtx, userFromOsu(me)); err != nil {
			return nil, fmt.Errorf("store osu user: %w", err)
		}

		profile, err := s.LoadProfile(taskCtx, userID)
		if err != nil {
			return nil, err
		}

		if err := s.gate.MarkRefreshed(taskCtx, userID, s.clock.Now()); err != nil {
			return nil, err
		}
		return profile, nil
	})
}

func (s *ProfileService) checkCooldown(ctx context.Context, userID string) error {
	decision, err := s.gate.CheckCooldown(ctx, userID, s.clock.Now())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return apperrors.Throttled(decision.RetryAfterSeconds)
	}
	return nil
}

// fetchMe reads the profile with the stored token. An access token the
// provider rejects before its recorded expiry gets one forced refresh; if
// the new token is rejected as well the credential is dropped.
func (s *ProfileService) fetchMe(ctx context.Context, userID string) (*provider.OsuUser, error) {
	accessToken, err := s.credentials.EnsureFreshToken(ctx, userID, users.ProviderOsu)
	if err != nil {
		return nil, err
	}

	me, err := s.osu.Me(ctx, accessToken)
	if provider.IsUnauthorized(err) {
		accessToken, err = s.credentials.ForceRefresh(ctx, userID, users.ProviderOsu)
		if err != nil {
			return nil, err
		}
		me, err = s.osu.Me(ctx, accessToken)
		if provider.IsUnauthorized(err) {
			return nil, s.credentials.Revoke(ctx, userID, users.ProviderOsu, err)
		}
	}
	if err != nil {
		return nil, apperrors.Upstream("Fetching osu! profile failed", err)
	}
	return me, nil
}

func (s *ProfileService) LoadProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	roles, err := s.users.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return &Profile{User: user, Roles: roles}, nil
}

func userFromOsu(me *provider.OsuUser) *users.User {
	country := strings.ToUpper(strings.TrimSpace(me.CountryCode))
	if country == "" {
		country = users.DefaultCountryCode
	}
	return &users.User{
		UserID:      strconv.FormatInt(me.ID, 10),
		Username:    me.Username,
		CountryCode: country,
		AvatarURL:   utils.StringOrNil(me.AvatarURL),
		GlobalRank:  me.GlobalRank(),
		CountryRank: me.CountryRank(),
	}
}
