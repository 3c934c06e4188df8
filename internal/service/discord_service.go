package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/AdamBeresnev/tourney-registration/internal/utils"
	"github.com/markbates/goth"
	"golang.org/x/oauth2"
)

type DiscordService struct {
	users       *store.UserStore
	credentials *CredentialService
}

func NewDiscordService(users *store.UserStore, credentials *CredentialService) *DiscordService {
	return &DiscordService{users: users, credentials: credentials}
}

// Link attaches the Discord identity to an existing osu! account and stores
// its tokens.
func (s *DiscordService) Link(ctx context.Context, userID string, discordUser goth.User) (*users.User, error) {
	username := discordUser.NickName
	if username == "" {
		username = discordUser.Name
	}

	err := s.users.SetDiscord(ctx, userID,
		utils.StringOrNil(discordUser.UserID),
		utils.StringOrNil(username),
		utils.StringOrNil(discordUser.AvatarURL),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("link discord: %w", err)
	}

	err = s.credentials.SaveToken(ctx, userID, users.ProviderDiscord, &oauth2.Token{
		AccessToken:  discordUser.AccessToken,
		RefreshToken: discordUser.RefreshToken,
		Expiry:       discordUser.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("store discord credentials: %w", err)
	}

	return s.users.GetUser(ctx, userID)
}

func (s *DiscordService) Unlink(ctx context.Context, userID string) error {
	if err := s.credentials.ForgetProvider(ctx, userID, users.ProviderDiscord); err != nil {
		return fmt.Errorf("delete discord credentials: %w", err)
	}
	err := s.users.SetDiscord(ctx, userID, nil, nil, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("Account not found")
	}
	return err
}
