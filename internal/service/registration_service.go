package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/tourney-registration/internal/store"
)

// RegistrationError is a rejected registration request the player can fix.
type RegistrationError struct {
	Code    string
	Message string
}

func (e *RegistrationError) Error() string {
	return e.Message
}

var (
	ErrRulesNotAccepted = &RegistrationError{Code: "RULES_NOT_ACCEPTED", Message: "You must accept the rules to register."}
	ErrAccountNotFound  = &RegistrationError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found, please log in again."}
	ErrDiscordNotLinked = &RegistrationError{Code: "DISCORD_NOT_LINKED", Message: "Link your Discord account before registering."}
)

type RegistrationService struct {
	users *store.UserStore
}

func NewRegistrationService(users *store.UserStore) *RegistrationService {
	return &RegistrationService{users: users}
}

func (s *RegistrationService) Register(ctx context.Context, userID string, readRules, wantsCaptain bool) error {
	if !readRules {
		return ErrRulesNotAccepted
	}

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user.DiscordID == nil {
		return ErrDiscordNotLinked
	}

	return s.users.SetRegistration(ctx, userID, true, wantsCaptain)
}

func (s *RegistrationService) Unregister(ctx context.Context, userID string) error {
	err := s.users.SetRegistration(ctx, userID, false, false)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	return err
}
