package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
	"github.com/AdamBeresnev/tourney-registration/internal/tournament"
	"github.com/jmoiron/sqlx"
)

// TournamentService resolves tournaments and derives their lifecycle state.
// Every call reads fresh configuration; nothing is cached.
type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore) *TournamentService {
	return &TournamentService{db: db, store: store}
}

// ResolveTournament looks the tournament up by slug, or returns the most
// recently created one when slug is empty.
func (s *TournamentService) ResolveTournament(ctx context.Context, slug string) (*tournament.Tournament, error) {
	var (
		t   *tournament.Tournament
		err error
	)
	if slug == "" {
		t, err = s.store.GetLatestTournament(ctx)
	} else {
		t, err = s.store.GetTournamentBySlug(ctx, slug)
	}

	if errors.Is(err, sql.ErrNoRows) {
		if slug == "" {
			return nil, apperrors.NotFound("No tournament found")
		}
		return nil, apperrors.NotFound(fmt.Sprintf("Tournament %q not found", slug))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tournament: %w", err)
	}
	return t, nil
}

func (s *TournamentService) ComputeRegistrationStatus(ctx context.Context, tournamentID int64, now time.Time) (*tournament.RegistrationStatus, error) {
	cfg, err := s.store.GetRegistrationConfig(ctx, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ConfigMissing(fmt.Sprintf("No registration config for tournament %d", tournamentID))
	}
	if err != nil {
		return nil, fmt.Errorf("load registration config: %w", err)
	}
	return tournament.RegistrationStatusAt(*cfg, now), nil
}

// ComputeBracketStatus treats a malformed round list as empty, which leaves
// the bracket inactive unless an override says otherwise.
func (s *TournamentService) ComputeBracketStatus(ctx context.Context, tournamentID int64, now time.Time) (*tournament.BracketStatus, error) {
	cfg, err := s.store.GetBracketConfig(ctx, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ConfigMissing(fmt.Sprintf("No bracket config for tournament %d", tournamentID))
	}
	if err != nil {
		return nil, fmt.Errorf("load bracket config: %w", err)
	}

	rounds, err := tournament.ParseRounds(cfg.Rounds)
	if err != nil {
		slog.Warn("Malformed bracket rounds, treating as empty", "tournament_id", tournamentID, "error", err)
		rounds = nil
	}
	return tournament.BracketStatusAt(*cfg, rounds, now), nil
}

// GetStatuses returns both lifecycle states of the resolved tournament.
func (s *TournamentService) GetStatuses(ctx context.Context, slug string, now time.Time) (*tournament.StatusResponse, error) {
	t, err := s.ResolveTournament(ctx, slug)
	if err != nil {
		return nil, err
	}

	registration, err := s.ComputeRegistrationStatus(ctx, t.ID, now)
	if err != nil {
		return nil, err
	}

	bracket, err := s.ComputeBracketStatus(ctx, t.ID, now)
	if err != nil {
		return nil, err
	}

	return &tournament.StatusResponse{
		ServerNow: now.UTC(),
		Statuses: tournament.Statuses{
			Registration: registration,
			Bracket:      bracket,
		},
	}, nil
}

// SetRegistrationOverride sets or, with nil values, clears the operator override.
func (s *TournamentService) SetRegistrationOverride(ctx context.Context, slug string, active *bool, reason *string) error {
	t, err := s.ResolveTournament(ctx, slug)
	if err != nil {
		return err
	}
	err = s.store.SetRegistrationOverride(ctx, t.ID, active, reason)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ConfigMissing(fmt.Sprintf("No registration config for tournament %q", t.Slug))
	}
	return err
}

// SetBracketOverride does not check currentRound against the round list.
func (s *TournamentService) SetBracketOverride(ctx context.Context, slug string, active *bool, currentRound *string) error {
	t, err := s.ResolveTournament(ctx, slug)
	if err != nil {
		return err
	}
	err = s.store.SetBracketOverride(ctx, t.ID, active, currentRound)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ConfigMissing(fmt.Sprintf("No bracket config for tournament %q", t.Slug))
	}
	return err
}

// CheckIn records the subject's presence for a round. Repeating it is a no-op.
func (s *TournamentService) CheckIn(ctx context.Context, tournamentID int64, userID, round string, at time.Time) error {
	return s.store.CreateCheckIn(ctx, tournamentID, userID, round, at)
}

type TournamentDefinition struct {
	Slug              string
	Name              string
	RegistrationStart time.Time
	RegistrationEnd   time.Time
	BracketStart      time.Time
	Rounds            []string
}

func (d TournamentDefinition) validate() error {
	if strings.TrimSpace(d.Slug) == "" {
		return errors.New("slug is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%s: name is required", d.Slug)
	}
	if d.RegistrationEnd.Before(d.RegistrationStart) {
		return fmt.Errorf("%s: registration start must not be after end", d.Slug)
	}
	for i, r := range d.Rounds {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%s: round %d has an empty name", d.Slug, i)
		}
	}
	return nil
}

// SeedTournaments upserts every definition with its registration and bracket
// config in a single transaction. Running it twice leaves the same state.
func (s *TournamentService) SeedTournaments(ctx context.Context, defs []TournamentDefinition) error {
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range defs {
		id, err := s.store.UpsertTournament(ctx, tx, d.Slug, d.Name)
		if err != nil {
			return fmt.Errorf("upsert tournament %s: %w", d.Slug, err)
		}

		err = s.store.UpsertRegistrationConfig(ctx, tx, &tournament.RegistrationConfig{
			TournamentID: id,
			Start:        d.RegistrationStart,
			End:          d.RegistrationEnd,
		})
		if err != nil {
			return fmt.Errorf("upsert registration config %s: %w", d.Slug, err)
		}

		rounds := d.Rounds
		if rounds == nil {
			rounds = []string{}
		}
		raw, err := json.Marshal(rounds)
		if err != nil {
			return err
		}
		err = s.store.UpsertBracketConfig(ctx, tx, &tournament.BracketConfig{
			TournamentID: id,
			Start:        d.BracketStart,
			Rounds:       string(raw),
		})
		if err != nil {
			return fmt.Errorf("upsert bracket config %s: %w", d.Slug, err)
		}
	}

	return tx.Commit()
}
