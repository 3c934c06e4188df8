package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/tournament"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

const (
	getTournamentBySlugQuery = `SELECT id, slug, tournament_name, created_at FROM tournaments WHERE slug = ? LIMIT 1`
	getLatestTournamentQuery = `SELECT id, slug, tournament_name, created_at FROM tournaments ORDER BY id DESC LIMIT 1`
	upsertTournamentQuery    = `
		INSERT INTO tournaments (slug, tournament_name) VALUES (?, ?)
		ON CONFLICT (slug) DO UPDATE SET tournament_name = excluded.tournament_name
		RETURNING id
	`
	getRegistrationConfigQuery = `
		SELECT tournament_id, registration_start_utc, registration_end_utc, override_active, override_reason
		FROM tournament_registration
		WHERE tournament_id = ?
		LIMIT 1
	`
	upsertRegistrationConfigQuery = `
		INSERT INTO tournament_registration (tournament_id, registration_start_utc, registration_end_utc, override_active, override_reason)
		VALUES (:tournament_id, :registration_start_utc, :registration_end_utc, :override_active, :override_reason)
		ON CONFLICT (tournament_id) DO UPDATE SET
			registration_start_utc = excluded.registration_start_utc,
			registration_end_utc = excluded.registration_end_utc,
			override_active = excluded.override_active,
			override_reason = excluded.override_reason
	`
	setRegistrationOverrideQuery = `
		UPDATE tournament_registration
		SET override_active = ?, override_reason = ?
		WHERE tournament_id = ?
	`
	getBracketConfigQuery = `
		SELECT tournament_id, bracket_start_utc, rounds, override_active, override_current_round
		FROM tournament_bracket_config
		WHERE tournament_id = ?
		LIMIT 1
	`
	upsertBracketConfigQuery = `
		INSERT INTO tournament_bracket_config (tournament_id, bracket_start_utc, rounds, override_active, override_current_round)
		VALUES (:tournament_id, :bracket_start_utc, :rounds, :override_active, :override_current_round)
		ON CONFLICT (tournament_id) DO UPDATE SET
			bracket_start_utc = excluded.bracket_start_utc,
			rounds = excluded.rounds,
			override_active = excluded.override_active,
			override_current_round = excluded.override_current_round
	`
	setBracketOverrideQuery = `
		UPDATE tournament_bracket_config
		SET override_active = ?, override_current_round = ?
		WHERE tournament_id = ?
	`
	createCheckInQuery = `
		INSERT INTO bracket_checkins (tournament_id, user_id, round_name, checked_in_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tournament_id, user_id, round_name) DO NOTHING
	`
	hasCheckInQuery = `
		SELECT EXISTS (
			SELECT 1 FROM bracket_checkins WHERE tournament_id = ? AND user_id = ? AND round_name = ?
		)
	`
)

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) GetTournamentBySlug(ctx context.Context, slug string) (*tournament.Tournament, error) {
	var t tournament.Tournament
	if err := s.db.GetContext(ctx, &t, getTournamentBySlugQuery, slug); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetLatestTournament returns the most recently created tournament.
func (s *TournamentStore) GetLatestTournament(ctx context.Context) (*tournament.Tournament, error) {
	var t tournament.Tournament
	if err := s.db.GetContext(ctx, &t, getLatestTournamentQuery); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) UpsertTournament(ctx context.Context, tx *sqlx.Tx, slug, name string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, upsertTournamentQuery, slug, name)
	return id, err
}

func (s *TournamentStore) GetRegistrationConfig(ctx context.Context, tournamentID int64) (*tournament.RegistrationConfig, error) {
	var cfg tournament.RegistrationConfig
	if err := s.db.GetContext(ctx, &cfg, getRegistrationConfigQuery, tournamentID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *TournamentStore) UpsertRegistrationConfig(ctx context.Context, tx *sqlx.Tx, cfg *tournament.RegistrationConfig) error {
	row := *cfg
	row.Start = row.Start.UTC()
	row.End = row.End.UTC()
	_, err := tx.NamedExecContext(ctx, upsertRegistrationConfigQuery, row)
	return err
}

// SetRegistrationOverride returns sql.ErrNoRows when the tournament has no
// registration config.
func (s *TournamentStore) SetRegistrationOverride(ctx context.Context, tournamentID int64, active *bool, reason *string) error {
	res, err := s.db.ExecContext(ctx, setRegistrationOverrideQuery, active, reason, tournamentID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *TournamentStore) GetBracketConfig(ctx context.Context, tournamentID int64) (*tournament.BracketConfig, error) {
	var cfg tournament.BracketConfig
	if err := s.db.GetContext(ctx, &cfg, getBracketConfigQuery, tournamentID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *TournamentStore) UpsertBracketConfig(ctx context.Context, tx *sqlx.Tx, cfg *tournament.BracketConfig) error {
	row := *cfg
	row.Start = row.Start.UTC()
	_, err := tx.NamedExecContext(ctx, upsertBracketConfigQuery, row)
	return err
}

func (s *TournamentStore) SetBracketOverride(ctx context.Context, tournamentID int64, active *bool, currentRound *string) error {
	res, err := s.db.ExecContext(ctx, setBracketOverrideQuery, active, currentRound, tournamentID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *TournamentStore) CreateCheckIn(ctx context.Context, tournamentID int64, userID, round string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, createCheckInQuery, tournamentID, userID, round, at.UTC())
	return err
}

func (s *TournamentStore) HasCheckIn(ctx context.Context, tournamentID int64, userID, round string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, hasCheckInQuery, tournamentID, userID, round)
	return exists, err
}
