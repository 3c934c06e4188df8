package tournament

import (
	"time"
)

type Tournament struct {
	ID        int64     `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"tournament_name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RegistrationConfig is the registration window of a tournament. A non-nil
// OverrideActive supersedes the window entirely.
type RegistrationConfig struct {
	TournamentID   int64     `db:"tournament_id"`
	Start          time.Time `db:"registration_start_utc"`
	End            time.Time `db:"registration_end_utc"`
	OverrideActive *bool     `db:"override_active"`
	OverrideReason *string   `db:"override_reason"`
}

// BracketConfig holds the bracket start and the raw JSON round list as stored.
type BracketConfig struct {
	TournamentID         int64     `db:"tournament_id"`
	Start                time.Time `db:"bracket_start_utc"`
	Rounds               string    `db:"rounds"`
	OverrideActive       *bool     `db:"override_active"`
	OverrideCurrentRound *string   `db:"override_current_round"`
}

type RegistrationStatus struct {
	IsActive       bool      `json:"isActive"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	OverrideReason *string   `json:"overrideReason"`
}

type BracketStatus struct {
	IsActive     bool      `json:"isActive"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	CurrentRound *string   `json:"currentRound,omitempty"`
	Rounds       []string  `json:"rounds"`
}

type Statuses struct {
	Registration *RegistrationStatus `json:"registration"`
	Bracket      *BracketStatus      `json:"bracket"`
}

type StatusResponse struct {
	ServerNow time.Time `json:"serverNow"`
	Statuses  Statuses  `json:"statuses"`
}
