package tournament

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StageLength is the fixed duration of every bracket round.
const StageLength = 7 * 24 * time.Hour

var ErrInvalidRounds = errors.New("rounds must be a JSON array of non-empty strings")

// ParseRounds decodes the stored round list. Order is significant: it is the
// chronological order of the stages.
func ParseRounds(raw string) ([]string, error) {
	var rounds []string
	if err := json.Unmarshal([]byte(raw), &rounds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRounds, err)
	}
	if rounds == nil {
		return nil, ErrInvalidRounds
	}
	for i, r := range rounds {
		if r == "" {
			return nil, fmt.Errorf("%w: round %d is empty", ErrInvalidRounds, i)
		}
	}
	return rounds, nil
}

// RegistrationStatusAt classifies the registration window at now.
// The window is half-open: start <= now < end.
func RegistrationStatusAt(cfg RegistrationConfig, now time.Time) *RegistrationStatus {
	start := cfg.Start.UTC()
	end := cfg.End.UTC()

	isActive := !now.Before(start) && now.Before(end)
	if cfg.OverrideActive != nil {
		isActive = *cfg.OverrideActive
	}

	return &RegistrationStatus{
		IsActive:       isActive,
		Start:          start,
		End:            end,
		OverrideReason: cfg.OverrideReason,
	}
}

// BracketStatusAt classifies the bracket at now given an already parsed round
// list. The bracket ends len(rounds) stages after its start.
func BracketStatusAt(cfg BracketConfig, rounds []string, now time.Time) *BracketStatus {
	start := cfg.Start.UTC()
	end := start.Add(time.Duration(len(rounds)) * StageLength)

	isActive := len(rounds) > 0 && !now.Before(start) && now.Before(end)
	if cfg.OverrideActive != nil {
		isActive = *cfg.OverrideActive
	}

	var currentRound *string
	if isActive && len(rounds) > 0 {
		name := rounds[RoundIndex(start, now, len(rounds))]
		currentRound = &name
	}

	// Operators can force a round name even outside the nominal window.
	if cfg.OverrideCurrentRound != nil && *cfg.OverrideCurrentRound != "" {
		name := *cfg.OverrideCurrentRound
		currentRound = &name
	}

	if rounds == nil {
		rounds = []string{}
	}

	return &BracketStatus{
		IsActive:     isActive,
		Start:        start,
		End:          end,
		CurrentRound: currentRound,
		Rounds:       rounds,
	}
}

// RoundIndex is floor((now - start) / StageLength) clamped to [0, count-1].
func RoundIndex(start, now time.Time, count int) int {
	if count <= 0 {
		return 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	idx := int(elapsed / StageLength)
	if idx > count-1 {
		idx = count - 1
	}
	return idx
}
