package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/provider"
	"github.com/AdamBeresnev/tourney-registration/internal/store"
)

// DefaultRankPace spaces consecutive osu! API calls during a rank freeze.
const DefaultRankPace = 100 * time.Millisecond

type RankLookup interface {
	UserByID(ctx context.Context, userID string) (*provider.OsuUser, error)
}

type FreezeResult struct {
	Updated int
	Failed  int
}

type RankService struct {
	users *store.UserStore
	osu   RankLookup
	pace  time.Duration
}

func NewRankService(users *store.UserStore, osu RankLookup, pace time.Duration) *RankService {
	return &RankService{users: users, osu: osu, pace: pace}
}

// FreezeRanks snapshots the current osu! ranks of every registered player.
// A failed lookup is logged and skipped.
func (s *RankService) FreezeRanks(ctx context.Context) (FreezeResult, error) {
	var result FreezeResult

	players, err := s.users.ListRegisteredUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("list registered users: %w", err)
	}

	for i, player := range players {
		if i > 0 && s.pace > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.pace):
			}
		}

		osuUser, err := s.osu.UserByID(ctx, player.UserID)
		if err != nil {
			slog.Warn("Rank lookup failed", "user_id", player.UserID, "error", err)
			result.Failed++
			continue
		}

		if err := s.users.UpdateRanks(ctx, player.UserID, osuUser.GlobalRank(), osuUser.CountryRank()); err != nil {
			slog.Warn("Rank update failed", "user_id", player.UserID, "error", err)
			result.Failed++
			continue
		}
		result.Updated++
	}

	return result, nil
}
