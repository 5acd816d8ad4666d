package engine

import (
	"context"
	"sort"
	"time"

	"hu-quiz-engine/internal/domain"
)

// TotalScore sums a user's score across all chapters, in-progress ones
// included. That matches the persisted semantics: points already earned count
// even before the chapter is finished.
func (e *Engine) TotalScore(ctx context.Context, userID string) (int, error) {
	return e.progress.TotalScore(ctx, userID)
}

// Leaderboard ranks users descending by total score. windowStart limits the
// aggregation to progress updated at or after that instant (zero time means
// all history); limit <= 0 returns every ranked user. Ranks are dense and
// 1-based; ties keep the store's stable user order. A store failure surfaces
// as-is rather than degrading to an empty board.
func (e *Engine) Leaderboard(ctx context.Context, windowStart time.Time, limit int) ([]domain.ScoreEntry, error) {
	sums, err := e.progress.ScoreSums(ctx, windowStart, limit)
	if err != nil {
		return nil, err
	}
	return rank(sums), nil
}

// LowestScorersReport is the explicitly named ascending view for admin use.
// It exists so nothing inherits "lowest score first" ordering by accident:
// every other leaderboard is descending.
func (e *Engine) LowestScorersReport(ctx context.Context, limit int) ([]domain.ScoreEntry, error) {
	sums, err := e.progress.ScoreSums(ctx, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sums, func(i, j int) bool {
		return sums[i].Total < sums[j].Total
	})
	if limit > 0 && len(sums) > limit {
		sums = sums[:limit]
	}
	return rank(sums), nil
}

// Profile reports one user's total score and dense global rank. A user with
// no scored activity gets rank 0.
func (e *Engine) Profile(ctx context.Context, userID string) (total, rankPos int, err error) {
	total, err = e.progress.TotalScore(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	entries, err := e.Leaderboard(ctx, time.Time{}, 0)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			return total, entry.Rank, nil
		}
	}
	return total, 0, nil
}

func rank(sums []domain.UserScore) []domain.ScoreEntry {
	entries := make([]domain.ScoreEntry, 0, len(sums))
	for i, s := range sums {
		entries = append(entries, domain.ScoreEntry{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			TotalScore:  s.Total,
			Rank:        i + 1,
		})
	}
	return entries
}
