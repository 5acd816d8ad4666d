package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hu-quiz-engine/internal/domain"
)

// ProgressStore is an in-memory implementation of engine.ProgressStore.
type ProgressStore struct {
	mu    sync.RWMutex
	clock func() time.Time
	users map[string]domain.User
	// userOrder preserves first-contact order; leaderboard ties resolve by it.
	userOrder []string
	rows      map[string]domain.Progress
}

func NewProgressStore() *ProgressStore {
	return NewProgressStoreWithClock(time.Now)
}

// NewProgressStoreWithClock allows deterministic timestamps in tests.
func NewProgressStoreWithClock(clock func() time.Time) *ProgressStore {
	return &ProgressStore{
		clock: clock,
		users: make(map[string]domain.User),
		rows:  make(map[string]domain.Progress),
	}
}

func rowKey(userID, chapterID string) string {
	return userID + "|" + chapterID
}

func (s *ProgressStore) GetOrCreate(_ context.Context, userID, chapterID string) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey(userID, chapterID)
	if row, ok := s.rows[key]; ok {
		return copyProgress(row), nil
	}
	row := domain.Progress{UserID: userID, ChapterID: chapterID, UpdatedAt: s.clock()}
	s.rows[key] = row
	s.noteUserLocked(userID)
	return copyProgress(row), nil
}

func (s *ProgressStore) Save(_ context.Context, p domain.Progress, expectedIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey(p.UserID, p.ChapterID)
	current := 0
	if row, ok := s.rows[key]; ok {
		current = row.CurrentIndex
	}
	if current != expectedIndex {
		return domain.ErrVersionConflict
	}

	p.UpdatedAt = s.clock()
	s.rows[key] = copyProgress(p)
	s.noteUserLocked(p.UserID)
	return nil
}

func (s *ProgressStore) UpsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteUserLocked(u.ID)
	s.users[u.ID] = u
	return nil
}

func (s *ProgressStore) TotalScore(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, row := range s.rows {
		if row.UserID == userID {
			total += row.Score
		}
	}
	return total, nil
}

func (s *ProgressStore) ScoreSums(_ context.Context, since time.Time, limit int) ([]domain.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	active := make(map[string]bool)
	for _, row := range s.rows {
		if !since.IsZero() && row.UpdatedAt.Before(since) {
			continue
		}
		totals[row.UserID] += row.Score
		active[row.UserID] = true
	}

	sums := make([]domain.UserScore, 0, len(active))
	for _, userID := range s.userOrder {
		if !active[userID] {
			continue
		}
		name := userID
		if user, ok := s.users[userID]; ok && user.DisplayName != "" {
			name = user.DisplayName
		}
		sums = append(sums, domain.UserScore{UserID: userID, DisplayName: name, Total: totals[userID]})
	}

	sort.SliceStable(sums, func(i, j int) bool {
		return sums[i].Total > sums[j].Total
	})
	if limit > 0 && len(sums) > limit {
		sums = sums[:limit]
	}
	return sums, nil
}

func (s *ProgressStore) noteUserLocked(userID string) {
	for _, id := range s.userOrder {
		if id == userID {
			return
		}
	}
	s.userOrder = append(s.userOrder, userID)
}

func copyProgress(p domain.Progress) domain.Progress {
	out := p
	out.Answers = append([]int(nil), p.Answers...)
	return out
}
