package memory

import (
	"context"
	"testing"
	"time"

	"hu-quiz-engine/internal/domain"
)

func TestProgressGetOrCreateDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	p, err := store.GetOrCreate(ctx, "u1", "math/algebra")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if p.CurrentIndex != 0 || p.Score != 0 || p.Completed || len(p.Answers) != 0 {
		t.Fatalf("expected all-zero defaults, got %+v", p)
	}
}

func TestProgressConditionalSave(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	p, _ := store.GetOrCreate(ctx, "u1", "math/algebra")
	p.Answers = []int{1}
	p.CurrentIndex = 1
	p.Score = 1
	if err := store.Save(ctx, p, 0); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A second writer still holding the old read must be rejected.
	stale := domain.Progress{UserID: "u1", ChapterID: "math/algebra", CurrentIndex: 1, Score: 1, Answers: []int{2}}
	if err := store.Save(ctx, stale, 0); err != domain.ErrVersionConflict {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, _ := store.GetOrCreate(ctx, "u1", "math/algebra")
	if got.CurrentIndex != 1 || got.Answers[0] != 1 {
		t.Fatalf("conflicting save must not mutate, got %+v", got)
	}
}

func TestTotalScoreSumsAllChapters(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	save := func(chapter string, score, index int) {
		p, _ := store.GetOrCreate(ctx, "u1", chapter)
		p.Score = score
		p.CurrentIndex = index
		if err := store.Save(ctx, p, 0); err != nil {
			t.Fatalf("save %s: %v", chapter, err)
		}
	}
	save("math/algebra", 2, 3)
	save("math/calculus", 4, 4)

	total, err := store.TotalScore(ctx, "u1")
	if err != nil {
		t.Fatalf("total score: %v", err)
	}
	if total != 6 {
		t.Fatalf("expected 6, got %d", total)
	}
}

func TestScoreSumsOrderingAndWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewProgressStoreWithClock(func() time.Time { return now })

	seed := func(userID string, score int) {
		_ = store.UpsertUser(ctx, domain.User{ID: userID, DisplayName: userID})
		p, _ := store.GetOrCreate(ctx, userID, "math/algebra")
		p.Score = score
		p.CurrentIndex = score
		if err := store.Save(ctx, p, 0); err != nil {
			t.Fatalf("save %s: %v", userID, err)
		}
	}
	seed("A", 10)
	now = now.Add(time.Hour)
	seed("B", 30)
	now = now.Add(time.Hour)
	seed("C", 20)

	sums, err := store.ScoreSums(ctx, time.Time{}, 0)
	if err != nil {
		t.Fatalf("score sums: %v", err)
	}
	if len(sums) != 3 || sums[0].UserID != "B" || sums[1].UserID != "C" || sums[2].UserID != "A" {
		t.Fatalf("expected B, C, A, got %+v", sums)
	}

	// Window excludes A's older row.
	windowed, err := store.ScoreSums(ctx, now.Add(-90*time.Minute), 0)
	if err != nil {
		t.Fatalf("windowed sums: %v", err)
	}
	if len(windowed) != 2 || windowed[0].UserID != "B" || windowed[1].UserID != "C" {
		t.Fatalf("expected window B, C, got %+v", windowed)
	}

	limited, err := store.ScoreSums(ctx, time.Time{}, 1)
	if err != nil {
		t.Fatalf("limited sums: %v", err)
	}
	if len(limited) != 1 || limited[0].UserID != "B" {
		t.Fatalf("expected top entry B, got %+v", limited)
	}
}

func TestScoreSumsTiesKeepFirstContactOrder(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	for _, userID := range []string{"first", "second"} {
		p, _ := store.GetOrCreate(ctx, userID, "math/algebra")
		p.Score = 5
		p.CurrentIndex = 5
		if err := store.Save(ctx, p, 0); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	sums, err := store.ScoreSums(ctx, time.Time{}, 0)
	if err != nil {
		t.Fatalf("score sums: %v", err)
	}
	if sums[0].UserID != "first" || sums[1].UserID != "second" {
		t.Fatalf("ties must keep first-contact order, got %+v", sums)
	}
}
