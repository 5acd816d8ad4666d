package memory

import (
	"context"
	"testing"

	"hu-quiz-engine/internal/domain"
)

func TestCatalogPublishAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore()

	if err := store.AddSubject(ctx, "math"); err != nil {
		t.Fatalf("add subject: %v", err)
	}
	// Idempotent re-add is a no-op, not an error.
	if err := store.AddSubject(ctx, "math"); err != nil {
		t.Fatalf("re-add subject: %v", err)
	}
	if err := store.AddChapter(ctx, "math", "algebra"); err != nil {
		t.Fatalf("add chapter: %v", err)
	}
	if err := store.AddChapter(ctx, "math", "algebra"); err != nil {
		t.Fatalf("re-add chapter: %v", err)
	}

	questions := []domain.Question{
		{Text: "1+1?", Options: []string{"1", "2"}, CorrectIndex: 1},
	}
	if err := store.PublishChapter(ctx, "math", "algebra", questions); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := store.GetChapterQuestions(ctx, domain.ChapterID("math", "algebra"))
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(got) != 1 || got[0].Text != "1+1?" {
		t.Fatalf("unexpected questions: %+v", got)
	}

	chapters, err := store.ListChapters(ctx, "math")
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0].QuestionCount != 1 {
		t.Fatalf("unexpected chapters: %+v", chapters)
	}
}

func TestCatalogPublishReplacesWholeList(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore()
	_ = store.AddSubject(ctx, "math")
	_ = store.AddChapter(ctx, "math", "algebra")

	first := []domain.Question{
		{Text: "old one", Options: []string{"a", "b"}, CorrectIndex: 0},
		{Text: "old two", Options: []string{"a", "b"}, CorrectIndex: 1},
	}
	if err := store.PublishChapter(ctx, "math", "algebra", first); err != nil {
		t.Fatalf("publish: %v", err)
	}

	second := []domain.Question{
		{Text: "new one", Options: []string{"x", "y"}, CorrectIndex: 0},
	}
	if err := store.PublishChapter(ctx, "math", "algebra", second); err != nil {
		t.Fatalf("republish: %v", err)
	}

	got, err := store.GetChapterQuestions(ctx, domain.ChapterID("math", "algebra"))
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new one" {
		t.Fatalf("expected full replacement, got %+v", got)
	}
}

func TestCatalogNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore()

	if _, err := store.GetChapterQuestions(ctx, "math/none"); err != domain.ErrChapterNotFound {
		t.Fatalf("expected chapter not found, got %v", err)
	}
	if err := store.AddChapter(ctx, "ghost", "c"); err != domain.ErrSubjectNotFound {
		t.Fatalf("expected subject not found, got %v", err)
	}
	if _, err := store.ListChapters(ctx, "ghost"); err != domain.ErrSubjectNotFound {
		t.Fatalf("expected subject not found, got %v", err)
	}
}
