package ws

import (
	"strings"
	"testing"

	"hu-quiz-engine/internal/domain"
)

func TestQuestionText(t *testing.T) {
	q := domain.Question{Text: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectIndex: 1}
	text := RenderText(domain.RenderAction{
		Kind:          domain.RenderShowQuestion,
		QuestionIndex: 2,
		Question:      &q,
		Total:         5,
	})
	if !strings.HasPrefix(text, "Question 3/5") {
		t.Fatalf("expected 1-based position, got %q", text)
	}
	if !strings.Contains(text, "1. 3") || !strings.Contains(text, "2. 4") {
		t.Fatalf("expected numbered options, got %q", text)
	}
}

func TestCompletionTextPercentOneDecimal(t *testing.T) {
	text := RenderText(domain.RenderAction{
		Kind:    domain.RenderShowCompletion,
		Score:   2,
		Total:   3,
		Percent: domain.Percent(2, 3),
		Band:    domain.BandFor(2, 3),
	})
	if !strings.Contains(text, "66.7%") {
		t.Fatalf("expected one-decimal percent, got %q", text)
	}
	if !strings.Contains(text, "Good job") {
		t.Fatalf("expected good band message, got %q", text)
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(0, 4); strings.Contains(got, "█") {
		t.Fatalf("expected empty bar, got %q", got)
	}
	if got := ProgressBar(2, 4); strings.Count(got, "█") != 5 {
		t.Fatalf("expected half-filled bar, got %q", got)
	}
	if got := ProgressBar(4, 4); strings.Count(got, "░") != 0 {
		t.Fatalf("expected full bar, got %q", got)
	}
	if got := ProgressBar(0, 0); strings.Count(got, "░") != 10 {
		t.Fatalf("expected empty bar for zero total, got %q", got)
	}
}
