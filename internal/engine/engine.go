package engine

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"hu-quiz-engine/internal/domain"
)

// CatalogStore holds subjects, chapters, and published question lists.
// PublishChapter must replace any prior list atomically: readers never
// observe a partial list, and a failed publish leaves the old list intact.
type CatalogStore interface {
	AddSubject(ctx context.Context, name string) error
	AddChapter(ctx context.Context, subject, name string) error
	PublishChapter(ctx context.Context, subject, chapter string, questions []domain.Question) error
	GetChapterQuestions(ctx context.Context, chapterID string) ([]domain.Question, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	ListChapters(ctx context.Context, subject string) ([]domain.Chapter, error)
}

// ProgressStore is the source of truth for session state. Save is the only
// mutation path and always persists the full record; expectedIndex is the
// CurrentIndex of the row the caller's decision was read from, and a store
// that supports conditional writes must reject the save with
// domain.ErrVersionConflict when the persisted row has moved past it.
type ProgressStore interface {
	GetOrCreate(ctx context.Context, userID, chapterID string) (domain.Progress, error)
	Save(ctx context.Context, p domain.Progress, expectedIndex int) error
	UpsertUser(ctx context.Context, u domain.User) error
	TotalScore(ctx context.Context, userID string) (int, error)
	// ScoreSums returns per-user score totals over rows updated at or after
	// since (zero time means all history), ordered descending by total with
	// ties in stable user order. limit <= 0 returns everything.
	ScoreSums(ctx context.Context, since time.Time, limit int) ([]domain.UserScore, error)
}

// Engine is the quiz session state machine plus the read-side aggregators.
// All mutations for one (user, chapter) key run serialized under a per-key
// lock, closing the double-tap race on a rendered question.
type Engine struct {
	catalog  CatalogStore
	progress ProgressStore
	locks    keyedLocks
}

func New(catalog CatalogStore, progress ProgressStore) *Engine {
	return &Engine{catalog: catalog, progress: progress}
}

// RegisterUser creates or refreshes a user on first contact.
func (e *Engine) RegisterUser(ctx context.Context, u domain.User) error {
	return e.progress.UpsertUser(ctx, u)
}

// ListSubjects exposes catalog data for menu rendering.
func (e *Engine) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return e.catalog.ListSubjects(ctx)
}

// ListChapters exposes a subject's chapters for menu rendering.
func (e *Engine) ListChapters(ctx context.Context, subject string) ([]domain.Chapter, error) {
	return e.catalog.ListChapters(ctx, subject)
}

// PublishChapter validates a question set and, if valid, atomically replaces
// the chapter's question list. Subject and chapter are created idempotently
// on the way in. An invalid set rejects the whole publish and any previously
// published list stays authoritative.
func (e *Engine) PublishChapter(ctx context.Context, subject, chapter string, questions []domain.Question) error {
	if err := domain.ValidateQuestionSet(questions); err != nil {
		return err
	}
	if err := e.catalog.AddSubject(ctx, subject); err != nil {
		return err
	}
	if err := e.catalog.AddChapter(ctx, subject, chapter); err != nil {
		return err
	}
	return e.catalog.PublishChapter(ctx, subject, chapter, questions)
}

// StartOrResume loads the user's position in a chapter and decides what to
// render next. A completed chapter yields the retake offer without mutating
// anything, so the call is safe to repeat. A chapter published with zero
// questions counts as immediately completed at 0/0.
func (e *Engine) StartOrResume(ctx context.Context, userID, chapterID string) (domain.RenderAction, error) {
	unlock := e.locks.lock(userID + "|" + chapterID)
	defer unlock()

	questions, err := e.catalog.GetChapterQuestions(ctx, chapterID)
	if err != nil {
		return domain.RenderAction{}, err
	}

	p, err := e.progress.GetOrCreate(ctx, userID, chapterID)
	if err != nil {
		return domain.RenderAction{}, err
	}

	if p.Completed || p.CurrentIndex >= len(questions) {
		return domain.RenderAction{
			Kind:      domain.RenderOfferRetake,
			ChapterID: chapterID,
			Score:     p.Score,
			Total:     len(questions),
			Percent:   domain.Percent(p.Score, len(questions)),
			Band:      domain.BandFor(p.Score, len(questions)),
		}, nil
	}

	p.PromptRef = e.newPromptRef(chapterID, p.CurrentIndex)
	if err := e.progress.Save(ctx, p, p.CurrentIndex); err != nil {
		return domain.RenderAction{}, err
	}
	return e.showQuestion(chapterID, questions, p), nil
}

// SubmitAnswer scores an answer exactly once. Only the next expected question
// index is accepted; a resubmission of an already-answered index or a press on
// a question that has since advanced is rejected with ErrStaleAnswer and
// mutates nothing. Acceptance appends the answer, advances the index, bumps
// the score when correct, and marks completion, all in a single persisted write.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, chapterID string, questionIndex, optionIndex int) (domain.AnswerOutcome, error) {
	unlock := e.locks.lock(userID + "|" + chapterID)
	defer unlock()

	questions, err := e.catalog.GetChapterQuestions(ctx, chapterID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if questionIndex < 0 || questionIndex >= len(questions) {
		return domain.AnswerOutcome{}, domain.ErrQuestionNotFound
	}
	question := questions[questionIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.AnswerOutcome{}, domain.ErrOptionNotFound
	}

	p, err := e.progress.GetOrCreate(ctx, userID, chapterID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if questionIndex != len(p.Answers) {
		return domain.AnswerOutcome{}, domain.ErrStaleAnswer
	}

	expected := p.CurrentIndex
	correct := optionIndex == question.CorrectIndex
	p.Answers = append(p.Answers, optionIndex)
	p.CurrentIndex++
	if correct {
		p.Score++
	}
	if p.CurrentIndex == len(questions) {
		p.Completed = true
		p.PromptRef = ""
	} else {
		p.PromptRef = e.newPromptRef(chapterID, p.CurrentIndex)
	}

	if err := e.progress.Save(ctx, p, expected); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			// A concurrent submission landed first; this one scored nothing.
			return domain.AnswerOutcome{}, domain.ErrStaleAnswer
		}
		return domain.AnswerOutcome{}, err
	}

	outcome := domain.AnswerOutcome{
		Correct:            correct,
		CorrectOptionIndex: question.CorrectIndex,
		Explanation:        question.Explanation,
	}
	if p.Completed {
		outcome.Next = domain.RenderAction{
			Kind:      domain.RenderShowCompletion,
			ChapterID: chapterID,
			Score:     p.Score,
			Total:     len(questions),
			Percent:   domain.Percent(p.Score, len(questions)),
			Band:      domain.BandFor(p.Score, len(questions)),
		}
	} else {
		outcome.Next = e.showQuestion(chapterID, questions, p)
	}
	return outcome, nil
}

// Retake resets a chapter's progress back to the initial state. Always
// permitted, regardless of whether the prior run finished.
func (e *Engine) Retake(ctx context.Context, userID, chapterID string) (domain.RenderAction, error) {
	unlock := e.locks.lock(userID + "|" + chapterID)
	defer unlock()

	questions, err := e.catalog.GetChapterQuestions(ctx, chapterID)
	if err != nil {
		return domain.RenderAction{}, err
	}

	p, err := e.progress.GetOrCreate(ctx, userID, chapterID)
	if err != nil {
		return domain.RenderAction{}, err
	}

	expected := p.CurrentIndex
	p.CurrentIndex = 0
	p.Score = 0
	p.Answers = nil
	p.Completed = false
	p.PromptRef = ""
	if len(questions) > 0 {
		p.PromptRef = e.newPromptRef(chapterID, 0)
	}
	if err := e.progress.Save(ctx, p, expected); err != nil {
		return domain.RenderAction{}, err
	}

	if len(questions) == 0 {
		return domain.RenderAction{
			Kind:      domain.RenderShowCompletion,
			ChapterID: chapterID,
			Percent:   domain.Percent(0, 0),
			Band:      domain.BandFor(0, 0),
		}, nil
	}
	return e.showQuestion(chapterID, questions, p), nil
}

func (e *Engine) showQuestion(chapterID string, questions []domain.Question, p domain.Progress) domain.RenderAction {
	q := questions[p.CurrentIndex]
	return domain.RenderAction{
		Kind:          domain.RenderShowQuestion,
		ChapterID:     chapterID,
		QuestionIndex: p.CurrentIndex,
		Question:      &q,
		PromptRef:     p.PromptRef,
		Score:         p.Score,
		Total:         len(questions),
	}
}

// newPromptRef mints an opaque token for a freshly rendered question. The
// global rand source is safe for concurrent use across keyed locks.
func (e *Engine) newPromptRef(chapterID string, index int) string {
	return chapterID + "#" + strconv.Itoa(index) + "@" + strconv.FormatInt(rand.Int63(), 36)
}
