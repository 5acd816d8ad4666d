package memory

import (
	"context"
	"sync"
	"time"

	"hu-quiz-engine/internal/domain"
)

// CatalogStore is an in-memory implementation of engine.CatalogStore.
// Useful for tests and single-process demos; the SQLite store is the durable
// default.
type CatalogStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	subjects []domain.Subject
	chapters map[string][]domain.Chapter
	// questions is keyed by chapter ID; the whole slice is swapped on publish
	// so readers never see a partial list.
	questions map[string][]domain.Question
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		clock:     time.Now,
		chapters:  make(map[string][]domain.Chapter),
		questions: make(map[string][]domain.Question),
	}
}

func (s *CatalogStore) AddSubject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subject := range s.subjects {
		if subject.Name == name {
			return nil
		}
	}
	s.subjects = append(s.subjects, domain.Subject{Name: name, CreatedAt: s.clock()})
	return nil
}

func (s *CatalogStore) AddChapter(_ context.Context, subject, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSubjectLocked(subject) {
		return domain.ErrSubjectNotFound
	}
	for _, chapter := range s.chapters[subject] {
		if chapter.Name == name {
			return nil
		}
	}
	s.chapters[subject] = append(s.chapters[subject], domain.Chapter{
		ID:      domain.ChapterID(subject, name),
		Subject: subject,
		Name:    name,
	})
	return nil
}

func (s *CatalogStore) PublishChapter(_ context.Context, subject, chapter string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapters := s.chapters[subject]
	idx := -1
	for i, c := range chapters {
		if c.Name == chapter {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrChapterNotFound
	}

	replacement := make([]domain.Question, len(questions))
	copy(replacement, questions)
	s.questions[chapters[idx].ID] = replacement
	chapters[idx].QuestionCount = len(replacement)
	return nil
}

func (s *CatalogStore) GetChapterQuestions(_ context.Context, chapterID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions, ok := s.questions[chapterID]
	if !ok {
		return nil, domain.ErrChapterNotFound
	}
	return questions, nil
}

func (s *CatalogStore) ListSubjects(_ context.Context) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out, nil
}

func (s *CatalogStore) ListChapters(_ context.Context, subject string) ([]domain.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSubjectLocked(subject) {
		return nil, domain.ErrSubjectNotFound
	}
	out := make([]domain.Chapter, len(s.chapters[subject]))
	copy(out, s.chapters[subject])
	return out, nil
}

func (s *CatalogStore) hasSubjectLocked(name string) bool {
	for _, subject := range s.subjects {
		if subject.Name == name {
			return true
		}
	}
	return false
}
