package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"hu-quiz-engine/internal/domain"
	"github.com/jackc/pgx/v4"
)

func (s *Store) AddSubject(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO subjects (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return domain.StorageErr("add subject", err)
	}
	return nil
}

func (s *Store) AddChapter(ctx context.Context, subject, name string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT TRUE FROM subjects WHERE name = $1`, subject).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSubjectNotFound
		}
		return domain.StorageErr("add chapter", err)
	}

	_, err = s.pool.Exec(
		ctx,
		`INSERT INTO chapters (chapter_id, subject, name) VALUES ($1, $2, $3) ON CONFLICT (chapter_id) DO NOTHING`,
		domain.ChapterID(subject, name),
		subject,
		name,
	)
	if err != nil {
		return domain.StorageErr("add chapter", err)
	}
	return nil
}

// PublishChapter replaces the question list inside one transaction; readers
// on other connections see the old list until commit.
func (s *Store) PublishChapter(ctx context.Context, subject, chapter string, questions []domain.Question) error {
	chapterID := domain.ChapterID(subject, chapter)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		`UPDATE chapters SET published = TRUE, question_count = $1 WHERE chapter_id = $2`,
		len(questions),
		chapterID,
	)
	if err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChapterNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chapter_questions WHERE chapter_id = $1`, chapterID); err != nil {
		return domain.StorageErr("publish chapter", err)
	}

	for position, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return domain.StorageErr("publish chapter", err)
		}
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO chapter_questions (chapter_id, position, prompt, options, correct_index, explanation)
			 VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
			chapterID,
			position,
			q.Text,
			string(options),
			q.CorrectIndex,
			q.Explanation,
		); err != nil {
			return domain.StorageErr("publish chapter", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	return nil
}

func (s *Store) GetChapterQuestions(ctx context.Context, chapterID string) ([]domain.Question, error) {
	var published bool
	err := s.pool.QueryRow(ctx, `SELECT published FROM chapters WHERE chapter_id = $1`, chapterID).Scan(&published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChapterNotFound
		}
		return nil, domain.StorageErr("get chapter questions", err)
	}
	if !published {
		return nil, domain.ErrChapterNotFound
	}

	rows, err := s.pool.Query(
		ctx,
		`SELECT prompt, options, correct_index, explanation
		 FROM chapter_questions WHERE chapter_id = $1 ORDER BY position ASC`,
		chapterID,
	)
	if err != nil {
		return nil, domain.StorageErr("get chapter questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.Text, &options, &q.CorrectIndex, &q.Explanation); err != nil {
			return nil, domain.StorageErr("get chapter questions", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, domain.StorageErr("get chapter questions", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr("get chapter questions", err)
	}
	return questions, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, created_at FROM subjects ORDER BY seq ASC`)
	if err != nil {
		return nil, domain.StorageErr("list subjects", err)
	}
	defer rows.Close()

	subjects := make([]domain.Subject, 0)
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(&subject.Name, &subject.CreatedAt); err != nil {
			return nil, domain.StorageErr("list subjects", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *Store) ListChapters(ctx context.Context, subject string) ([]domain.Chapter, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT TRUE FROM subjects WHERE name = $1`, subject).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, domain.StorageErr("list chapters", err)
	}

	rows, err := s.pool.Query(
		ctx,
		`SELECT chapter_id, name, question_count FROM chapters WHERE subject = $1 ORDER BY seq ASC`,
		subject,
	)
	if err != nil {
		return nil, domain.StorageErr("list chapters", err)
	}
	defer rows.Close()

	chapters := make([]domain.Chapter, 0)
	for rows.Next() {
		chapter := domain.Chapter{Subject: subject}
		if err := rows.Scan(&chapter.ID, &chapter.Name, &chapter.QuestionCount); err != nil {
			return nil, domain.StorageErr("list chapters", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}
