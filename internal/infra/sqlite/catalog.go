package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"hu-quiz-engine/internal/domain"
)

func (s *Store) AddSubject(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO subjects (name, created_at_unix) VALUES (?, ?)`,
		name,
		time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return domain.StorageErr("add subject", err)
	}
	return nil
}

func (s *Store) AddChapter(ctx context.Context, subject, name string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE name = ?`, subject).Scan(&exists)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrSubjectNotFound
		}
		return domain.StorageErr("add chapter", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO chapters (chapter_id, subject, name) VALUES (?, ?, ?)`,
		domain.ChapterID(subject, name),
		subject,
		name,
	)
	if err != nil {
		return domain.StorageErr("add chapter", err)
	}
	return nil
}

// PublishChapter swaps the chapter's question list in one transaction, so a
// concurrent reader sees either the old list or the new one, never a mix. A
// failed publish rolls back and leaves the prior list authoritative.
func (s *Store) PublishChapter(ctx context.Context, subject, chapter string, questions []domain.Question) error {
	chapterID := domain.ChapterID(subject, chapter)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE chapters SET published = 1, question_count = ? WHERE chapter_id = ?`,
		len(questions),
		chapterID,
	)
	if err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.StorageErr("publish chapter", err)
	} else if n == 0 {
		return domain.ErrChapterNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_questions WHERE chapter_id = ?`, chapterID); err != nil {
		return domain.StorageErr("publish chapter", err)
	}

	for position, q := range questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return domain.StorageErr("publish chapter", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO chapter_questions (chapter_id, position, prompt, options_json, correct_index, explanation)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			chapterID,
			position,
			q.Text,
			string(optionsJSON),
			q.CorrectIndex,
			q.Explanation,
		); err != nil {
			return domain.StorageErr("publish chapter", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageErr("publish chapter", err)
	}
	return nil
}

func (s *Store) GetChapterQuestions(ctx context.Context, chapterID string) ([]domain.Question, error) {
	var published int
	err := s.db.QueryRowContext(ctx, `SELECT published FROM chapters WHERE chapter_id = ?`, chapterID).Scan(&published)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrChapterNotFound
		}
		return nil, domain.StorageErr("get chapter questions", err)
	}
	if published == 0 {
		return nil, domain.ErrChapterNotFound
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT prompt, options_json, correct_index, explanation
		 FROM chapter_questions
		 WHERE chapter_id = ?
		 ORDER BY position ASC`,
		chapterID,
	)
	if err != nil {
		return nil, domain.StorageErr("get chapter questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q           domain.Question
			optionsJSON string
		)
		if err := rows.Scan(&q.Text, &optionsJSON, &q.CorrectIndex, &q.Explanation); err != nil {
			return nil, domain.StorageErr("get chapter questions", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
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
	rows, err := s.db.QueryContext(ctx, `SELECT name, created_at_unix FROM subjects ORDER BY rowid ASC`)
	if err != nil {
		return nil, domain.StorageErr("list subjects", err)
	}
	defer rows.Close()

	subjects := make([]domain.Subject, 0)
	for rows.Next() {
		var (
			subject       domain.Subject
			createdAtUnix int64
		)
		if err := rows.Scan(&subject.Name, &createdAtUnix); err != nil {
			return nil, domain.StorageErr("list subjects", err)
		}
		subject.CreatedAt = time.Unix(0, createdAtUnix).UTC()
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *Store) ListChapters(ctx context.Context, subject string) ([]domain.Chapter, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE name = ?`, subject).Scan(&exists)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, domain.StorageErr("list chapters", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT chapter_id, name, question_count FROM chapters WHERE subject = ? ORDER BY rowid ASC`,
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
