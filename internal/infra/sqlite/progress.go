package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"hu-quiz-engine/internal/domain"
)

func (s *Store) GetOrCreate(ctx context.Context, userID, chapterID string) (domain.Progress, error) {
	now := time.Now().UTC().UnixNano()
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO progress (user_id, chapter_id, updated_at_unix) VALUES (?, ?, ?)`,
		userID,
		chapterID,
		now,
	); err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}

	p := domain.Progress{UserID: userID, ChapterID: chapterID}
	var (
		answersJSON   string
		completed     int
		updatedAtUnix int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT current_index, score, answers_json, completed, prompt_ref, updated_at_unix
		 FROM progress WHERE user_id = ? AND chapter_id = ?`,
		userID,
		chapterID,
	).Scan(&p.CurrentIndex, &p.Score, &answersJSON, &completed, &p.PromptRef, &updatedAtUnix)
	if err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}

	if err := json.Unmarshal([]byte(answersJSON), &p.Answers); err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}
	p.Completed = completed != 0
	p.UpdatedAt = time.Unix(0, updatedAtUnix).UTC()
	return p, nil
}

// Save persists the full record in one conditional write: the upsert only
// lands when the stored current_index still equals expectedIndex, so a racing
// duplicate submission from another process is rejected by the store itself.
func (s *Store) Save(ctx context.Context, p domain.Progress, expectedIndex int) error {
	answers := p.Answers
	if answers == nil {
		answers = []int{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return domain.StorageErr("save progress", err)
	}

	completed := 0
	if p.Completed {
		completed = 1
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO progress (user_id, chapter_id, current_index, score, answers_json, completed, prompt_ref, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, chapter_id) DO UPDATE SET
			current_index = excluded.current_index,
			score = excluded.score,
			answers_json = excluded.answers_json,
			completed = excluded.completed,
			prompt_ref = excluded.prompt_ref,
			updated_at_unix = excluded.updated_at_unix
		 WHERE progress.current_index = ?`,
		p.UserID,
		p.ChapterID,
		p.CurrentIndex,
		p.Score,
		string(answersJSON),
		completed,
		p.PromptRef,
		time.Now().UTC().UnixNano(),
		expectedIndex,
	)
	if err != nil {
		return domain.StorageErr("save progress", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.StorageErr("save progress", err)
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (user_id, display_name, handle, channel_member, profile_confirmed, first_seen_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			handle = excluded.handle,
			channel_member = excluded.channel_member,
			profile_confirmed = excluded.profile_confirmed`,
		u.ID,
		u.DisplayName,
		u.Handle,
		boolInt(u.ChannelMember),
		boolInt(u.ProfileConfirmed),
		time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return domain.StorageErr("upsert user", err)
	}
	return nil
}

func (s *Store) TotalScore(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(score), 0) FROM progress WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, domain.StorageErr("total score", err)
	}
	return total, nil
}

func (s *Store) ScoreSums(ctx context.Context, since time.Time, limit int) ([]domain.UserScore, error) {
	query := `SELECT p.user_id, COALESCE(NULLIF(u.display_name, ''), p.user_id) AS display_name, SUM(p.score) AS total_score
		 FROM progress p
		 LEFT JOIN users u ON u.user_id = p.user_id`
	args := make([]any, 0, 2)
	if !since.IsZero() {
		query += ` WHERE p.updated_at_unix >= ?`
		args = append(args, since.UTC().UnixNano())
	}
	// MIN(rowid) is the first-contact order; it keeps score ties stable.
	query += ` GROUP BY p.user_id ORDER BY total_score DESC, MIN(p.rowid) ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageErr("score sums", err)
	}
	defer rows.Close()

	sums := make([]domain.UserScore, 0)
	for rows.Next() {
		var sum domain.UserScore
		if err := rows.Scan(&sum.UserID, &sum.DisplayName, &sum.Total); err != nil {
			return nil, domain.StorageErr("score sums", err)
		}
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
