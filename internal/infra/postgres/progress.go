package postgres

import (
	"context"
	"encoding/json"
	"time"

	"hu-quiz-engine/internal/domain"
)

func (s *Store) GetOrCreate(ctx context.Context, userID, chapterID string) (domain.Progress, error) {
	if _, err := s.pool.Exec(
		ctx,
		`INSERT INTO progress (user_id, chapter_id) VALUES ($1, $2) ON CONFLICT (user_id, chapter_id) DO NOTHING`,
		userID,
		chapterID,
	); err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}

	p := domain.Progress{UserID: userID, ChapterID: chapterID}
	var answers []byte
	err := s.pool.QueryRow(
		ctx,
		`SELECT current_index, score, answers, completed, prompt_ref, updated_at
		 FROM progress WHERE user_id = $1 AND chapter_id = $2`,
		userID,
		chapterID,
	).Scan(&p.CurrentIndex, &p.Score, &answers, &p.Completed, &p.PromptRef, &p.UpdatedAt)
	if err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}
	if err := json.Unmarshal(answers, &p.Answers); err != nil {
		return domain.Progress{}, domain.StorageErr("get or create progress", err)
	}
	return p, nil
}

// Save is a conditional full-row upsert: the update only lands while the
// stored current_index still equals expectedIndex, so two processes racing on
// the same rendered question cannot both score it.
func (s *Store) Save(ctx context.Context, p domain.Progress, expectedIndex int) error {
	answersSlice := p.Answers
	if answersSlice == nil {
		answersSlice = []int{}
	}
	answers, err := json.Marshal(answersSlice)
	if err != nil {
		return domain.StorageErr("save progress", err)
	}

	tag, err := s.pool.Exec(
		ctx,
		`INSERT INTO progress (user_id, chapter_id, current_index, score, answers, completed, prompt_ref, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, now())
		 ON CONFLICT (user_id, chapter_id) DO UPDATE SET
			current_index = EXCLUDED.current_index,
			score = EXCLUDED.score,
			answers = EXCLUDED.answers,
			completed = EXCLUDED.completed,
			prompt_ref = EXCLUDED.prompt_ref,
			updated_at = EXCLUDED.updated_at
		 WHERE progress.current_index = $8`,
		p.UserID,
		p.ChapterID,
		p.CurrentIndex,
		p.Score,
		string(answers),
		p.Completed,
		p.PromptRef,
		expectedIndex,
	)
	if err != nil {
		return domain.StorageErr("save progress", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO users (user_id, display_name, handle, channel_member, profile_confirmed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			handle = EXCLUDED.handle,
			channel_member = EXCLUDED.channel_member,
			profile_confirmed = EXCLUDED.profile_confirmed`,
		u.ID,
		u.DisplayName,
		u.Handle,
		u.ChannelMember,
		u.ProfileConfirmed,
	)
	if err != nil {
		return domain.StorageErr("upsert user", err)
	}
	return nil
}

func (s *Store) TotalScore(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.pool.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(score), 0) FROM progress WHERE user_id = $1`,
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
		args = append(args, since.UTC())
		query += ` WHERE p.updated_at >= $1`
	}
	query += ` GROUP BY p.user_id, u.display_name ORDER BY total_score DESC, MIN(p.seq) ASC`
	if limit > 0 {
		args = append(args, limit)
		if len(args) == 2 {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
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
