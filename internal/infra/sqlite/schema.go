package sqlite

import "context"

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			handle TEXT NOT NULL DEFAULT '',
			channel_member INTEGER NOT NULL DEFAULT 0,
			profile_confirmed INTEGER NOT NULL DEFAULT 0,
			first_seen_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS subjects (
			name TEXT PRIMARY KEY,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chapters (
			chapter_id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			name TEXT NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			question_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE (subject, name)
		);`,
		`CREATE TABLE IF NOT EXISTS chapter_questions (
			chapter_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			options_json TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (chapter_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS progress (
			user_id TEXT NOT NULL,
			chapter_id TEXT NOT NULL,
			current_index INTEGER NOT NULL DEFAULT 0,
			score INTEGER NOT NULL DEFAULT 0,
			answers_json TEXT NOT NULL DEFAULT '[]',
			completed INTEGER NOT NULL DEFAULT 0,
			prompt_ref TEXT NOT NULL DEFAULT '',
			updated_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, chapter_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_user ON progress(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_updated_at ON progress(updated_at_unix);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
