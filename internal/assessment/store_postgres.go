package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

const dbTimeout = 5 * time.Second

const createAttemptsTable = `CREATE TABLE IF NOT EXISTS quiz_attempts (
	seq                  BIGSERIAL,
	id                   TEXT PRIMARY KEY,
	subject              TEXT NOT NULL,
	topic                TEXT NOT NULL,
	mode                 TEXT NOT NULL,
	difficulty           TEXT NOT NULL DEFAULT '',
	total_questions      INT NOT NULL,
	correct_answers      INT NOT NULL,
	score                DOUBLE PRECISION NOT NULL,
	responses            JSONB NOT NULL DEFAULT '[]'::jsonb,
	reading_time_seconds INT NOT NULL DEFAULT 0,
	audio_play_count     INT NOT NULL DEFAULT 0,
	completed_at         TIMESTAMPTZ NOT NULL,
	recorded_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	synced               BOOLEAN NOT NULL DEFAULT FALSE
)`

const createAttemptsIndex = `CREATE INDEX IF NOT EXISTS quiz_attempts_subject_topic_idx
	ON quiz_attempts (subject, topic, seq DESC)`

const selectAttempt = `SELECT id, subject, topic, mode, difficulty, total_questions, correct_answers,
	score, responses, reading_time_seconds, audio_play_count, completed_at, recorded_at, synced
	FROM quiz_attempts`

// PostgresAttemptStore is a PostgreSQL-backed AttemptStore.
type PostgresAttemptStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAttemptStore creates the store and ensures its table exists.
func NewPostgresAttemptStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresAttemptStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, createAttemptsTable); err != nil {
		return nil, fmt.Errorf("create quiz_attempts table: %w", err)
	}
	if _, err := pool.Exec(ctx, createAttemptsIndex); err != nil {
		return nil, fmt.Errorf("create quiz_attempts index: %w", err)
	}
	return &PostgresAttemptStore{pool: pool}, nil
}

func (s *PostgresAttemptStore) Record(ctx context.Context, a learning.QuizAttempt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if a.Subject == "" || a.Topic == "" {
		return "", fmt.Errorf("subject and topic are required")
	}

	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return "", fmt.Errorf("marshal responses: %w", err)
	}

	completedAt := a.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	id := generateID()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, subject, topic, mode, difficulty, total_questions, correct_answers,
		   score, responses, reading_time_seconds, audio_play_count, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)`,
		id,
		a.Subject,
		a.Topic,
		string(a.Mode),
		a.Difficulty,
		a.TotalQuestions,
		a.CorrectAnswers,
		a.Score,
		string(responses),
		a.Engagement.ReadingTimeSeconds,
		a.Engagement.AudioPlayCount,
		completedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

func (s *PostgresAttemptStore) MarkSynced(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `UPDATE quiz_attempts SET synced = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark attempt synced: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("attempt not found: %s", id)
	}
	return nil
}

func (s *PostgresAttemptStore) Pending(ctx context.Context) ([]StoredAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.query(ctx, selectAttempt+` WHERE NOT synced ORDER BY seq ASC`)
}

func (s *PostgresAttemptStore) History(ctx context.Context, subject string) ([]StoredAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if subject == "" {
		return s.query(ctx, selectAttempt+` ORDER BY seq ASC`)
	}
	return s.query(ctx, selectAttempt+` WHERE subject = $1 ORDER BY seq ASC`, subject)
}

func (s *PostgresAttemptStore) Latest(ctx context.Context, subject, topic string) (StoredAttempt, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.query(ctx, selectAttempt+` WHERE subject = $1 AND topic = $2 ORDER BY seq DESC LIMIT 1`, subject, topic)
	if err != nil {
		return StoredAttempt{}, false, err
	}
	if len(out) == 0 {
		return StoredAttempt{}, false, nil
	}
	return out[0], true, nil
}

func (s *PostgresAttemptStore) query(ctx context.Context, sql string, args ...any) ([]StoredAttempt, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []StoredAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (StoredAttempt, error) {
	var sa StoredAttempt
	var mode string
	var responses []byte
	a := &sa.Attempt
	if err := row.Scan(
		&sa.ID,
		&a.Subject,
		&a.Topic,
		&mode,
		&a.Difficulty,
		&a.TotalQuestions,
		&a.CorrectAnswers,
		&a.Score,
		&responses,
		&a.Engagement.ReadingTimeSeconds,
		&a.Engagement.AudioPlayCount,
		&a.CompletedAt,
		&sa.RecordedAt,
		&sa.Synced,
	); err != nil {
		return StoredAttempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Mode = learning.Mode(mode)
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &a.Responses); err != nil {
			return StoredAttempt{}, fmt.Errorf("unmarshal responses: %w", err)
		}
	}
	return sa, nil
}
