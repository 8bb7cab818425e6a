package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"yomitore/internal/quiz"
)

// PostgresStore writes entries to the quiz_judgments table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table and index when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS quiz_judgments (
			id             BIGSERIAL PRIMARY KEY,
			session_id     TEXT        NOT NULL,
			question_no    INTEGER     NOT NULL,
			question       TEXT        NOT NULL,
			reading_answer TEXT        NOT NULL,
			display_answer TEXT        NOT NULL,
			answer         TEXT        NOT NULL,
			verdict        TEXT        NOT NULL,
			recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create quiz_judgments: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS quiz_judgments_session_idx
		ON quiz_judgments (session_id, id)
	`); err != nil {
		return fmt.Errorf("create quiz_judgments index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_judgments (
			session_id, question_no, question, reading_answer, display_answer, answer, verdict, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.SessionID, e.QuestionNo, e.Question, e.ReadingAnswer, e.DisplayAnswer, e.Answer, string(e.Verdict), e.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert judgment: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, question_no, question, reading_answer, display_answer, answer, verdict, recorded_at
		FROM (
			SELECT *
			FROM quiz_judgments
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) latest
		ORDER BY id ASC
	`, sessionID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query judgments: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var verdict string
		if err := rows.Scan(&e.SessionID, &e.QuestionNo, &e.Question, &e.ReadingAnswer, &e.DisplayAnswer, &e.Answer, &verdict, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan judgment: %w", err)
		}
		e.Verdict = quiz.Verdict(verdict)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judgments: %w", err)
	}
	return out, nil
}
