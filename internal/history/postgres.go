package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/pkg/provider/embeddings"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

const ddlTurns = `
CREATE TABLE IF NOT EXISTS interview_turns (
    id         BIGSERIAL    PRIMARY KEY,
    chat_id    TEXT         NOT NULL,
    speaker    TEXT         NOT NULL,
    text       TEXT         NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_interview_turns_chat
    ON interview_turns (chat_id, id);
`

// ddlQuestionIndex returns the semantic index DDL with the embedding
// dimension baked into the vector column type.
func ddlQuestionIndex(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS question_index (
    id         TEXT         PRIMARY KEY,
    chat_id    TEXT         NOT NULL,
    question   TEXT         NOT NULL,
    embedding  vector(%d),
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_question_index_chat
    ON question_index (chat_id);

CREATE INDEX IF NOT EXISTS idx_question_index_embedding
    ON question_index USING hnsw (embedding vector_cosine_ops);
`, dimensions)
}

// Migrate ensures the history tables and the pgvector extension exist. It is
// idempotent and safe to run on every start. Changing the embedding model's
// dimension after the first migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	for _, stmt := range []string{ddlTurns, ddlQuestionIndex(dimensions)} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("history migrate: %w", err)
		}
	}
	return nil
}

// PostgresStore implements [Store] on PostgreSQL with pgvector.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// StoreOption configures [NewPostgresStore].
type StoreOption func(*storeOptions)

type storeOptions struct {
	expectedDims int
}

// WithExpectedDimensions rejects an embedder whose vector dimension differs
// from n. An existing question index becomes unreadable when the embedding
// model changes underneath it; the check turns that into a startup error.
func WithExpectedDimensions(n int) StoreOption {
	return func(o *storeOptions) { o.expectedDims = n }
}

// NewPostgresStore connects to the database at dsn, registers pgvector
// types on every connection, and runs [Migrate] sized to the embedder's
// dimensions.
func NewPostgresStore(ctx context.Context, dsn string, embedder embeddings.Provider, opts ...StoreOption) (*PostgresStore, error) {
	var so storeOptions
	for _, opt := range opts {
		opt(&so)
	}
	if so.expectedDims > 0 && so.expectedDims != embedder.Dimensions() {
		return nil, fmt.Errorf("history: embeddings model %s produces %d-dimensional vectors, config expects %d",
			embedder.ModelID(), embedder.Dimensions(), so.expectedDims)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, embedder: embedder}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks database reachability. Used by the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) AppendTurn(ctx context.Context, chatID string, turn interview.Turn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interview_turns (chat_id, speaker, text) VALUES ($1, $2, $3)`,
		chatID, string(turn.Speaker), turn.Text,
	)
	if err != nil {
		return fmt.Errorf("history: append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Conversation(ctx context.Context, chatID string, limit int) ([]interview.Turn, error) {
	q := `SELECT speaker, text FROM interview_turns WHERE chat_id = $1 ORDER BY id`
	args := []any{chatID}
	if limit > 0 {
		// Latest turns win when the log is longer than the cap.
		q = `SELECT speaker, text FROM (
		         SELECT id, speaker, text FROM interview_turns
		         WHERE chat_id = $1 ORDER BY id DESC LIMIT $2
		     ) latest ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: load conversation: %w", err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (interview.Turn, error) {
		var t interview.Turn
		var speaker string
		if err := row.Scan(&speaker, &t.Text); err != nil {
			return interview.Turn{}, err
		}
		t.Speaker = interview.Speaker(speaker)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan conversation: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) RecentQuestions(ctx context.Context, chatID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT text FROM (
		    SELECT id, text FROM interview_turns
		    WHERE chat_id = $1 AND speaker = $2
		    ORDER BY id DESC LIMIT $3
		) latest ORDER BY id`,
		chatID, string(interview.SpeakerInterviewer), n,
	)
	if err != nil {
		return nil, fmt.Errorf("history: recent questions: %w", err)
	}
	questions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("history: scan questions: %w", err)
	}
	return questions, nil
}

func (s *PostgresStore) IndexQuestion(ctx context.Context, chatID, question string) error {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("history: embed question: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO question_index (id, chat_id, question, embedding) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), chatID, question, pgvector.NewVector(vec),
	)
	if err != nil {
		return fmt.Errorf("history: index question: %w", err)
	}
	return nil
}

func (s *PostgresStore) NearestQuestionDistance(ctx context.Context, chatID, question string) (float64, bool, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return 0, false, fmt.Errorf("history: embed question: %w", err)
	}

	var distance float64
	err = s.pool.QueryRow(ctx, `
		SELECT embedding <=> $1 AS distance
		FROM   question_index
		WHERE  chat_id = $2
		ORDER  BY distance
		LIMIT  1`,
		pgvector.NewVector(vec), chatID,
	).Scan(&distance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("history: nearest question: %w", err)
	}
	return distance, true, nil
}
