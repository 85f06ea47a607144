// Package history persists interview conversations and maintains a semantic
// index of asked questions. The index backs near-duplicate detection beyond
// the lexical overlap check: a freshly generated question whose embedding
// sits too close to an already-asked one counts as a repeat.
package history

import (
	"context"

	"github.com/coachly-ai/coachly/internal/interview"
)

// DuplicateDistance is the cosine distance below which an indexed question
// is treated as a duplicate of the candidate question.
const DuplicateDistance = 0.25

// Store persists interview turns and the per-chat question index.
// Implementations must be safe for concurrent use.
type Store interface {
	// AppendTurn appends one turn to the chat's conversation log.
	AppendTurn(ctx context.Context, chatID string, turn interview.Turn) error

	// Conversation returns the chat's turns in chronological order,
	// capped at limit when limit > 0.
	Conversation(ctx context.Context, chatID string, limit int) ([]interview.Turn, error)

	// RecentQuestions returns the last n interviewer questions of the
	// chat, oldest first.
	RecentQuestions(ctx context.Context, chatID string, n int) ([]string, error)

	// IndexQuestion embeds the question and adds it to the chat's
	// semantic index.
	IndexQuestion(ctx context.Context, chatID, question string) error

	// NearestQuestionDistance returns the cosine distance between the
	// question and its closest indexed neighbour in the chat. ok is false
	// when the chat has no indexed questions yet.
	NearestQuestionDistance(ctx context.Context, chatID, question string) (distance float64, ok bool, err error)
}

// IsNearDuplicate reports whether question is semantically too close to a
// question already asked in the chat.
func IsNearDuplicate(ctx context.Context, s Store, chatID, question string) (bool, error) {
	distance, ok, err := s.NearestQuestionDistance(ctx, chatID, question)
	if err != nil || !ok {
		return false, err
	}
	return distance < DuplicateDistance, nil
}
