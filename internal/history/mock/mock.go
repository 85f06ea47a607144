// Package mock provides an in-memory [history.Store] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/coachly-ai/coachly/internal/history"
	"github.com/coachly-ai/coachly/internal/interview"
)

// Store is a recording in-memory implementation of [history.Store].
// Configure error fields and NearestDistance before use; inspect the
// recorded state afterwards. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	// AppendErr, IndexErr, and NearestErr are returned by the matching
	// methods when set.
	AppendErr  error
	IndexErr   error
	NearestErr error

	// NearestDistance is returned by NearestQuestionDistance once at
	// least one question has been indexed (or HasIndexed is set).
	NearestDistance float64

	// HasIndexed forces NearestQuestionDistance to report a neighbour
	// even when IndexQuestion was never called.
	HasIndexed bool

	// Turns and Indexed record all writes, keyed by chat ID.
	Turns   map[string][]interview.Turn
	Indexed map[string][]string
}

var _ history.Store = (*Store)(nil)

func (s *Store) AppendTurn(_ context.Context, chatID string, turn interview.Turn) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Turns == nil {
		s.Turns = make(map[string][]interview.Turn)
	}
	s.Turns[chatID] = append(s.Turns[chatID], turn)
	return nil
}

func (s *Store) Conversation(_ context.Context, chatID string, limit int) ([]interview.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.Turns[chatID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]interview.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) RecentQuestions(_ context.Context, chatID string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var questions []string
	for _, t := range s.Turns[chatID] {
		if t.Speaker == interview.SpeakerInterviewer {
			questions = append(questions, t.Text)
		}
	}
	if n > 0 && len(questions) > n {
		questions = questions[len(questions)-n:]
	}
	return questions, nil
}

func (s *Store) IndexQuestion(_ context.Context, chatID, question string) error {
	if s.IndexErr != nil {
		return s.IndexErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Indexed == nil {
		s.Indexed = make(map[string][]string)
	}
	s.Indexed[chatID] = append(s.Indexed[chatID], question)
	return nil
}

func (s *Store) NearestQuestionDistance(_ context.Context, chatID, _ string) (float64, bool, error) {
	if s.NearestErr != nil {
		return 0, false, s.NearestErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.HasIndexed && len(s.Indexed[chatID]) == 0 {
		return 0, false, nil
	}
	return s.NearestDistance, true, nil
}
