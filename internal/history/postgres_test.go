package history_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/coachly-ai/coachly/internal/history"
	"github.com/coachly-ai/coachly/internal/interview"
	embmock "github.com/coachly-ai/coachly/pkg/provider/embeddings/mock"
)

// testStore connects to the integration database, or skips the test when
// COACHLY_TEST_POSTGRES_DSN is not set.
func testStore(t *testing.T) *history.PostgresStore {
	t.Helper()
	dsn := os.Getenv("COACHLY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COACHLY_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}

	embedder := &embmock.Provider{
		Dim: 4,
		Vectors: map[string][]float32{
			"What is a goroutine?":          {1, 0, 0, 0},
			"Can you explain goroutines?":   {0.95, 0.05, 0, 0},
			"How do database indexes work?": {0, 1, 0, 0},
		},
	}
	store, err := history.NewPostgresStore(context.Background(), dsn, embedder)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgresStore_ConversationRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chatID := "it-conv-" + t.Name()

	turns := []interview.Turn{
		{Speaker: interview.SpeakerInterviewer, Text: "What is a goroutine?"},
		{Speaker: interview.SpeakerCandidate, Text: "A lightweight thread."},
		{Speaker: interview.SpeakerInterviewer, Text: "How do database indexes work?"},
	}
	for _, turn := range turns {
		if err := store.AppendTurn(ctx, chatID, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	got, err := store.Conversation(ctx, chatID, 0)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("turns = %d, want %d", len(got), len(turns))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], turns[i])
		}
	}

	questions, err := store.RecentQuestions(ctx, chatID, 5)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(questions) != 2 || questions[1] != "How do database indexes work?" {
		t.Errorf("questions = %v", questions)
	}
}

func TestPostgresStore_ConversationLimitKeepsLatest(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chatID := "it-limit-" + t.Name()

	for _, text := range []string{"one", "two", "three"} {
		if err := store.AppendTurn(ctx, chatID, interview.Turn{
			Speaker: interview.SpeakerCandidate, Text: text,
		}); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	got, err := store.Conversation(ctx, chatID, 2)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(got) != 2 || got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("turns = %+v, want latest two in order", got)
	}
}

func TestPostgresStore_NearDuplicateDetection(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chatID := "it-dup-" + t.Name()

	_, ok, err := store.NearestQuestionDistance(ctx, chatID, "What is a goroutine?")
	if err != nil {
		t.Fatalf("NearestQuestionDistance: %v", err)
	}
	if ok {
		t.Fatal("expected no neighbour in an empty index")
	}

	if err := store.IndexQuestion(ctx, chatID, "What is a goroutine?"); err != nil {
		t.Fatalf("IndexQuestion: %v", err)
	}

	dup, err := history.IsNearDuplicate(ctx, store, chatID, "Can you explain goroutines?")
	if err != nil {
		t.Fatalf("IsNearDuplicate: %v", err)
	}
	if !dup {
		t.Error("near-identical embedding not flagged as duplicate")
	}

	dup, err = history.IsNearDuplicate(ctx, store, chatID, "How do database indexes work?")
	if err != nil {
		t.Fatalf("IsNearDuplicate: %v", err)
	}
	if dup {
		t.Error("orthogonal embedding flagged as duplicate")
	}
}

func TestNewPostgresStore_DimensionMismatch(t *testing.T) {
	// The dimension check runs before any connection is made, so no
	// integration database is needed.
	embedder := &embmock.Provider{Dim: 4}
	_, err := history.NewPostgresStore(context.Background(),
		"postgres://localhost:5432/coachly", embedder,
		history.WithExpectedDimensions(1536),
	)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "1536") {
		t.Errorf("err = %v, want expected-dimension in message", err)
	}
}
