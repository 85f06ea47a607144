package generate

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/prompt"
	"github.com/coachly-ai/coachly/pkg/provider/llm"
	llmmock "github.com/coachly-ai/coachly/pkg/provider/llm/mock"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func TestClientGenerate(t *testing.T) {
	mock := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "  What is a mutex?  "},
	}
	c := NewClient(mock, WithMetrics(testMetrics(t)))

	got, err := c.Generate(context.Background(), prompt.Prompt{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "go"}},
		Temperature: 0.35,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "What is a mutex?" {
		t.Errorf("text = %q", got)
	}

	if len(mock.CompleteCalls) != 1 {
		t.Fatalf("complete calls = %d, want 1", len(mock.CompleteCalls))
	}
	req := mock.CompleteCalls[0]
	if req.Temperature != 0.35 {
		t.Errorf("temperature = %v, want 0.35", req.Temperature)
	}
	if req.Tier != llm.TierChat {
		t.Errorf("tier = %q, want chat", req.Tier)
	}
	if req.MaxTokens != defaultMaxTokens {
		t.Errorf("max tokens = %d, want %d", req.MaxTokens, defaultMaxTokens)
	}
}

func TestClientGenerate_TransportWrapped(t *testing.T) {
	mock := &llmmock.Provider{CompleteErr: errors.New("connection refused")}
	c := NewClient(mock, WithMetrics(testMetrics(t)))

	_, err := c.Generate(context.Background(), prompt.Prompt{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientGenerate_EmptyCompletion(t *testing.T) {
	mock := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "   "},
	}
	c := NewClient(mock, WithMetrics(testMetrics(t)))

	_, err := c.Generate(context.Background(), prompt.Prompt{})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestClientRephrase_UsesFastTier(t *testing.T) {
	mock := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Could you explain what a mutex does?"},
	}
	c := NewClient(mock, WithMetrics(testMetrics(t)))

	got, err := c.Rephrase(context.Background(), "What is a mutex?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Fatal("empty rephrase")
	}
	if tier := mock.CompleteCalls[0].Tier; tier != llm.TierFast {
		t.Errorf("tier = %q, want fast", tier)
	}
}

func TestBuildProvider_SecondaryMissingCredential(t *testing.T) {
	p, err := BuildProvider(
		BackendConfig{Name: "openai", APIKey: "sk-test"},
		BackendConfig{Name: "groq"},
		slog.Default(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No fallback group: the secondary was skipped.
	if _, ok := p.(interface{ Backends() []string }); ok {
		t.Error("expected a bare primary provider, got a fallback group")
	}
}

func TestBuildProvider_SecondaryPreferred(t *testing.T) {
	p, err := BuildProvider(
		BackendConfig{Name: "openai", APIKey: "sk-test"},
		BackendConfig{Name: "groq", APIKey: "gsk-test"},
		slog.Default(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	group, ok := p.(interface{ Backends() []string })
	if !ok {
		t.Fatal("expected a fallback group")
	}
	names := group.Backends()
	if len(names) != 2 || names[0] != "groq" || names[1] != "openai" {
		t.Fatalf("backends = %v, want [groq openai]", names)
	}
}

func TestBuildProvider_EmptyPrimaryName(t *testing.T) {
	if _, err := BuildProvider(BackendConfig{}, BackendConfig{}, nil); err == nil {
		t.Fatal("expected error for empty primary backend")
	}
}
