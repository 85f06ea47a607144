package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/coachly-ai/coachly/pkg/provider/llm"
	llmmock "github.com/coachly-ai/coachly/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete_PreferredSuccess(t *testing.T) {
	preferred := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from groq"},
	}
	backup := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from openai"},
	}

	fb := NewLLMFallback(preferred, "groq", FallbackConfig{})
	fb.AddFallback("openai", backup)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from groq" {
		t.Fatalf("content = %q, want 'from groq'", resp.Content)
	}
	if len(backup.CompleteCalls) != 0 {
		t.Fatalf("backup called %d times, want 0", len(backup.CompleteCalls))
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	preferred := &llmmock.Provider{CompleteErr: errors.New("groq down")}
	backup := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from openai"},
	}

	fb := NewLLMFallback(preferred, "groq", FallbackConfig{})
	fb.AddFallback("openai", backup)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from openai" {
		t.Fatalf("content = %q, want 'from openai'", resp.Content)
	}
	if len(preferred.CompleteCalls) != 1 {
		t.Fatalf("preferred called %d times, want 1", len(preferred.CompleteCalls))
	}
}

func TestLLMFallback_Complete_AllFailed(t *testing.T) {
	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errors.New("down")}, "only", FallbackConfig{})

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_StreamCompletion_Failover(t *testing.T) {
	preferred := &llmmock.Provider{StreamErr: errors.New("refused")}
	backup := &llmmock.Provider{
		StreamChunks: []llm.Chunk{{Text: "What"}, {Text: " next?", FinishReason: "stop"}},
	}

	fb := NewLLMFallback(preferred, "groq", FallbackConfig{})
	fb.AddFallback("openai", backup)

	ch, err := fb.StreamCompletion(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var text string
	for chunk := range ch {
		text += chunk.Text
	}
	if text != "What next?" {
		t.Fatalf("streamed text = %q, want 'What next?'", text)
	}
}

func TestLLMFallback_Capabilities(t *testing.T) {
	preferred := &llmmock.Provider{
		ModelCapabilities: llm.ModelCapabilities{ModelID: "llama-3.3-70b-versatile"},
	}
	fb := NewLLMFallback(preferred, "groq", FallbackConfig{})

	if got := fb.Capabilities().ModelID; got != "llama-3.3-70b-versatile" {
		t.Fatalf("model id = %q", got)
	}
	if got := fb.Backends(); len(got) != 1 || got[0] != "groq" {
		t.Fatalf("backends = %v, want [groq]", got)
	}
}
