package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/coachly-ai/coachly/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
providers:
  llm:
    primary:
      name: openai
      api_key: sk-test
      chat_model: gpt-4o
      fast_model: gpt-4o-mini
    secondary:
      name: groq
      api_key: gsk-test
      chat_model: llama-3.3-70b-versatile
      fast_model: llama-3.1-8b-instant
  stt:
    name: deepgram
    api_key: dg-test
  tts:
    name: elevenlabs
    api_key: el-test
    voice_id: voice-1
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small
history:
  enabled: true
  postgres_dsn: "postgres://localhost/coachly"
  embedding_dimensions: 1536
pipeline:
  default_plan_tier: value
  default_mode: moderate
  generation_timeout: 45s
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Providers.LLM.Primary.Name != "openai" {
		t.Errorf("primary llm: got %q, want %q", cfg.Providers.LLM.Primary.Name, "openai")
	}
	if cfg.Providers.LLM.Secondary.ChatModel != "llama-3.3-70b-versatile" {
		t.Errorf("secondary chat_model: got %q", cfg.Providers.LLM.Secondary.ChatModel)
	}
	if cfg.Providers.TTS.VoiceID != "voice-1" {
		t.Errorf("tts voice_id: got %q, want %q", cfg.Providers.TTS.VoiceID, "voice-1")
	}
	if cfg.History.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions: got %d, want 1536", cfg.History.EmbeddingDimensions)
	}
	if cfg.Pipeline.GenerationTimeout != 45*time.Second {
		t.Errorf("generation_timeout: got %v, want 45s", cfg.Pipeline.GenerationTimeout)
	}
}

func TestLoadFromReader_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("COACHLY_TEST_API_KEY", "sk-from-env")
	yaml := `
providers:
  llm:
    primary:
      name: openai
      api_key: ${COACHLY_TEST_API_KEY}
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Providers.LLM.Primary.APIKey; got != "sk-from-env" {
		t.Errorf("api_key = %q, want value from environment", got)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_adr: ":8080"
providers:
  llm:
    primary:
      name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_PrimaryLLMRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: deepgram
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing primary llm, got nil")
	}
	if !strings.Contains(err.Error(), "providers.llm.primary.name") {
		t.Errorf("error should mention providers.llm.primary.name, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
providers:
  llm:
    primary:
      name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_HistoryRequiresDSNAndEmbeddings(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    primary:
      name: openai
history:
  enabled: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for enabled history without dsn, got nil")
	}
	if !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("error should mention postgres_dsn, got: %v", err)
	}
	if !strings.Contains(err.Error(), "embeddings") {
		t.Errorf("error should mention embeddings, got: %v", err)
	}
}

func TestValidate_NegativeEmbeddingDimensions(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    primary:
      name: openai
history:
  embedding_dimensions: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative embedding_dimensions, got nil")
	}
	if !strings.Contains(err.Error(), "embedding_dimensions") {
		t.Errorf("error should mention embedding_dimensions, got: %v", err)
	}
}

func TestValidate_InvalidPipelineDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    primary:
      name: openai
pipeline:
  default_plan_tier: platinum
  default_mode: casual
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid pipeline defaults, got nil")
	}
	if !strings.Contains(err.Error(), "default_plan_tier") {
		t.Errorf("error should mention default_plan_tier, got: %v", err)
	}
	if !strings.Contains(err.Error(), "default_mode") {
		t.Errorf("error should mention default_mode, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/coachly/tls.crt
providers:
  llm:
    primary:
      name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for partial TLS config, got nil")
	}
	if !strings.Contains(err.Error(), "cert_file and key_file") {
		t.Errorf("error should mention cert_file and key_file, got: %v", err)
	}
}

func TestValidate_NegativeGenerationTimeout(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    primary:
      name: openai
pipeline:
  generation_timeout: -5s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative timeout, got nil")
	}
	if !strings.Contains(err.Error(), "generation_timeout") {
		t.Errorf("error should mention generation_timeout, got: %v", err)
	}
}
