package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachly-ai/coachly/internal/interview"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"deepgram"},
	"tts":        {"elevenlabs"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// ${VAR} references are expanded from the process environment before
// decoding, so credentials can stay out of the file. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := expandEnv(string(data))

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} references with environment values. Bare $VAR is
// left untouched so YAML content containing dollar signs survives.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Generation backends
	if cfg.Providers.LLM.Primary.Name == "" {
		errs = append(errs, errors.New("providers.llm.primary.name is required"))
	}
	validateProviderName("llm", cfg.Providers.LLM.Primary.Name)
	validateProviderName("llm", cfg.Providers.LLM.Secondary.Name)
	if sec := cfg.Providers.LLM.Secondary.Name; sec != "" && sec == cfg.Providers.LLM.Primary.Name {
		slog.Warn("providers.llm.secondary matches primary; failover will hit the same backend", "name", sec)
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// History / semantic index
	if cfg.History.Enabled {
		if cfg.History.PostgresDSN == "" {
			errs = append(errs, errors.New("history.postgres_dsn is required when history.enabled is true"))
		}
		if cfg.Providers.Embeddings.Name == "" {
			errs = append(errs, errors.New("providers.embeddings is required when history.enabled is true"))
		}
	}
	if cfg.History.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("history.embedding_dimensions %d must not be negative", cfg.History.EmbeddingDimensions))
	}

	// Pipeline defaults
	if v := cfg.Pipeline.DefaultPlanTier; v != "" && !interview.PlanTier(v).IsValid() {
		errs = append(errs, fmt.Errorf("pipeline.default_plan_tier %q is invalid; valid values: starter, value, unlimited", v))
	}
	if v := cfg.Pipeline.DefaultMode; v != "" && !interview.Mode(v).IsValid() {
		errs = append(errs, fmt.Errorf("pipeline.default_mode %q is invalid; valid values: friendly, moderate, strict", v))
	}
	if cfg.Pipeline.GenerationTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.generation_timeout %v must not be negative", cfg.Pipeline.GenerationTimeout))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
