package deepgram

import (
	"net/url"
	"testing"
	"time"

	"github.com/coachly-ai/coachly/pkg/provider/stt"
)

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := stt.StreamConfig{
		SampleRate: 16000,
		Channels:   1,
		Language:   "en",
	}

	rawURL, err := p.buildURL(cfg)
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "true", q.Get("interim_results"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURL_CustomModel(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de-DE"), WithSampleRate(48000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.StreamConfig{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "sample_rate", "48000", q.Get("sample_rate"))
}

func TestBuildURL_LanguageOverridenByCfg(t *testing.T) {
	// cfg.Language should take precedence over the provider-level default.
	p, err := New("key", WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.StreamConfig{Language: "fr-FR", SampleRate: 16000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "fr-FR", u.Query().Get("language"))
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New with empty key: expected error, got nil")
	}
}

// ---- response parsing tests ----

func TestParseDeepgramResponse_Final(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "tell me about your experience",
				"confidence": 0.97,
				"words": [
					{"word": "tell", "start": 0.1, "end": 0.3, "confidence": 0.99}
				]
			}]
		}
	}`)

	tr, ok := parseDeepgramResponse(raw)
	if !ok {
		t.Fatal("parseDeepgramResponse: expected ok")
	}
	if !tr.IsFinal {
		t.Error("expected IsFinal = true")
	}
	assertEqual(t, "text", "tell me about your experience", tr.Text)
	if tr.Confidence != 0.97 {
		t.Errorf("confidence: got %v, want 0.97", tr.Confidence)
	}
	if len(tr.Words) != 1 {
		t.Fatalf("words: got %d, want 1", len(tr.Words))
	}
	if tr.Words[0].Start != 100*time.Millisecond {
		t.Errorf("word start: got %v, want 100ms", tr.Words[0].Start)
	}
}

func TestParseDeepgramResponse_Partial(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": false,
		"channel": {"alternatives": [{"transcript": "tell me", "confidence": 0.5}]}
	}`)

	tr, ok := parseDeepgramResponse(raw)
	if !ok {
		t.Fatal("parseDeepgramResponse: expected ok")
	}
	if tr.IsFinal {
		t.Error("expected IsFinal = false")
	}
	assertEqual(t, "text", "tell me", tr.Text)
}

func TestParseDeepgramResponse_Ignored(t *testing.T) {
	cases := map[string][]byte{
		"metadata event":  []byte(`{"type": "Metadata"}`),
		"no alternatives": []byte(`{"type": "Results", "channel": {"alternatives": []}}`),
		"invalid json":    []byte(`{nope`),
	}
	for name, raw := range cases {
		if _, ok := parseDeepgramResponse(raw); ok {
			t.Errorf("%s: expected message to be ignored", name)
		}
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
