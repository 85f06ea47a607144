// Package loop runs the question pipeline: short-circuit intents, prompt
// assembly, generation, staged validation with bounded regeneration, and
// deterministic fallbacks when the model cannot produce a usable question.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coachly-ai/coachly/internal/classify"
	"github.com/coachly-ai/coachly/internal/generate"
	"github.com/coachly-ai/coachly/internal/history"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/prompt"
)

// maxGenerationCalls caps LLM calls per request across all validation
// retries combined.
const maxGenerationCalls = 5

// recentWindow is how many prior interviewer questions feed the avoid list
// and the repeat check.
const recentWindow = 3

// conversationSeedLimit bounds how many stored turns restore a transcript
// for a client that sent none.
const conversationSeedLimit = 40

// Word limits for an accepted question.
const (
	maxQuestionWords = 60
	maxOpeningWords  = 40
)

// Source identifies how a result was produced.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceTemplate  Source = "template"
	SourceRepeat    Source = "repeat"
	SourceRephrase  Source = "rephrase"
	SourceFallback  Source = "fallback"
)

// Result is the outcome of one pipeline run. Questions is populated in
// batch mode, Question otherwise.
type Result struct {
	Question  interview.ValidatedQuestion
	Questions []string
	Source    Source
}

// Pipeline owns the generation client and optional persistence, and is safe
// for concurrent use.
type Pipeline struct {
	client  *generate.Client
	store   history.Store
	metrics *observe.Metrics
	logger  *slog.Logger
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithStore enables conversation persistence and semantic repeat detection.
func WithStore(s history.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline around the generation client.
func New(client *generate.Client, opts ...Option) *Pipeline {
	p := &Pipeline{client: client}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// NextQuestion produces the next validated interviewer question (or batch)
// for the interview context.
//
// Invalid input fails with [interview.ErrInvalidInput]. A transport failure
// on the very first generation call fails with [generate.ErrUnavailable];
// transport failures during retries fall back to deterministic questions
// instead.
func (p *Pipeline) NextQuestion(ctx context.Context, ic *interview.Context) (*Result, error) {
	if ic.BatchCount == 0 {
		ic.BatchCount = 1
	}
	if err := ic.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "loop.next_question")
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if p.store != nil && len(ic.Conversation) == 0 {
		// A client reconnecting mid-interview sends no transcript. The
		// stored turn log restores it so the opener is not repeated.
		stored, err := p.store.Conversation(ctx, ic.ChatID, conversationSeedLimit)
		if err != nil {
			p.logger.Warn("failed to load stored conversation", "error", err)
		} else {
			ic.Conversation = stored
		}
	}

	// A brand-new interview gets a templated opener without touching the
	// model.
	if len(ic.Conversation) == 0 && ic.BatchCount <= 1 {
		return p.accept(ctx, ic, introQuestion(ic), SourceTemplate), nil
	}

	spec := prompt.Spec{Avoid: ic.RecentInterviewerQuestions(recentWindow)}
	if p.store != nil {
		// The stored turn log is authoritative; the client-supplied
		// conversation may omit questions asked in earlier requests.
		stored, err := p.store.RecentQuestions(ctx, ic.ChatID, recentWindow)
		if err != nil {
			p.logger.Warn("failed to load stored questions", "error", err)
		} else {
			spec.Avoid = mergeAvoid(spec.Avoid, stored)
		}
	}
	if ic.BatchCount <= 1 {
		if res, handled := p.shortCircuitIntent(ctx, ic, &spec); handled {
			return res, nil
		}
	}

	if ic.BatchCount > 1 {
		return p.runBatch(ctx, ic, spec)
	}
	return p.runLoop(ctx, ic, spec)
}

// shortCircuitIntent handles repeat and elaborate requests without running
// the validation loop, and flags skip requests for prompt assembly.
func (p *Pipeline) shortCircuitIntent(ctx context.Context, ic *interview.Context, spec *prompt.Spec) (*Result, bool) {
	last := ic.LatestCandidateText()
	if last == "" {
		return nil, false
	}

	switch {
	case classify.IsSkipIntent(last):
		spec.Skip = true
		return nil, false

	case classify.IsRepeatIntent(last):
		q := lastInterviewerQuestion(ic)
		if q == "" {
			return nil, false
		}
		ack := repeatAcks[rand.IntN(len(repeatAcks))]
		return &Result{
			Question: interview.ValidatedQuestion{
				Text:          ack + " " + q,
				TierCompliant: true,
			},
			Source: SourceRepeat,
		}, true

	case classify.IsElaborateIntent(last):
		q := lastInterviewerQuestion(ic)
		if q == "" {
			return nil, false
		}
		rephrased, err := p.client.Rephrase(ctx, q)
		if err != nil || !classify.IsValidQuestion(classify.Sanitize(rephrased)) {
			if err != nil {
				p.logger.Warn("rephrase failed, using verbatim question", "error", err)
			}
			rephrased = "Let me clarify: " + q
		} else {
			rephrased = classify.Sanitize(rephrased)
		}
		return &Result{
			Question: interview.ValidatedQuestion{
				Text:          rephrased,
				TierCompliant: true,
			},
			Source: SourceRephrase,
		}, true
	}
	return nil, false
}

// runLoop is the single-question validation loop. Each validation stage may
// trigger at most one regeneration, bounded overall by maxGenerationCalls.
func (p *Pipeline) runLoop(ctx context.Context, ic *interview.Context, spec prompt.Spec) (*Result, error) {
	recent := spec.Avoid
	retried := make(map[prompt.RetryPhase]bool)
	calls := 0

	for calls < maxGenerationCalls {
		pr := prompt.Build(ic, spec)
		raw, err := p.client.Generate(ctx, pr)
		calls++
		if err != nil {
			if calls == 1 && errors.Is(err, generate.ErrUnavailable) {
				return nil, fmt.Errorf("loop: first generation call: %w", err)
			}
			p.logger.Warn("generation call failed, falling back", "error", err, "calls", calls)
			break
		}

		text := classify.Sanitize(raw)
		stage, reason := p.validate(ctx, ic, text, pr.AllowedContext, recent)

		// A second format failure does not fall back yet: the clause around
		// the question mark is cut out and handed to the later stages.
		if stage == prompt.RetryFormat && retried[prompt.RetryFormat] {
			text = trimToQuestion(text)
			stage, reason = p.validate(ctx, ic, text, pr.AllowedContext, recent)
		}

		if stage == prompt.RetryNone {
			return p.accept(ctx, ic, text, SourceGenerated), nil
		}

		p.metrics.RecordRegeneration(ctx, reason)
		if retried[stage] || calls >= maxGenerationCalls {
			p.logger.Info("validation retries exhausted, falling back",
				"stage", reason, "calls", calls)
			break
		}
		retried[stage] = true
		spec.Retry = stage
		if stage == prompt.RetryRepeat {
			spec.Avoid = recent
		}
	}

	p.metrics.RecordFallback(ctx, "question")
	return p.accept(ctx, ic, fallbackQuestion(ic, recent), SourceFallback), nil
}

// validate runs the staged checks in order and reports the first failing
// stage, or RetryNone when the text is acceptable.
func (p *Pipeline) validate(ctx context.Context, ic *interview.Context, text, allowedContext string, recent []string) (prompt.RetryPhase, string) {
	// Format: exactly one question, no prefatory narrative before it,
	// nothing after it.
	qi := strings.Index(text, "?")
	if text == "" || qi < 0 || strings.Count(text, "?") != 1 ||
		!strings.HasSuffix(strings.Trim(text, `"'`), "?") ||
		strings.ContainsAny(text[:qi], ".!;") {
		return prompt.RetryFormat, "format"
	}

	if entities := classify.DetectHallucinatedEntities(text, allowedContext); len(entities) > 0 {
		p.logger.Debug("hallucinated entities detected", "entities", entities)
		return prompt.RetryHallucination, "hallucination"
	}

	if !classify.IsValidQuestion(text) || classify.IsAnswerLike(text) {
		return prompt.RetryOpener, "opener"
	}
	if classify.WordCount(text) > p.wordLimit(ic) {
		return prompt.RetryOpener, "length"
	}

	if classify.IsRepeatOf(text, recent) {
		return prompt.RetryRepeat, "repeat"
	}
	if p.store != nil {
		dup, err := history.IsNearDuplicate(ctx, p.store, ic.ChatID, text)
		if err != nil {
			p.logger.Warn("semantic repeat check failed", "error", err)
		} else if dup {
			return prompt.RetryRepeat, "repeat"
		}
	}
	return prompt.RetryNone, ""
}

func (p *Pipeline) wordLimit(ic *interview.Context) int {
	if ic.InterviewerTurnCount() == 0 {
		return maxOpeningWords
	}
	return maxQuestionWords
}

// runBatch generates a question batch in one call. Batch output skips the
// validation loop for latency; malformed segments are dropped by extraction.
func (p *Pipeline) runBatch(ctx context.Context, ic *interview.Context, spec prompt.Spec) (*Result, error) {
	pr := prompt.Build(ic, spec)
	raw, err := p.client.Generate(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("loop: batch generation: %w", err)
	}

	questions := classify.ExtractBatchQuestions(raw, ic.BatchCount)
	if len(questions) == 0 {
		// Nothing question-shaped came back; serve the whole response as
		// a single question rather than fail the request.
		q := strings.TrimSpace(classify.Sanitize(raw))
		if !strings.HasSuffix(q, "?") {
			q += "?"
		}
		questions = []string{q}
		p.metrics.RecordFallback(ctx, "batch")
	}
	return &Result{Questions: questions, Source: SourceGenerated}, nil
}

// accept finalises a question: a terminal question mark is guaranteed, the
// result is recorded in history when persistence is enabled.
func (p *Pipeline) accept(ctx context.Context, ic *interview.Context, text string, src Source) *Result {
	text = strings.TrimSpace(text)
	if !strings.HasSuffix(text, "?") {
		text += "?"
	}

	if p.store != nil {
		// Turn log and question index are independent writes.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return p.store.AppendTurn(gctx, ic.ChatID, interview.Turn{
				Speaker: interview.SpeakerInterviewer,
				Text:    text,
			})
		})
		g.Go(func() error {
			return p.store.IndexQuestion(gctx, ic.ChatID, text)
		})
		if err := g.Wait(); err != nil {
			p.logger.Warn("failed to persist interviewer question", "error", err)
		}
	}

	return &Result{
		Question: interview.ValidatedQuestion{Text: text, TierCompliant: true},
		Source:   src,
	}
}

// trimToQuestion cuts model output down to the clause ending at its first
// question mark, dropping prefatory narrative and trailing explanation.
// Text without a question mark is returned unchanged.
func trimToQuestion(text string) string {
	qi := strings.Index(text, "?")
	if qi < 0 {
		return text
	}
	clause := text[:qi+1]
	if i := strings.LastIndexAny(clause[:qi], ".!;"); i >= 0 {
		clause = clause[i+1:]
	}
	return strings.Trim(strings.TrimSpace(clause), `"'`)
}

// mergeAvoid appends stored questions not already present in the
// client-supplied list. Comparison is case-insensitive.
func mergeAvoid(client, stored []string) []string {
	seen := make(map[string]bool, len(client))
	for _, q := range client {
		seen[strings.ToLower(strings.TrimSpace(q))] = true
	}
	out := client
	for _, q := range stored {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// lastInterviewerQuestion walks the conversation backwards for the most
// recent turn that plausibly was a question.
func lastInterviewerQuestion(ic *interview.Context) string {
	for i := len(ic.Conversation) - 1; i >= 0; i-- {
		t := ic.Conversation[i]
		if t.Speaker != interview.SpeakerInterviewer {
			continue
		}
		text := strings.TrimSpace(t.Text)
		if strings.Contains(text, "?") || len(text) > 30 || startsWithQuestionWord(text) {
			return text
		}
	}
	return ""
}

func startsWithQuestionWord(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "what", "how", "why", "when", "where", "who", "which", "describe", "explain", "tell":
		return true
	}
	return false
}
