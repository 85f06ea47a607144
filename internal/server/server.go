// Package server wires the question pipeline, the voice session, and the
// operational endpoints into one HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coachly-ai/coachly/internal/health"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/loop"
	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/voice"
)

// QuestionService produces the next interview question for a request
// context. Implemented by [loop.Pipeline].
type QuestionService interface {
	NextQuestion(ctx context.Context, ic *interview.Context) (*loop.Result, error)
}

// Server holds the handler dependencies. Construct with [New], then mount
// [Server.Router].
type Server struct {
	questions QuestionService
	voiceCfg  voice.Config
	health    *health.Handler

	defaultTier interview.PlanTier
	defaultMode interview.Mode

	metrics *observe.Metrics
	logger  *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithVoice enables the live voice endpoint with the given session config.
func WithVoice(cfg voice.Config) Option {
	return func(s *Server) { s.voiceCfg = cfg }
}

// WithHealth sets the health handler serving /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithDefaults sets the plan tier and mode applied to requests that omit
// them.
func WithDefaults(tier interview.PlanTier, mode interview.Mode) Option {
	return func(s *Server) {
		if tier.IsValid() {
			s.defaultTier = tier
		}
		if mode.IsValid() {
			s.defaultMode = mode
		}
	}
}

// WithMetrics sets the metrics bundle. Defaults to the process-wide bundle.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server around the question service.
func New(questions QuestionService, opts ...Option) *Server {
	s := &Server{
		questions:   questions,
		health:      health.New(),
		defaultTier: interview.TierValue,
		defaultMode: interview.ModeModerate,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	r.Get("/healthz", s.health.Healthz)
	r.Get("/readyz", s.health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/interview/question", s.handleQuestion)

	if s.voiceCfg.LLM != nil && s.voiceCfg.STT != nil {
		r.Get("/ws/interview/voice", s.handleVoice)
	}

	return r
}
