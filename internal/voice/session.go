// Package voice runs live interview sessions over a websocket: binary audio
// frames stream into a live transcription backend, final transcripts drive
// streamed question generation, and short feedback snippets come back as
// synthesized audio.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/coachly-ai/coachly/internal/classify"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/prompt"
	"github.com/coachly-ai/coachly/pkg/provider/llm"
	"github.com/coachly-ai/coachly/pkg/provider/stt"
	"github.com/coachly-ai/coachly/pkg/provider/tts"
	"github.com/coachly-ai/coachly/pkg/types"
)

const (
	// historyCap bounds the per-session conversation memory.
	historyCap = 20

	// maxFeedbackTTSChars bounds which feedback segments get synthesized.
	// Longer feedback is sent as text only to keep synthesis latency low.
	maxFeedbackTTSChars = 20

	// sampleRate is the fixed audio format of inbound binary frames.
	sampleRate = 16000

	defaultGenerationTimeout = 60 * time.Second
)

// voiceFormatBlock is appended to the assembled system prompt so streamed
// output can be split into feedback and question segments as tokens arrive.
const voiceFormatBlock = `You are in live voice mode. Respond with exactly two bracketed sections
and nothing else: [FEEDBACK: one or two encouraging words, under 20
characters] immediately followed by [QUESTION: your next interview
question].`

// Conn is the subset of [*websocket.Conn] the session needs, extracted so
// tests can run without a network connection.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Config carries the session's collaborators. LLM and STT are required;
// a nil TTS disables audio feedback.
type Config struct {
	LLM   llm.Provider
	STT   stt.Provider
	TTS   tts.Provider
	Voice types.VoiceProfile

	// PlanTier applies when the client does not send one. Defaults to the
	// value tier.
	PlanTier interview.PlanTier

	// GenerationTimeout bounds one full response turn, streaming and
	// synthesis included. Defaults to 60s.
	GenerationTimeout time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Session is one live voice interview bound to a single connection.
type Session struct {
	conn Conn
	cfg  Config

	writeMu sync.Mutex

	mu           sync.Mutex
	isProcessing bool
	handle       stt.SessionHandle
	chatID       string
	mode         interview.Mode
	tier         interview.PlanTier
	job          *interview.JobSummary
	history      []interview.Turn

	wg sync.WaitGroup
}

// NewSession wraps conn in a voice session. Call [Session.Run] to serve it.
func NewSession(conn Conn, cfg Config) *Session {
	if cfg.PlanTier == "" {
		cfg.PlanTier = interview.TierValue
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{conn: conn, cfg: cfg}
}

// Run serves the connection until the client disconnects or ctx is
// cancelled. Teardown is guaranteed: the transcription handle is closed and
// in-flight response turns are drained on every exit path.
func (s *Session) Run(ctx context.Context) error {
	s.cfg.Metrics.ActiveVoiceSessions.Add(ctx, 1)
	defer s.cfg.Metrics.ActiveVoiceSessions.Add(context.WithoutCancel(ctx), -1)
	defer s.teardown()

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) ||
				websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}
			return fmt.Errorf("voice: read: %w", err)
		}

		switch typ {
		case websocket.MessageBinary:
			s.forwardAudio(data)
		case websocket.MessageText:
			s.handleControl(ctx, data)
		}
	}
}

// forwardAudio passes one raw PCM frame to the live transcription backend.
// Frames arriving before start_stream are ignored.
func (s *Session) forwardAudio(frame []byte) {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return
	}
	if err := handle.SendAudio(frame); err != nil {
		s.cfg.Logger.Warn("failed to forward audio frame", "error", err)
		s.cfg.Metrics.RecordProviderError(context.Background(), "stt", "send_audio")
	}
}

func (s *Session) handleControl(ctx context.Context, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(ctx, "malformed control message")
		return
	}

	switch msg.Type {
	case msgStartStream:
		s.startStream(ctx, msg)
	case msgStopStream:
		s.stopStream(ctx)
	case msgPing:
		s.send(ctx, serverEvent{Type: evtPong})
	default:
		s.sendError(ctx, "unknown message type "+msg.Type)
	}
}

func (s *Session) startStream(ctx context.Context, msg clientMessage) {
	if msg.ChatID == "" {
		s.sendError(ctx, "chatId is required")
		return
	}

	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		s.sendError(ctx, "stream already started")
		return
	}
	s.mu.Unlock()

	handle, err := s.cfg.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: sampleRate,
		Channels:   1,
	})
	if err != nil {
		s.cfg.Logger.Error("failed to open transcription stream", "error", err)
		s.cfg.Metrics.RecordProviderError(ctx, "stt", "start_stream")
		s.sendError(ctx, "transcription unavailable")
		return
	}

	mode := interview.Mode(msg.Mode)
	if !mode.IsValid() {
		mode = interview.ModeFriendly
	}
	tier := s.cfg.PlanTier
	if t := interview.PlanTier(msg.PlanTier); t.IsValid() {
		tier = t
	}

	s.mu.Lock()
	s.handle = handle
	s.chatID = msg.ChatID
	s.mode = mode
	s.tier = tier
	s.job = jobFromContext(msg.JobContext)
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		for t := range handle.Partials() {
			s.send(ctx, serverEvent{Type: evtTranscriptPartial, Text: t.Text})
		}
	}()
	go func() {
		defer s.wg.Done()
		for t := range handle.Finals() {
			if t.Duration > 0 {
				s.cfg.Metrics.STTDuration.Record(ctx, t.Duration.Seconds())
			}
			s.onFinal(ctx, t.Text)
		}
	}()

	s.cfg.Logger.Info("voice stream started", "chat_id", msg.ChatID, "mode", string(mode))
	s.send(ctx, serverEvent{Type: evtStreamReady})
}

func (s *Session) stopStream(ctx context.Context) {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			s.cfg.Logger.Warn("failed to close transcription stream", "error", err)
		}
	}
	s.send(ctx, serverEvent{Type: evtStreamStopped})
}

// onFinal handles one authoritative transcript. At most one response turn
// runs at a time; finals arriving mid-turn are dropped, not queued.
func (s *Session) onFinal(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.cfg.Metrics.DroppedFinals.Add(ctx, 1)
		s.cfg.Logger.Debug("dropping final transcript, turn in flight")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.isProcessing = false
			s.mu.Unlock()
		}()
		s.respond(ctx, text)
	}()
}

// respond runs one full response turn: stream tokens, parse markers,
// synthesize short feedback, emit the completion event.
func (s *Session) respond(ctx context.Context, userText string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	s.send(ctx, serverEvent{Type: evtTranscriptFinal, Text: userText})

	s.mu.Lock()
	s.history = appendCapped(s.history, interview.Turn{
		Speaker: interview.SpeakerCandidate,
		Text:    userText,
	})
	ic := &interview.Context{
		ChatID:       s.chatID,
		PlanTier:     s.tier,
		Mode:         s.mode,
		Job:          s.job,
		Conversation: slices.Clone(s.history),
		BatchCount:   1,
	}
	s.mu.Unlock()

	pr := prompt.Build(ic, prompt.Spec{})
	pr.Messages[0].Content += "\n\n" + voiceFormatBlock

	start := time.Now()
	ch, err := s.cfg.LLM.StreamCompletion(ctx, llm.CompletionRequest{
		Messages:    pr.Messages,
		Temperature: pr.Temperature,
		MaxTokens:   300,
		Tier:        llm.TierChat,
	})
	if err != nil {
		s.cfg.Logger.Error("streamed generation failed", "error", err)
		s.cfg.Metrics.RecordGenerationCall(ctx, "voice", "error")
		s.sendError(ctx, "generation failed")
		return
	}

	var parser MarkerParser
	var full strings.Builder
	for chunk := range ch {
		if chunk.Text != "" {
			full.WriteString(chunk.Text)
			parser.Feed(chunk.Text)
			s.send(ctx, serverEvent{Type: evtResponseChunk, Content: chunk.Text})
		}
		if chunk.FinishReason == "error" {
			s.cfg.Logger.Warn("generation stream ended with error")
			s.cfg.Metrics.RecordGenerationCall(ctx, "voice", "error")
			s.sendError(ctx, "generation interrupted")
			return
		}
	}
	s.cfg.Metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())
	s.cfg.Metrics.RecordGenerationCall(ctx, "voice", "ok")

	feedback := parser.Feedback()
	question := classify.Sanitize(parser.Question())
	fullResponse := strings.TrimSpace(full.String())
	if question == "" {
		// Marker-free output still has to yield a question.
		question = classify.Sanitize(fullResponse)
	}
	if question != "" && !strings.HasSuffix(question, "?") {
		question += "?"
	}

	var audioB64 string
	if feedback != "" && len(feedback) <= maxFeedbackTTSChars && s.cfg.TTS != nil {
		ttsStart := time.Now()
		audio, err := s.cfg.TTS.Synthesize(ctx, feedback, s.cfg.Voice)
		s.cfg.Metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
		if err != nil {
			s.cfg.Logger.Warn("feedback synthesis failed", "error", err)
			s.cfg.Metrics.RecordProviderError(ctx, "tts", "synthesize")
		} else {
			audioB64 = base64.StdEncoding.EncodeToString(audio)
		}
	}

	s.mu.Lock()
	s.history = appendCapped(s.history, interview.Turn{
		Speaker: interview.SpeakerInterviewer,
		Text:    fullResponse,
	})
	s.mu.Unlock()

	s.send(ctx, completeEvent{
		Type:         evtResponseComplete,
		Feedback:     feedback,
		Question:     question,
		FullResponse: fullResponse,
		AudioBase64:  audioB64,
		HasAudio:     audioB64 != "",
	})
}

// teardown closes the transcription handle and waits for pumps and any
// in-flight response turn. Runs on every Run exit path.
func (s *Session) teardown() {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			s.cfg.Logger.Warn("failed to close transcription stream", "error", err)
		}
	}
	s.wg.Wait()
}

// send marshals and writes one event. Writes are serialised so concurrent
// pumps and response turns cannot interleave frames.
func (s *Session) send(ctx context.Context, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		s.cfg.Logger.Error("failed to marshal event", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.cfg.Logger.Debug("failed to write event", "error", err)
	}
}

func (s *Session) sendError(ctx context.Context, message string) {
	s.send(ctx, serverEvent{Type: evtError, Message: message})
}

func appendCapped(history []interview.Turn, turn interview.Turn) []interview.Turn {
	history = append(history, turn)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

// jobFromContext reduces the free-form job context supplied at stream start
// to the structured summary the prompt assembler expects.
func jobFromContext(jobContext string) *interview.JobSummary {
	desc := strings.TrimSpace(jobContext)
	if desc == "" {
		return &interview.JobSummary{Role: "the advertised position"}
	}
	return &interview.JobSummary{
		Role:           "the advertised position",
		Description:    desc,
		RequiredSkills: classify.ExtractRequiredSkills(desc),
	}
}
