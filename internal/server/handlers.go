package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/coachly-ai/coachly/internal/generate"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/voice"
)

// maxQuestionBodyBytes bounds the request body; job descriptions and
// conversations are short by construction.
const maxQuestionBodyBytes = 256 << 10

type jobPayload struct {
	Role           string   `json:"role"`
	Company        string   `json:"company,omitempty"`
	Location       string   `json:"location,omitempty"`
	RequiredSkills []string `json:"requiredSkills,omitempty"`
	Description    string   `json:"description,omitempty"`
}

type resumePayload struct {
	PrimaryRole       string   `json:"primaryRole,omitempty"`
	YearsOfExperience float64  `json:"yearsOfExperience,omitempty"`
	TopSkills         []string `json:"topSkills,omitempty"`
	TopProjects       []string `json:"topProjects,omitempty"`
	MostRecentRole    string   `json:"mostRecentRole,omitempty"`
}

type turnPayload struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type questionRequest struct {
	ChatID       string         `json:"chatId"`
	PlanTier     string         `json:"planTier,omitempty"`
	Mode         string         `json:"mode,omitempty"`
	Job          *jobPayload    `json:"job"`
	Resume       *resumePayload `json:"resume,omitempty"`
	Conversation []turnPayload  `json:"conversation"`
	BatchCount   int            `json:"batchCount,omitempty"`
}

type questionResponse struct {
	Response  string   `json:"response"`
	Responses []string `json:"responses,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxQuestionBodyBytes)
	dec := json.NewDecoder(body)

	var req questionRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ic := s.toContext(&req)
	result, err := s.questions.NextQuestion(r.Context(), ic)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, generate.ErrUnavailable):
			s.logger.Error("generation backend unavailable", "error", err)
			writeError(w, http.StatusBadGateway, "question generation is temporarily unavailable")
		default:
			s.logger.Error("question request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := questionResponse{Response: result.Question.Text}
	if len(result.Questions) > 0 {
		resp.Response = result.Questions[0]
		resp.Responses = result.Questions
	}
	writeJSON(w, http.StatusOK, resp)
}

// toContext maps the wire request onto the pipeline's request context,
// applying the server's tier and mode defaults.
func (s *Server) toContext(req *questionRequest) *interview.Context {
	ic := &interview.Context{
		ChatID:     req.ChatID,
		PlanTier:   s.defaultTier,
		Mode:       s.defaultMode,
		BatchCount: req.BatchCount,
	}
	if req.PlanTier != "" {
		ic.PlanTier = interview.PlanTier(req.PlanTier)
	}
	if req.Mode != "" {
		ic.Mode = interview.Mode(req.Mode)
	}
	if req.Job != nil {
		ic.Job = &interview.JobSummary{
			Role:           req.Job.Role,
			Company:        req.Job.Company,
			Location:       req.Job.Location,
			RequiredSkills: req.Job.RequiredSkills,
			Description:    req.Job.Description,
		}
	}
	if req.Resume != nil {
		ic.Resume = &interview.ResumeSummary{
			PrimaryRole:       req.Resume.PrimaryRole,
			YearsOfExperience: req.Resume.YearsOfExperience,
			TopSkills:         req.Resume.TopSkills,
			TopProjects:       req.Resume.TopProjects,
			MostRecentRole:    req.Resume.MostRecentRole,
		}
	}
	for _, t := range req.Conversation {
		ic.Conversation = append(ic.Conversation, interview.Turn{
			Speaker: interview.Speaker(t.Speaker),
			Text:    t.Text,
		})
	}
	return ic
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	logger := observe.Logger(r.Context())
	cfg := s.voiceCfg
	cfg.Metrics = s.metrics
	cfg.Logger = logger

	session := voice.NewSession(conn, cfg)
	if err := session.Run(r.Context()); err != nil {
		logger.Warn("voice session ended with error", "error", err)
		conn.Close(websocket.StatusInternalError, "session error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
