package interview

import (
	"errors"
	"strings"
	"testing"
)

func validContext() *Context {
	return &Context{
		ChatID:     "chat-1",
		PlanTier:   TierValue,
		Mode:       ModeModerate,
		Job:        &JobSummary{Role: "Backend Engineer"},
		BatchCount: 1,
	}
}

func TestContext_Validate_OK(t *testing.T) {
	if err := validContext().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestContext_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Context)
		want   string
	}{
		{"unknown tier", func(c *Context) { c.PlanTier = "platinum" }, "plan tier"},
		{"unknown mode", func(c *Context) { c.Mode = "casual" }, "interview mode"},
		{"missing job", func(c *Context) { c.Job = nil }, "job summary"},
		{"blank role", func(c *Context) { c.Job = &JobSummary{Role: "   "} }, "job summary"},
		{"batch too low", func(c *Context) { c.BatchCount = 0 }, "batch count"},
		{"batch too high", func(c *Context) { c.BatchCount = 4 }, "batch count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := validContext()
			tt.mutate(ic)
			err := ic.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestContext_Validate_JoinsAllFailures(t *testing.T) {
	ic := &Context{PlanTier: "nope", Mode: "nah"}
	err := ic.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"plan tier", "interview mode", "job summary", "batch count"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestMode_Temperature(t *testing.T) {
	tests := []struct {
		mode Mode
		want float64
	}{
		{ModeFriendly, 0.6},
		{ModeModerate, 0.35},
		{ModeStrict, 0.1},
	}
	for _, tt := range tests {
		if got := tt.mode.Temperature(); got != tt.want {
			t.Errorf("%s temperature = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestContext_LatestCandidateText(t *testing.T) {
	ic := validContext()
	if got := ic.LatestCandidateText(); got != "" {
		t.Errorf("LatestCandidateText() = %q, want empty for new interview", got)
	}

	ic.Conversation = []Turn{
		{Speaker: SpeakerInterviewer, Text: "What is a goroutine?"},
		{Speaker: SpeakerCandidate, Text: "A lightweight thread."},
		{Speaker: SpeakerInterviewer, Text: "How do channels work?"},
		{Speaker: SpeakerCandidate, Text: "They synchronize goroutines."},
	}
	if got, want := ic.LatestCandidateText(), "They synchronize goroutines."; got != want {
		t.Errorf("LatestCandidateText() = %q, want %q", got, want)
	}
}

func TestContext_InterviewerTurnCount(t *testing.T) {
	ic := validContext()
	if got := ic.InterviewerTurnCount(); got != 0 {
		t.Errorf("InterviewerTurnCount() = %d, want 0", got)
	}
	ic.Conversation = []Turn{
		{Speaker: SpeakerInterviewer, Text: "Q1?"},
		{Speaker: SpeakerCandidate, Text: "A1"},
		{Speaker: SpeakerInterviewer, Text: "Q2?"},
	}
	if got := ic.InterviewerTurnCount(); got != 2 {
		t.Errorf("InterviewerTurnCount() = %d, want 2", got)
	}
}

func TestContext_RecentInterviewerQuestions(t *testing.T) {
	ic := validContext()
	ic.Conversation = []Turn{
		{Speaker: SpeakerInterviewer, Text: "Q1?"},
		{Speaker: SpeakerCandidate, Text: "A1"},
		{Speaker: SpeakerInterviewer, Text: "Q2?"},
		{Speaker: SpeakerCandidate, Text: "A2"},
		{Speaker: SpeakerInterviewer, Text: "Q3?"},
	}

	got := ic.RecentInterviewerQuestions(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Chronological order, most recent last.
	if got[0] != "Q2?" || got[1] != "Q3?" {
		t.Errorf("questions = %v, want [Q2? Q3?]", got)
	}
}

func TestResumeSummary_IsZero(t *testing.T) {
	var nilSummary *ResumeSummary
	if !nilSummary.IsZero() {
		t.Error("nil summary should be zero")
	}
	if !(&ResumeSummary{YearsOfExperience: 3}).IsZero() {
		t.Error("summary with only years should be zero")
	}
	if (&ResumeSummary{PrimaryRole: "SRE"}).IsZero() {
		t.Error("summary with a role should not be zero")
	}
}
