// Package interview defines the per-request domain types of the question
// generation pipeline: plan tiers, interviewer modes, conversation turns, and
// the immutable request context assembled from them.
package interview

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks request construction failures. Handlers map it to a
// client error; it is never retried.
var ErrInvalidInput = errors.New("invalid input")

// PlanTier is the caller-supplied access level. It scopes which context
// (job-only vs. job+resume) may enter the prompt.
type PlanTier string

const (
	TierStarter   PlanTier = "starter"
	TierValue     PlanTier = "value"
	TierUnlimited PlanTier = "unlimited"
)

// IsValid reports whether t is a known plan tier.
func (t PlanTier) IsValid() bool {
	switch t {
	case TierStarter, TierValue, TierUnlimited:
		return true
	}
	return false
}

// Mode selects the interviewer persona and its generation temperature.
type Mode string

const (
	ModeFriendly Mode = "friendly"
	ModeModerate Mode = "moderate"
	ModeStrict   Mode = "strict"
)

// IsValid reports whether m is a known interview mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeFriendly, ModeModerate, ModeStrict:
		return true
	}
	return false
}

// Temperature returns the sampling temperature fixed by the persona.
// Variance decreases as rigor increases: strict interviews must be
// deterministic and uncompromising rather than creative.
func (m Mode) Temperature() float64 {
	switch m {
	case ModeFriendly:
		return 0.6
	case ModeStrict:
		return 0.1
	default:
		return 0.35
	}
}

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Turn is one utterance in the conversation. Ordering is significant
// (chronological) and is the sole signal the phase tracker and the
// repetition checker use.
type Turn struct {
	Speaker Speaker
	Text    string
}

// JobSummary is the condensed job description supplied to the prompt.
type JobSummary struct {
	Role           string
	Company        string
	Location       string
	RequiredSkills []string // at most 5, ordered by importance
	Description    string   // clamped to 600 chars before prompt interpolation
}

// ResumeSummary is a condensed projection of an externally owned
// resume-analysis record. Built once, reused across a session.
type ResumeSummary struct {
	PrimaryRole       string
	YearsOfExperience float64
	TopSkills         []string // at most 3
	TopProjects       []string // at most 3
	MostRecentRole    string
}

// IsZero reports whether the summary carries no usable content.
func (r *ResumeSummary) IsZero() bool {
	if r == nil {
		return true
	}
	return r.PrimaryRole == "" && r.MostRecentRole == "" &&
		len(r.TopSkills) == 0 && len(r.TopProjects) == 0
}

// Context is the immutable per-request input to the pipeline. Created fresh
// per request and never persisted by this subsystem. The pipeline only reads
// Conversation, never mutates it.
type Context struct {
	ChatID       string
	PlanTier     PlanTier
	Mode         Mode
	Job          *JobSummary
	Resume       *ResumeSummary
	Conversation []Turn
	BatchCount   int
}

// Validate checks the request-level invariants. All failures wrap
// ErrInvalidInput.
func (c *Context) Validate() error {
	var errs []error
	if !c.PlanTier.IsValid() {
		errs = append(errs, fmt.Errorf("unknown plan tier %q", c.PlanTier))
	}
	if !c.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("unknown interview mode %q", c.Mode))
	}
	if c.Job == nil || strings.TrimSpace(c.Job.Role) == "" {
		errs = append(errs, errors.New("job summary with a role is required"))
	}
	if c.BatchCount < 1 || c.BatchCount > 3 {
		errs = append(errs, fmt.Errorf("batch count %d out of range [1,3]", c.BatchCount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// LatestCandidateText returns the text of the most recent candidate turn, or
// "" if the candidate has not spoken yet.
func (c *Context) LatestCandidateText() string {
	for i := len(c.Conversation) - 1; i >= 0; i-- {
		if c.Conversation[i].Speaker == SpeakerCandidate {
			return c.Conversation[i].Text
		}
	}
	return ""
}

// InterviewerTurnCount returns how many turns the interviewer has taken.
func (c *Context) InterviewerTurnCount() int {
	n := 0
	for _, t := range c.Conversation {
		if t.Speaker == SpeakerInterviewer {
			n++
		}
	}
	return n
}

// RecentInterviewerQuestions returns up to the last n interviewer turns,
// most recent last. Used by the repeat check and the repeat-retry directive.
func (c *Context) RecentInterviewerQuestions(n int) []string {
	var out []string
	for i := len(c.Conversation) - 1; i >= 0 && len(out) < n; i-- {
		if c.Conversation[i].Speaker == SpeakerInterviewer {
			out = append(out, c.Conversation[i].Text)
		}
	}
	// Restore chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ValidatedQuestion is the pipeline's final output. Text always ends with
// '?', is never empty, and is at most 60 words (40 for the opening question).
type ValidatedQuestion struct {
	Text          string
	TierCompliant bool
}
