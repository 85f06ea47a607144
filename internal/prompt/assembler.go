// Package prompt assembles layered generation prompts for interview turns.
// A prompt is built fresh for every attempt: persona first, then the
// invariant rule set, tier and anti-hallucination constraints, phase
// guidance, sanitized job and resume context, recent conversation, and
// finally any retry directive accumulated by the validation loop.
package prompt

import (
	"fmt"
	"strings"

	"github.com/coachly-ai/coachly/internal/classify"
	"github.com/coachly-ai/coachly/internal/interview"
	"github.com/coachly-ai/coachly/internal/phase"
	"github.com/coachly-ai/coachly/pkg/provider/llm"
)

// RetryPhase identifies which validation stage rejected the previous
// attempt, selecting the directive appended on regeneration.
type RetryPhase int

const (
	RetryNone RetryPhase = iota
	RetryFormat
	RetryHallucination
	RetryOpener
	RetryRepeat
)

// maxJobDescriptionChars clamps the sanitized job description that is
// interpolated into the prompt.
const maxJobDescriptionChars = 600

// maxResumeBullets bounds the resume summary to a handful of lines.
const maxResumeBullets = 6

// Spec describes one prompt-assembly request on top of an interview
// context.
type Spec struct {
	Retry RetryPhase

	// Avoid lists recently asked questions the model must not repeat.
	// Populated on RetryRepeat and for general dedup pressure.
	Avoid []string

	// Skip replaces the candidate's latest utterance with a topic-change
	// sentinel.
	Skip bool
}

// Prompt is an assembled generation request plus the ground-truth context
// used afterwards to detect invented entities.
type Prompt struct {
	Messages    []llm.Message
	Temperature float64

	// AllowedContext is everything the model was shown. Entities outside
	// of it are treated as hallucinated.
	AllowedContext string
}

// Build assembles the full prompt for one generation attempt. The caller
// validates ic beforehand; Build assumes it is well formed.
func Build(ic *interview.Context, spec Spec) Prompt {
	var sys []string
	sys = append(sys, personaFor(ic.Mode))
	sys = append(sys, ruleBlock)

	if ic.PlanTier == interview.TierStarter {
		sys = append(sys, starterBlock)
		if ic.Mode == interview.ModeStrict {
			sys = append(sys, starterStrictBlock)
		}
	}

	sys = append(sys, antiHallucinationBlock)

	ph := phase.Track(len(ic.Conversation), ic.InterviewerTurnCount())
	sys = append(sys, "Interview phase: "+ph.Name+".\n"+ph.Guidance)

	var allowed strings.Builder
	if ic.Job != nil {
		jb := renderJob(ic.Job)
		sys = append(sys, jb)
		allowed.WriteString(jb)
		allowed.WriteByte('\n')
	}
	// Starter-tier prompts never carry resume content, even when the
	// caller supplied it.
	if ic.PlanTier != interview.TierStarter && ic.Resume != nil && !ic.Resume.IsZero() {
		rb := renderResume(ic.Resume)
		sys = append(sys, rb)
		allowed.WriteString(rb)
		allowed.WriteByte('\n')
		if ic.Job != nil {
			sys = append(sys, jobPriorityBlock)
		}
	}

	if len(spec.Avoid) > 0 {
		sys = append(sys, renderAvoid(spec.Avoid))
	}

	if ic.BatchCount > 1 {
		sys = append(sys, fmt.Sprintf(
			"Generate exactly %d distinct interview questions, separated by %q. Output nothing else.",
			ic.BatchCount, classify.BatchDelimiter))
	}

	if d := retryDirective(spec.Retry); d != "" {
		sys = append(sys, d)
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: strings.Join(sys, "\n\n")}}
	msgs = append(msgs, conversationMessages(ic, spec.Skip)...)
	for _, t := range ic.Conversation {
		allowed.WriteString(t.Text)
		allowed.WriteByte('\n')
	}

	return Prompt{
		Messages:       msgs,
		Temperature:    temperatureFor(ic.Mode, spec.Retry),
		AllowedContext: allowed.String(),
	}
}

// repeatRetryTemperatureBoost nudges the repeat-retry generation away from
// the output it just produced.
const repeatRetryTemperatureBoost = 0.15

func temperatureFor(m interview.Mode, r RetryPhase) float64 {
	t := m.Temperature()
	if r == RetryRepeat {
		t = min(t+repeatRetryTemperatureBoost, 1.0)
	}
	return t
}

func personaFor(m interview.Mode) string {
	switch m {
	case interview.ModeFriendly:
		return personaFriendly
	case interview.ModeStrict:
		return personaStrict
	default:
		return personaModerate
	}
}

func retryDirective(r RetryPhase) string {
	switch r {
	case RetryFormat:
		return formatRetryDirective
	case RetryHallucination:
		return hallucinationRetryDirective
	case RetryOpener:
		return openerRetryDirective
	case RetryRepeat:
		// The avoid list carries the specifics; this just tightens intent.
		return "Your previous output repeated earlier ground. Ask about something genuinely new."
	default:
		return ""
	}
}

// conversationMessages maps interview turns onto chat roles. The latest
// candidate turn becomes the skip sentinel when requested; an empty
// conversation yields a single kickoff instruction.
func conversationMessages(ic *interview.Context, skip bool) []llm.Message {
	if len(ic.Conversation) == 0 {
		return []llm.Message{{
			Role:    llm.RoleUser,
			Content: "Begin the interview with your opening question.",
		}}
	}

	msgs := make([]llm.Message, 0, len(ic.Conversation))
	lastCandidate := -1
	for i, t := range ic.Conversation {
		if t.Speaker == interview.SpeakerCandidate {
			lastCandidate = i
		}
	}
	for i, t := range ic.Conversation {
		role := llm.RoleUser
		if t.Speaker == interview.SpeakerInterviewer {
			role = llm.RoleAssistant
		}
		text := t.Text
		if skip && i == lastCandidate {
			text = skipSentinel
		}
		msgs = append(msgs, llm.Message{Role: role, Content: text})
	}
	// Chat completions expect the final message to come from the user.
	if msgs[len(msgs)-1].Role == llm.RoleAssistant {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleUser,
			Content: "Continue with your next question.",
		})
	}
	return msgs
}

func renderJob(j *interview.JobSummary) string {
	var b strings.Builder
	b.WriteString("Target job:\n")
	fmt.Fprintf(&b, "- Role: %s\n", classify.Sanitize(j.Role))
	if j.Company != "" {
		fmt.Fprintf(&b, "- Company: %s\n", classify.Sanitize(j.Company))
	}
	if j.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", classify.Sanitize(j.Location))
	}
	if len(j.RequiredSkills) > 0 {
		fmt.Fprintf(&b, "- Required skills: %s\n", strings.Join(j.RequiredSkills, ", "))
	}
	if j.Description != "" {
		desc := classify.Sanitize(j.Description)
		if len(desc) > maxJobDescriptionChars {
			desc = strings.TrimSpace(desc[:maxJobDescriptionChars])
		}
		fmt.Fprintf(&b, "- Description: %s\n", desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderResume(r *interview.ResumeSummary) string {
	lines := make([]string, 0, maxResumeBullets)
	if r.PrimaryRole != "" {
		lines = append(lines, fmt.Sprintf("- Primary role: %s", classify.Sanitize(r.PrimaryRole)))
	}
	if r.YearsOfExperience > 0 {
		lines = append(lines, fmt.Sprintf("- Years of experience: %.1f", r.YearsOfExperience))
	}
	if len(r.TopSkills) > 0 {
		lines = append(lines, fmt.Sprintf("- Top skills: %s", strings.Join(r.TopSkills, ", ")))
	}
	if len(r.TopProjects) > 0 {
		lines = append(lines, fmt.Sprintf("- Notable projects: %s", strings.Join(r.TopProjects, "; ")))
	}
	if r.MostRecentRole != "" {
		lines = append(lines, fmt.Sprintf("- Most recent position: %s", classify.Sanitize(r.MostRecentRole)))
	}
	if len(lines) > maxResumeBullets {
		lines = lines[:maxResumeBullets]
	}
	return "Candidate resume summary:\n" + strings.Join(lines, "\n")
}

func renderAvoid(avoid []string) string {
	var b strings.Builder
	b.WriteString("Do not repeat or rephrase any of these already-asked questions:\n")
	for _, q := range avoid {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	return strings.TrimRight(b.String(), "\n")
}
