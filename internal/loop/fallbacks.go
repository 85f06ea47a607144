package loop

import (
	"fmt"
	"strings"

	"github.com/coachly-ai/coachly/internal/classify"
	"github.com/coachly-ai/coachly/internal/interview"
)

// fallbackQuestions is the last-resort pool used when no skills-based or
// role-based fallback applies. Entries are ordered by usefulness; the first
// one that does not overlap recent questions wins.
var fallbackQuestions = []string{
	"What do you consider your strongest technical skill, and how have you applied it recently?",
	"Can you walk me through a challenging problem you solved and how you approached it?",
	"How do you approach learning a new technology or tool under time pressure?",
	"What part of your recent work are you most proud of, and why?",
	"How do you make sure your work is reliable before you ship it?",
}

// repeatAcks prefix a verbatim repeated question so it does not sound
// robotic.
var repeatAcks = []string{
	"Of course, here it is again:",
	"Sure, let me repeat that:",
	"No problem, once more:",
}

// introTemplates produce the deterministic opening question per mode.
var introTemplates = map[interview.Mode]string{
	interview.ModeFriendly: "Welcome, and thanks for taking the time today! We'll be talking about the %s role. To start, could you tell me a bit about yourself and what drew you to this position?",
	interview.ModeModerate: "Thank you for joining. This interview is for the %s position. To begin, can you walk me through your professional background?",
	interview.ModeStrict:   "Let's begin. You are interviewing for the %s position. Describe your background and explain precisely why you are qualified for it?",
}

// introQuestion renders the opening question for an interview with no
// conversation yet.
func introQuestion(ic *interview.Context) string {
	role := "this"
	if ic.Job != nil && ic.Job.Role != "" {
		role = ic.Job.Role
	}
	tpl, ok := introTemplates[ic.Mode]
	if !ok {
		tpl = introTemplates[interview.ModeModerate]
	}
	return fmt.Sprintf(tpl, role)
}

// fallbackQuestion picks a deterministic replacement question when
// generation could not produce a valid one. Preference order: an unasked
// required skill, a generic role question, then the fixed pool.
func fallbackQuestion(ic *interview.Context, recent []string) string {
	if ic.Job != nil {
		for _, skill := range ic.Job.RequiredSkills {
			q := fmt.Sprintf("Can you describe your hands-on experience with %s?", skill)
			if !mentionedIn(skill, recent) && !classify.IsRepeatOf(q, recent) {
				return q
			}
		}
		if ic.Job.Role != "" {
			q := fmt.Sprintf("What interests you most about working as a %s?", ic.Job.Role)
			if !classify.IsRepeatOf(q, recent) {
				return q
			}
		}
	}
	for _, q := range fallbackQuestions {
		if !classify.IsRepeatOf(q, recent) {
			return q
		}
	}
	// Everything overlaps; repeat the least specific entry rather than fail.
	return fallbackQuestions[len(fallbackQuestions)-1]
}

func mentionedIn(term string, questions []string) bool {
	term = strings.ToLower(term)
	for _, q := range questions {
		if strings.Contains(strings.ToLower(q), term) {
			return true
		}
	}
	return false
}
