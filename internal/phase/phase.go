// Package phase derives the current interview stage from the conversation
// alone. The progression is skills, then experience, then behavioral; a
// long-running interview switches to a wrap-up directive. No state is kept
// beyond the turn counts the caller supplies.
package phase

// Phase is one stage of an interview, with the prompt guidance that steers
// the model while the stage is active.
type Phase struct {
	Name     string
	Guidance string
}

// Thresholds for the stage progression, in turns.
const (
	experienceAfter = 2
	behavioralAfter = 5

	// wrapUpAfter is measured in interviewer turns only. Once the
	// interviewer has asked this many questions the interview narrows to
	// core skills and a short HR close, regardless of the base stage.
	wrapUpAfter = 10
)

var (
	technicalSkills = Phase{
		Name: "technical-skills",
		Guidance: "The interview is in its opening stage. Ask about the concrete " +
			"technologies and tools named in the job requirements. Keep the tone " +
			"encouraging and the questions focused on one technology at a time.",
	}
	experienceProjects = Phase{
		Name: "experience-projects",
		Guidance: "The interview has moved past basics. Ask how the candidate has " +
			"applied the job's technologies in real or hypothetical projects: " +
			"design decisions, trade-offs, and outcomes.",
	}
	behavioral = Phase{
		Name: "behavioral",
		Guidance: "The interview is in its late stage. Ask about work style, " +
			"collaboration, and learning approach, always tied back to fit for " +
			"this specific role.",
	}
	coreSkillsThenHR = Phase{
		Name: "core-skills-then-hr",
		Guidance: "The interview is long-running. Narrow the focus: ask 2-4 deep " +
			"probes on the core required skills, then close with 1-2 short " +
			"behavioral questions. Do not return to broad or unrelated topics.",
	}
)

// Track returns the active phase for a conversation with the given total
// turn count and interviewer turn count.
func Track(turnCount, interviewerTurns int) Phase {
	if interviewerTurns >= wrapUpAfter {
		return coreSkillsThenHR
	}
	switch {
	case turnCount < experienceAfter:
		return technicalSkills
	case turnCount < behavioralAfter:
		return experienceProjects
	default:
		return behavioral
	}
}
