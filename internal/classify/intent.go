package classify

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// fuzzyThreshold is the Jaro-Winkler score at which a whole utterance counts
// as a fuzzy match for an intent phrase. Catches STT mangling and typos
// ("lets moove on") without matching unrelated answers.
const fuzzyThreshold = 0.90

var skipPhrases = []string{
	"skip",
	"skip this",
	"skip this question",
	"next question",
	"move on",
	"let's move on",
	"lets move on",
	"pass",
	"another question",
	"different question",
	"ask me something else",
}

var repeatPhrases = []string{
	"can you repeat",
	"can you repeat that",
	"repeat that",
	"repeat the question",
	"say that again",
	"say it again",
	"what was the question",
	"come again",
	"pardon",
	"sorry, what",
}

var elaboratePhrases = []string{
	"what do you mean",
	"can you elaborate",
	"elaborate",
	"clarify",
	"could you clarify",
	"can you explain the question",
	"i don't understand",
	"i dont understand",
	"rephrase",
	"can you rephrase",
}

// IsSkipIntent reports whether the candidate asked to move to the next
// question.
func IsSkipIntent(text string) bool {
	return matchesIntent(text, skipPhrases)
}

// IsRepeatIntent reports whether the candidate asked to hear the last
// question again.
func IsRepeatIntent(text string) bool {
	return matchesIntent(text, repeatPhrases)
}

// IsElaborateIntent reports whether the candidate asked for the last question
// to be explained or rephrased.
func IsElaborateIntent(text string) bool {
	return matchesIntent(text, elaboratePhrases)
}

// matchesIntent checks short utterances against a phrase set: exact phrase
// containment first, then a fuzzy whole-utterance comparison. Long utterances
// never match; a real answer that merely mentions "pass" must not trigger an
// intent.
func matchesIntent(text string, phrases []string) bool {
	norm := Normalize(text)
	if norm == "" || WordCount(norm) > 8 {
		return false
	}
	for _, p := range phrases {
		pNorm := Normalize(p)
		if norm == pNorm || strings.Contains(norm, pNorm) && WordCount(pNorm) > 1 {
			return true
		}
		if matchr.JaroWinkler(norm, pNorm, false) >= fuzzyThreshold {
			return true
		}
	}
	return false
}
