// Package classify implements the heuristic text classifiers of the question
// pipeline: question-shape and answer-shape predicates, hallucinated-entity
// detection, text sanitization, overlap similarity, and batch extraction.
//
// Everything here is a pure function over strings. The classifiers are
// surface heuristics, not guarantees: the LLM has no hard output schema, so
// format is verified post-hoc. Keeping them in one package makes the layer
// swappable should constrained decoding ever replace it.
package classify

import (
	"regexp"
	"strings"
)

// questionOpeners is the fixed interrogative/request-opener set. A valid
// question must start with one of these words.
var questionOpeners = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"describe": {}, "explain": {}, "can": {}, "could": {}, "do": {},
	"did": {}, "are": {}, "is": {}, "would": {}, "should": {}, "tell": {},
	"walk": {}, "compare": {}, "which": {}, "whom": {}, "please": {},
}

// answerOpeners flag first-person narrative starts: the model answered
// instead of asking.
var answerOpeners = []string{
	"i ", "i've ", "i'd ", "we ", "during ", "in my ", "absolutely", "sure", "yes,",
}

var (
	digitsOnlyRe = regexp.MustCompile(`^[\d\s?.!,]+$`)
	wordRe       = regexp.MustCompile(`[a-z0-9']+`)
)

// IsValidQuestion reports whether text looks like a single well-formed
// interview question: non-empty, ends with '?', at least 3 words, not purely
// numeric, and opening with a known interrogative or request verb.
func IsValidQuestion(text string) bool {
	t := strings.Trim(strings.TrimSpace(text), `"'`)
	if t == "" || !strings.HasSuffix(t, "?") {
		return false
	}
	if digitsOnlyRe.MatchString(t) {
		return false
	}
	words := strings.Fields(strings.TrimSuffix(t, "?"))
	if len(words) < 3 {
		return false
	}
	first := strings.ToLower(strings.Trim(words[0], `"'([{`))
	_, ok := questionOpeners[first]
	return ok
}

// IsAnswerLike reports whether text opens like an answer rather than a
// question.
func IsAnswerLike(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, o := range answerOpeners {
		if strings.HasPrefix(t, o) {
			return true
		}
	}
	return false
}

var (
	titleCaseRe = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)
	acronymRe   = regexp.MustCompile(`\b[A-Z]{4,}\b`)
)

// DetectHallucinatedEntities extracts Title-Case multi-word phrases and
// 4+-letter all-caps acronyms from text and returns those not present
// (case-insensitive) in allowedContext, the concatenation of all job, resume,
// and conversation text actually supplied to the model. A nil result means no
// hallucination was detected.
//
// The extraction is deliberately permissive regex work, not NER: it
// prioritizes catching fabricated proper nouns (projects, companies) and
// tolerates false negatives.
func DetectHallucinatedEntities(text, allowedContext string) []string {
	haystack := strings.ToLower(allowedContext)

	var flagged []string
	seen := map[string]struct{}{}
	check := func(candidate string) {
		key := strings.ToLower(candidate)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if !strings.Contains(haystack, key) {
			flagged = append(flagged, candidate)
		}
	}

	for _, m := range titleCaseRe.FindAllString(text, -1) {
		check(m)
	}
	for _, m := range acronymRe.FindAllString(text, -1) {
		check(m)
	}
	return flagged
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Normalize lowercases text and strips everything except letters, digits,
// apostrophes, and single spaces. Output is stable under repeated application.
func Normalize(text string) string {
	return strings.Join(wordRe.FindAllString(strings.ToLower(text), -1), " ")
}

// OverlapSimilarity computes the Jaccard similarity of the normalized word
// sets of a and b, in [0,1]. A value of RepeatThreshold or above means the
// two questions are considered repeats.
func OverlapSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// RepeatThreshold is the overlap similarity at which a candidate question
// counts as a repeat of a recent one.
const RepeatThreshold = 0.75

// IsRepeatOf reports whether candidate is a near-duplicate of any of the
// given recent questions.
func IsRepeatOf(candidate string, recent []string) bool {
	for _, q := range recent {
		if OverlapSimilarity(candidate, q) >= RepeatThreshold {
			return true
		}
	}
	return false
}

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}
