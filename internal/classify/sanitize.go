package classify

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	headingRe     = regexp.MustCompile(`^#{1,6}\s*`)
	blockquoteRe  = regexp.MustCompile(`^>\s*`)
	listMarkRe    = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
	labelRe       = regexp.MustCompile(`(?i)^(?:answer|summary|question|response|note)\s*:\s*`)
	trailingNumRe = regexp.MustCompile(`\?[\s\d.]*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
	alnumRe       = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
)

// Sanitize strips structural noise from model output and from resume/job text
// interpolated into prompts: markdown emphasis and code markers, HTML tags,
// heading and blockquote prefixes, list numbering, boilerplate labels, short
// title-like lines, and trailing stray digits. Whitespace is collapsed.
//
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	t := htmlTagRe.ReplaceAllString(text, " ")
	t = strings.NewReplacer("**", "", "__", "", "*", "", "`", "").Replace(t)

	lines := strings.Split(t, "\n")
	multiline := len(lines) > 1
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		wasHeading := headingRe.MatchString(line) && strings.HasPrefix(line, "#")
		line = headingRe.ReplaceAllString(line, "")
		line = blockquoteRe.ReplaceAllString(line, "")
		line = listMarkRe.ReplaceAllString(line, "")
		line = labelRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Heading remainders that carry no question are section titles.
		if wasHeading && !strings.Contains(line, "?") && WordCount(line) <= 3 {
			continue
		}
		if multiline && isTitleLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	t = strings.Join(kept, " ")
	// Stray digits after the question mark are list residue.
	t = trailingNumRe.ReplaceAllString(t, "?")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// isTitleLine reports whether line looks like decoration rather than content:
// at most 2 words, under 25 chars, and carrying non-alphanumeric characters
// (separators, colons, dashes). Plain short prose lines are kept, since they
// may be wrapped fragments of a real sentence.
func isTitleLine(line string) bool {
	if len(line) >= 25 || WordCount(line) > 2 {
		return false
	}
	if strings.ContainsAny(line, "?.!") {
		return false
	}
	return !alnumRe.MatchString(line)
}
