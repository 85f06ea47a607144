package voice

import "strings"

// The voice prompt instructs the model to wrap its output in two bracketed
// sections. The parser consumes the token stream incrementally, so segments
// are available the moment their closing bracket arrives and markers split
// across chunk boundaries are handled without rescanning the whole buffer.
const (
	markerFeedback = "[FEEDBACK:"
	markerQuestion = "[QUESTION:"
)

// ParseState is the marker parser's current mode.
type ParseState int

const (
	// StateSeeking scans for the next marker opening.
	StateSeeking ParseState = iota

	// StateInFeedback accumulates feedback text until the closing bracket.
	StateInFeedback

	// StateInQuestion accumulates question text until the closing bracket.
	StateInQuestion
)

// MarkerParser incrementally splits a streamed model response into its
// feedback and question segments. Feed it each chunk as it arrives; the
// accessors may be called at any time. Not safe for concurrent use.
type MarkerParser struct {
	state    ParseState
	buf      string
	feedback strings.Builder
	question strings.Builder
}

// Feed consumes the next streamed chunk.
func (p *MarkerParser) Feed(chunk string) {
	p.buf += chunk

	for {
		switch p.state {
		case StateSeeking:
			i := strings.IndexByte(p.buf, '[')
			if i < 0 {
				// Prose outside markers is dropped.
				p.buf = ""
				return
			}
			p.buf = p.buf[i:]
			switch {
			case strings.HasPrefix(p.buf, markerFeedback):
				p.buf = p.buf[len(markerFeedback):]
				p.state = StateInFeedback
			case strings.HasPrefix(p.buf, markerQuestion):
				p.buf = p.buf[len(markerQuestion):]
				p.state = StateInQuestion
			case strings.HasPrefix(markerFeedback, p.buf) || strings.HasPrefix(markerQuestion, p.buf):
				// Might still become a marker once more input arrives.
				return
			default:
				// A stray bracket; skip it and keep scanning.
				p.buf = p.buf[1:]
			}

		case StateInFeedback, StateInQuestion:
			target := &p.feedback
			if p.state == StateInQuestion {
				target = &p.question
			}
			i := strings.IndexByte(p.buf, ']')
			if i < 0 {
				target.WriteString(p.buf)
				p.buf = ""
				return
			}
			target.WriteString(p.buf[:i])
			p.buf = p.buf[i+1:]
			p.state = StateSeeking
		}
	}
}

// State returns the parser's current mode.
func (p *MarkerParser) State() ParseState {
	return p.state
}

// Feedback returns the feedback segment accumulated so far.
func (p *MarkerParser) Feedback() string {
	return strings.TrimSpace(p.feedback.String())
}

// Question returns the question segment accumulated so far.
func (p *MarkerParser) Question() string {
	return strings.TrimSpace(p.question.String())
}
