// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to inspect which texts were synthesised and to feed controlled
// audio output without a live TTS backend.
package mock

import (
	"context"
	"sync"

	"github.com/coachly-ai/coachly/pkg/provider/tts"
	"github.com/coachly-ai/coachly/pkg/types"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the voice profile passed to Synthesize.
	Voice types.VoiceProfile
}

// StreamCall records a single invocation of SynthesizeStream.
type StreamCall struct {
	// Voice is the voice profile passed to SynthesizeStream.
	Voice types.VoiceProfile
	// Texts collects every fragment read from the text channel.
	Texts []string
}

// Provider is a mock implementation of tts.Provider.
// Zero values cause methods to return empty results and nil errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// AudioChunks is the sequence of byte slices emitted on the channel
	// returned by SynthesizeStream, and concatenated by Synthesize.
	AudioChunks [][]byte

	// SynthesizeErr, if non-nil, is returned by Synthesize and
	// SynthesizeStream.
	SynthesizeErr error

	// Voices is returned by ListVoices.
	Voices []types.VoiceProfile

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// --- Call records (read after test) ---

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall

	// StreamCalls records every invocation of SynthesizeStream in order.
	// The Texts field of an entry is populated asynchronously as the text
	// channel is drained; read it only after the audio channel has closed.
	StreamCalls []*StreamCall
}

// SynthesizeStream records the call, drains the text channel, and emits
// AudioChunks on the returned channel.
func (p *Provider) SynthesizeStream(ctx context.Context, text <-chan string, voice types.VoiceProfile) (<-chan []byte, error) {
	p.mu.Lock()
	if p.SynthesizeErr != nil {
		err := p.SynthesizeErr
		p.mu.Unlock()
		return nil, err
	}
	call := &StreamCall{Voice: voice}
	p.StreamCalls = append(p.StreamCalls, call)
	chunks := make([][]byte, len(p.AudioChunks))
	copy(chunks, p.AudioChunks)
	p.mu.Unlock()

	ch := make(chan []byte, len(chunks))
	go func() {
		defer close(ch)
		for t := range text {
			p.mu.Lock()
			call.Texts = append(call.Texts, t)
			p.mu.Unlock()
		}
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Synthesize records the call and returns the concatenation of AudioChunks.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	var out []byte
	for _, c := range p.AudioChunks {
		out = append(out, c...)
	}
	return out, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, p.ListVoicesErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
	p.StreamCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
