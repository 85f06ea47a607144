// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/coachly-ai/coachly/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
// By default it returns a fixed-size zero vector for every input. Set Vectors
// to map specific inputs to specific outputs.
type Provider struct {
	mu sync.Mutex

	// Dim is the dimensionality reported by Dimensions and used for default
	// vectors. Zero means 4, keeping test fixtures small.
	Dim int

	// Vectors maps input text to the vector returned by Embed. Inputs not
	// present in the map receive a zero vector of length Dim.
	Vectors map[string][]float32

	// EmbedErr, if non-nil, is returned by Embed and EmbedBatch.
	EmbedErr error

	// EmbedCalls records every text passed to Embed or EmbedBatch in order.
	EmbedCalls []string
}

func (p *Provider) dim() int {
	if p.Dim == 0 {
		return 4
	}
	return p.Dim
}

func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		return v
	}
	return make([]float32, p.dim())
}

// Embed records the call and returns the configured vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vectorFor(text), nil
}

// EmbedBatch records the calls and returns configured vectors for each text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

// Dimensions returns Dim (or the small default).
func (p *Provider) Dimensions() int { return p.dim() }

// ModelID returns a fixed identifier.
func (p *Provider) ModelID() string { return "mock-embeddings" }

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = nil
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)
