package llm

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelTier names a model class rather than a concrete model. The pipeline
// requests a tier and each backend maps it to one of its own models, so the
// primary and secondary providers stay interchangeable.
type ModelTier string

const (
	// TierChat is the full-strength conversational model used for interview
	// question generation.
	TierChat ModelTier = "chat"

	// TierFast is a cheaper, lower-latency model used for auxiliary calls
	// where quality matters less than cost.
	TierFast ModelTier = "fast"
)

// ModelCapabilities describes the static capabilities of a provider's
// chat-tier model.
type ModelCapabilities struct {
	// MaxContextTokens is the size of the model's context window.
	MaxContextTokens int

	// MaxOutputTokens is the maximum number of tokens the model can generate
	// in a single response.
	MaxOutputTokens int

	// SupportsStreaming indicates whether the provider can stream responses.
	SupportsStreaming bool

	// ModelID is the provider-specific identifier of the chat-tier model.
	ModelID string
}
