package voice

// Client control message types.
const (
	msgStartStream = "start_stream"
	msgStopStream  = "stop_stream"
	msgPing        = "ping"
)

// Server event types.
const (
	evtTranscriptPartial = "transcript_partial"
	evtTranscriptFinal   = "transcript_final"
	evtResponseChunk     = "ai_response_chunk"
	evtResponseComplete  = "ai_response_complete"
	evtStreamReady       = "stream_ready"
	evtStreamStopped     = "stream_stopped"
	evtPong              = "pong"
	evtError             = "error"
)

// clientMessage is any JSON control message from the client. Binary frames
// carry raw 16 kHz linear PCM audio instead.
type clientMessage struct {
	Type       string `json:"type"`
	ChatID     string `json:"chatId,omitempty"`
	Mode       string `json:"mode,omitempty"`
	PlanTier   string `json:"planTier,omitempty"`
	JobContext string `json:"jobContext,omitempty"`
}

// serverEvent is the envelope for all simple server-to-client events.
type serverEvent struct {
	Type string `json:"type"`

	// Text carries transcript content for transcript_* events.
	Text string `json:"text,omitempty"`

	// Content carries one streamed token for ai_response_chunk events.
	Content string `json:"content,omitempty"`

	// Message carries the description for error events.
	Message string `json:"message,omitempty"`
}

// completeEvent closes out one AI response turn. HasAudio is always
// serialised so clients can branch on it without a presence check.
type completeEvent struct {
	Type         string `json:"type"`
	Feedback     string `json:"feedback"`
	Question     string `json:"question"`
	FullResponse string `json:"fullResponse"`
	AudioBase64  string `json:"audioBase64,omitempty"`
	HasAudio     bool   `json:"hasAudio"`
}
