package llm

// AskRequest is the payload for the interactive conversation endpoint.
type AskRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	VoiceID   string `json:"voiceId,omitempty"`
}

// GameAskRequest is the payload for the game-master conversation endpoint.
type GameAskRequest struct {
	Message       string `json:"message"`
	GameSessionID string `json:"gameSessionId"`
	SessionID     string `json:"sessionId"`
}

// AutoGreetRequest asks the backend to produce an opening utterance so the
// avatar speaks first.
type AutoGreetRequest struct {
	SessionID string `json:"sessionId"`
}

type AudioPayload struct {
	SessionID   string `json:"sessionId"`
	AudioData   string `json:"audioData"`
	AudioFormat string `json:"audioFormat"`
	SampleRate  int    `json:"sampleRate"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

type AskResponse struct {
	Text       string        `json:"text"`
	DurationMs int64         `json:"duration_ms,omitempty"`
	TaskID     string        `json:"task_id,omitempty"`
	Audio      *AudioPayload `json:"audio,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
}
