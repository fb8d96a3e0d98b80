package transcription

import "context"

// Capturer is the speech-capture capability consumed by the conversation
// orchestrator: start buffering audio, stop and transcribe, or discard.
type Capturer interface {
	StartCapture() error
	// StopCapture transcribes the buffered audio. A nil result with nil
	// error means no speech was detected.
	StopCapture(ctx context.Context) (*Result, error)
	Cancel()
}

// Transcriber turns a recorded audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (*Result, error)
}

type Result struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence,omitempty"`
}
