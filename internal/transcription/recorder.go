package transcription

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// minAudioBytes filters out captures too short to contain speech.
const minAudioBytes = 1600

// Recorder buffers audio frames pushed by the client connection and hands
// the finished clip to a Transcriber. It implements Capturer.
type Recorder struct {
	mu          sync.Mutex
	capturing   bool
	buffer      []byte
	language    string
	transcriber Transcriber
	log         *slog.Logger
}

func NewRecorder(transcriber Transcriber, log *slog.Logger) *Recorder {
	return &Recorder{
		transcriber: transcriber,
		log:         log.With("component", "recorder"),
	}
}

// SetLanguage sets the hint passed to the transcriber on the next capture.
func (r *Recorder) SetLanguage(language string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language = language
}

func (r *Recorder) StartCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capturing = true
	r.buffer = r.buffer[:0]
	return nil
}

// AppendAudio adds a frame to the in-flight capture. Frames arriving while
// no capture is active are dropped.
func (r *Recorder) AppendAudio(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.capturing {
		return
	}
	r.buffer = append(r.buffer, frame...)
}

func (r *Recorder) StopCapture(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return nil, nil
	}
	r.capturing = false
	clip := make([]byte, len(r.buffer))
	copy(clip, r.buffer)
	r.buffer = r.buffer[:0]
	language := r.language
	r.mu.Unlock()

	if len(clip) < minAudioBytes {
		r.log.Debug("capture discarded", "bytes", len(clip))
		return nil, nil
	}

	result, err := r.transcriber.Transcribe(ctx, clip, language)
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil, nil
	}
	return result, nil
}

func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capturing = false
	r.buffer = r.buffer[:0]
}
