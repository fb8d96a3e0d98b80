package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/careloop/companion-backend/internal/shared"
)

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseCapturing     Phase = "capturing"
	PhaseAwaitingReply Phase = "awaiting_reply"
	PhaseSpeaking      Phase = "speaking"
)

// TurnState is the turn-taking snapshot pushed to the client. The mic is
// disabled whenever the avatar is speaking, audio is playing, or a capture
// is being transcribed.
type TurnState struct {
	Phase          Phase `json:"phase"`
	MicEnabled     bool  `json:"micEnabled"`
	AvatarSpeaking bool  `json:"avatarSpeaking"`
	AudioPlaying   bool  `json:"audioPlaying"`
	Transcribing   bool  `json:"transcribing"`
}

// TurnController sequences who holds the floor. Exactly one utterance
// round-trip may be in flight at a time; every failure path returns to
// idle with the mic enabled.
type TurnController struct {
	mu    sync.Mutex
	state TurnState

	speakTimer *time.Timer
	speakSeq   int

	// onChange fires outside the lock after every transition.
	onChange func(TurnState)
}

func NewTurnController(onChange func(TurnState)) *TurnController {
	if onChange == nil {
		onChange = func(TurnState) {}
	}
	return &TurnController{
		state:    TurnState{Phase: PhaseIdle, MicEnabled: true},
		onChange: onChange,
	}
}

func (t *TurnController) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BeginCapture moves idle → capturing. The mic stays enabled while the
// user is holding it.
func (t *TurnController) BeginCapture() error {
	t.mu.Lock()
	if t.state.Phase != PhaseIdle {
		t.mu.Unlock()
		return shared.ErrInvalidState
	}
	t.state.Phase = PhaseCapturing
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
	return nil
}

// EndCapture marks the recording finished and transcription in flight.
// The mic goes dark until the transcript resolves.
func (t *TurnController) EndCapture() error {
	t.mu.Lock()
	if t.state.Phase != PhaseCapturing {
		t.mu.Unlock()
		return shared.ErrInvalidState
	}
	t.state.Transcribing = true
	t.state.MicEnabled = false
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
	return nil
}

// CaptureEnded resolves a capture that produced nothing usable, whether
// empty speech or a capture error. No remote call happens; the user gets
// the mic back.
func (t *TurnController) CaptureEnded() {
	t.mu.Lock()
	t.state = TurnState{Phase: PhaseIdle, MicEnabled: true}
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
}

// BeginExchange claims the in-flight slot for one utterance round-trip.
func (t *TurnController) BeginExchange() error {
	t.mu.Lock()
	if t.state.Phase == PhaseAwaitingReply || t.state.Phase == PhaseSpeaking {
		t.mu.Unlock()
		return shared.ErrInvalidState
	}
	t.state.Phase = PhaseAwaitingReply
	t.state.MicEnabled = false
	t.state.AvatarSpeaking = true
	t.state.Transcribing = false
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
	return nil
}

// ExchangeFailed releases the floor after a rejected remote call. The
// user is never left without the mic.
func (t *TurnController) ExchangeFailed() {
	t.mu.Lock()
	t.cancelTimerLocked()
	t.state = TurnState{Phase: PhaseIdle, MicEnabled: true}
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
}

// ReplySpoken starts the speaking window. The timer is the fallback for
// the mic re-enable; an AudioFinished signal arriving first wins the race
// and cancels it.
func (t *TurnController) ReplySpoken(duration time.Duration, audioPlaying bool) {
	t.mu.Lock()
	t.cancelTimerLocked()
	t.state.Phase = PhaseSpeaking
	t.state.AudioPlaying = audioPlaying
	t.speakSeq++
	seq := t.speakSeq
	t.speakTimer = time.AfterFunc(duration, func() {
		t.finishSpeaking(seq)
	})
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
}

// AudioFinished reports that playback completed before the fallback timer
// fired.
func (t *TurnController) AudioFinished() {
	t.mu.Lock()
	if t.state.Phase != PhaseSpeaking {
		t.mu.Unlock()
		return
	}
	seq := t.speakSeq
	t.mu.Unlock()
	t.finishSpeaking(seq)
}

// Reset forces the controller back to idle, cancelling any pending
// speaking timer. Used on session teardown.
func (t *TurnController) Reset() {
	t.mu.Lock()
	t.cancelTimerLocked()
	t.state = TurnState{Phase: PhaseIdle, MicEnabled: true}
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
}

func (t *TurnController) finishSpeaking(seq int) {
	t.mu.Lock()
	if seq != t.speakSeq || t.state.Phase != PhaseSpeaking {
		t.mu.Unlock()
		return
	}
	t.cancelTimerLocked()
	t.state = TurnState{Phase: PhaseIdle, MicEnabled: true}
	state := t.state
	t.mu.Unlock()

	t.onChange(state)
}

func (t *TurnController) cancelTimerLocked() {
	if t.speakTimer != nil {
		t.speakTimer.Stop()
		t.speakTimer = nil
	}
	t.speakSeq++
}

const (
	minSpeakingDuration = 3 * time.Second
	speakingWordsPerMin = 150
)

// SpeakingDuration picks the window during which the avatar holds the
// floor. A measured duration from the reply wins; otherwise it is
// estimated from the word count at 150 words per minute, floored at 3s.
func SpeakingDuration(text string, durationMs int64) time.Duration {
	if durationMs > 0 {
		return time.Duration(durationMs) * time.Millisecond
	}
	words := len(strings.Fields(text))
	estimated := time.Duration(float64(words) / speakingWordsPerMin * float64(time.Minute))
	if estimated < minSpeakingDuration {
		return minSpeakingDuration
	}
	return estimated
}

// AutoStartGuard makes the auto-greeting idempotent per avatar session.
type AutoStartGuard struct {
	mu            sync.Mutex
	lastSessionID string
}

// MarkAutoStarted records the session and reports whether this is the
// first greeting for it.
func (g *AutoStartGuard) MarkAutoStarted(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sessionID == "" || sessionID == g.lastSessionID {
		return false
	}
	g.lastSessionID = sessionID
	return true
}
