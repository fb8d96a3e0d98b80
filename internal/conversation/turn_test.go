package conversation

import (
	"sync"
	"testing"
	"time"
)

// stateRecorder collects every turn transition so tests can assert the
// mic invariant across all of them.
type stateRecorder struct {
	mu     sync.Mutex
	states []TurnState
}

func (r *stateRecorder) record(s TurnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []TurnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TurnState, len(r.states))
	copy(out, r.states)
	return out
}

func assertMicInvariant(t *testing.T, states []TurnState) {
	t.Helper()
	for i, s := range states {
		if s.MicEnabled && (s.AvatarSpeaking || s.AudioPlaying || s.Transcribing) {
			t.Errorf("state %d violates mic invariant: %+v", i, s)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestTurnHappyPath(t *testing.T) {
	rec := &stateRecorder{}
	turn := NewTurnController(rec.record)

	if err := turn.BeginCapture(); err != nil {
		t.Fatalf("BeginCapture: %v", err)
	}
	if got := turn.State().Phase; got != PhaseCapturing {
		t.Fatalf("expected capturing, got %s", got)
	}
	if !turn.State().MicEnabled {
		t.Error("mic should stay enabled while recording")
	}

	if err := turn.EndCapture(); err != nil {
		t.Fatalf("EndCapture: %v", err)
	}
	if state := turn.State(); state.MicEnabled || !state.Transcribing {
		t.Fatalf("expected mic off and transcribing, got %+v", state)
	}

	if err := turn.BeginExchange(); err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	if state := turn.State(); state.Phase != PhaseAwaitingReply || !state.AvatarSpeaking {
		t.Fatalf("expected awaiting reply, got %+v", state)
	}

	turn.ReplySpoken(20*time.Millisecond, false)
	if got := turn.State().Phase; got != PhaseSpeaking {
		t.Fatalf("expected speaking, got %s", got)
	}

	waitFor(t, time.Second, func() bool {
		return turn.State().Phase == PhaseIdle
	})
	if !turn.State().MicEnabled {
		t.Error("mic should be enabled after speaking window")
	}
	assertMicInvariant(t, rec.all())
}

func TestTurnSingleInFlightExchange(t *testing.T) {
	turn := NewTurnController(nil)

	if err := turn.BeginExchange(); err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	if err := turn.BeginExchange(); err == nil {
		t.Fatal("expected second exchange to be rejected")
	}
}

func TestTurnExchangeFailedReturnsToIdle(t *testing.T) {
	rec := &stateRecorder{}
	turn := NewTurnController(rec.record)

	turn.BeginCapture()
	turn.EndCapture()
	turn.BeginExchange()
	turn.ExchangeFailed()

	state := turn.State()
	if state.Phase != PhaseIdle || !state.MicEnabled || state.AvatarSpeaking {
		t.Fatalf("expected idle with mic enabled after failure, got %+v", state)
	}
	assertMicInvariant(t, rec.all())
}

func TestTurnAudioFinishedBeatsTimer(t *testing.T) {
	turn := NewTurnController(nil)

	turn.BeginExchange()
	turn.ReplySpoken(10*time.Second, true)

	turn.AudioFinished()

	state := turn.State()
	if state.Phase != PhaseIdle || !state.MicEnabled || state.AudioPlaying {
		t.Fatalf("expected idle after audio finished, got %+v", state)
	}

	// The stale timer must not fire into a later exchange.
	turn.BeginExchange()
	time.Sleep(30 * time.Millisecond)
	if got := turn.State().Phase; got != PhaseAwaitingReply {
		t.Fatalf("stale timer disturbed later exchange, phase %s", got)
	}
}

func TestTurnCaptureEndedAfterEmptySpeech(t *testing.T) {
	rec := &stateRecorder{}
	turn := NewTurnController(rec.record)

	turn.BeginCapture()
	turn.EndCapture()
	turn.CaptureEnded()

	state := turn.State()
	if state.Phase != PhaseIdle || !state.MicEnabled || state.Transcribing {
		t.Fatalf("expected idle after empty capture, got %+v", state)
	}
	assertMicInvariant(t, rec.all())
}

func TestSpeakingDuration(t *testing.T) {
	if got := SpeakingDuration("one two three four five", 0); got != 3*time.Second {
		t.Errorf("expected 3s fallback for five words, got %v", got)
	}
	if got := SpeakingDuration("ignored", 4200); got != 4200*time.Millisecond {
		t.Errorf("expected measured duration to win, got %v", got)
	}
	// 150 words at 150 wpm is one minute.
	long := ""
	for i := 0; i < 150; i++ {
		long += "word "
	}
	if got := SpeakingDuration(long, 0); got != time.Minute {
		t.Errorf("expected 1m for 150 words, got %v", got)
	}
}

func TestAutoStartGuardIdempotent(t *testing.T) {
	var guard AutoStartGuard

	if !guard.MarkAutoStarted("avsess_1") {
		t.Fatal("first mark should succeed")
	}
	if guard.MarkAutoStarted("avsess_1") {
		t.Fatal("second mark for same session should fail")
	}
	if !guard.MarkAutoStarted("avsess_2") {
		t.Fatal("mark for new session should succeed")
	}
	if guard.MarkAutoStarted("") {
		t.Fatal("empty session id should never mark")
	}
}
