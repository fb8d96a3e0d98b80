package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careloop/companion-backend/internal/history"
	"github.com/careloop/companion-backend/internal/llm"
	"github.com/careloop/companion-backend/internal/transcription"
)

type fakeAsk struct {
	mu          sync.Mutex
	interactive int
	game        int
	auto        int
	lastAsk     llm.AskRequest
	lastGame    llm.GameAskRequest
	reply       llm.AskResponse
	err         error
}

func (f *fakeAsk) AskInteractive(_ context.Context, _ string, req llm.AskRequest) (*llm.AskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactive++
	f.lastAsk = req
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	return &reply, nil
}

func (f *fakeAsk) AskGame(_ context.Context, _ string, req llm.GameAskRequest) (*llm.AskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.game++
	f.lastGame = req
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	return &reply, nil
}

func (f *fakeAsk) AskAutoGreet(context.Context, string, llm.AutoGreetRequest) (*llm.AskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto++
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	return &reply, nil
}

func (f *fakeAsk) calls() (interactive, game, auto int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interactive, f.game, f.auto
}

type fakeCapturer struct {
	mu     sync.Mutex
	text   string
	err    error
	active bool
}

func (f *fakeCapturer) StartCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	return nil
}

func (f *fakeCapturer) StopCapture(context.Context) (*transcription.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return nil, nil
	}
	return &transcription.Result{Text: f.text, Language: "en"}, nil
}

func (f *fakeCapturer) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

type recordedEvent struct {
	event   string
	payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) Emit(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, payload: payload})
}

func (f *fakeEmitter) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (f *fakeEmitter) turnStates() []TurnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	var states []TurnState
	for _, e := range f.events {
		if e.event == EventTurnState {
			states = append(states, e.payload.(TurnState))
		}
	}
	return states
}

type fakeHistory struct {
	mu       sync.Mutex
	messages []history.ChatMessage
}

func (f *fakeHistory) Append(_ context.Context, m *history.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	return nil
}

type fakeGameRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeGameRecorder) RecordMessage(_ context.Context, gameSessionID, sender, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, gameSessionID+"/"+sender+": "+text)
	return nil
}

func (f *fakeGameRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type sessionFixture struct {
	session  *ConversationSession
	avatar   *fakeAvatarClient
	ask      *fakeAsk
	capturer *fakeCapturer
	emitter  *fakeEmitter
	history  *fakeHistory
	games    *fakeGameRecorder
}

func newFixture(t *testing.T, autoStart bool) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		avatar:   &fakeAvatarClient{},
		ask:      &fakeAsk{reply: llm.AskResponse{Text: "hello dear", DurationMs: 20}},
		capturer: &fakeCapturer{},
		emitter:  &fakeEmitter{},
		history:  &fakeHistory{},
		games:    &fakeGameRecorder{},
	}
	f.session = NewSession(SessionDeps{
		UserID:    "user_1",
		Emitter:   f.emitter,
		Capturer:  f.capturer,
		Ask:       f.ask,
		Avatar:    f.avatar,
		History:   f.history,
		Games:     f.games,
		Config:    SessionConfig{AvatarID: "June_HR_public", VoiceID: "default", VoiceRate: 0.95},
		AutoStart: autoStart,
		Durations: testDurations(),
		Log:       discardLogger(),
	})
	f.session.guidanceDelay = 10 * time.Millisecond
	t.Cleanup(f.session.Close)
	return f
}

func (f *sessionFixture) start(t *testing.T) {
	t.Helper()
	f.session.OnFocusGained(context.Background())
	if f.session.Lifecycle().Current() == nil {
		t.Fatal("expected live avatar session")
	}
}

func entriesBySpeaker(entries []Entry, from Speaker) int {
	n := 0
	for _, e := range entries {
		if e.From == from {
			n++
		}
	}
	return n
}

func TestInteractiveUtteranceRoutesToInteractiveOnly(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.handleUtterance(context.Background(), "how are you today")

	interactive, game, auto := f.ask.calls()
	if interactive != 1 || game != 0 || auto != 0 {
		t.Fatalf("expected interactive only, got %d/%d/%d", interactive, game, auto)
	}
	if f.ask.lastAsk.Message != "how are you today" {
		t.Errorf("unexpected message %q", f.ask.lastAsk.Message)
	}

	entries := f.session.Transcript()
	if entriesBySpeaker(entries, SpeakerUser) != 1 || entriesBySpeaker(entries, SpeakerAvatar) != 1 {
		t.Fatalf("expected one user and one avatar entry, got %+v", entries)
	}

	f.avatar.mu.Lock()
	tasks := len(f.avatar.tasks)
	f.avatar.mu.Unlock()
	if tasks != 1 {
		t.Errorf("expected one avatar speak task, got %d", tasks)
	}

	waitFor(t, time.Second, func() bool {
		return f.session.TurnState().Phase == PhaseIdle
	})
	assertMicInvariant(t, f.emitter.turnStates())
}

func TestGameUtteranceRoutesToGameOnly(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.OnModeSwitch(context.Background(), ModeGame)
	f.session.OnGameSelected(context.Background(), GameContext{ID: "game_7", Title: "Trivia"})

	f.session.handleUtterance(context.Background(), "my answer is paris")

	interactive, game, _ := f.ask.calls()
	if interactive != 0 || game != 1 {
		t.Fatalf("expected game endpoint only, got interactive=%d game=%d", interactive, game)
	}
	if f.ask.lastGame.GameSessionID != "game_7" {
		t.Errorf("expected game session id carried, got %q", f.ask.lastGame.GameSessionID)
	}
	if f.games.count() != 2 {
		t.Errorf("expected both exchanges recorded to the game session, got %d", f.games.count())
	}
}

func TestInteractiveUtteranceRecordsNoGameMessages(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.handleUtterance(context.Background(), "how are you today")

	if f.games.count() != 0 {
		t.Errorf("expected no game messages in interactive mode, got %d", f.games.count())
	}
}

func TestGameModeWithoutGameSendsGuidance(t *testing.T) {
	f := newFixture(t, false)
	f.ask.reply = llm.AskResponse{Text: "Would you like to choose a game?", DurationMs: 20}
	f.start(t)

	f.session.OnModeSwitch(context.Background(), ModeGame)
	promptsAfterSwitch := f.emitter.count(EventShowGameSelection)

	f.session.handleUtterance(context.Background(), "let's do something fun")

	interactive, game, _ := f.ask.calls()
	if interactive != 1 || game != 0 {
		t.Fatalf("expected interactive guidance call, got interactive=%d game=%d", interactive, game)
	}
	if !strings.Contains(f.ask.lastAsk.Message, "let's do something fun") {
		t.Errorf("expected original utterance embedded, got %q", f.ask.lastAsk.Message)
	}
	if !strings.HasPrefix(f.ask.lastAsk.Message, guidancePrompt) {
		t.Error("expected guidance prompt prefix")
	}

	// The selection prompt fires again shortly after the mic re-enables.
	waitFor(t, time.Second, func() bool {
		return f.emitter.count(EventShowGameSelection) > promptsAfterSwitch
	})
}

func TestEmptyUtteranceIsNoop(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.handleUtterance(context.Background(), "   ")

	interactive, game, auto := f.ask.calls()
	if interactive+game+auto != 0 {
		t.Fatalf("expected no remote calls, got %d/%d/%d", interactive, game, auto)
	}
	if state := f.session.TurnState(); state.Phase != PhaseIdle || !state.MicEnabled {
		t.Fatalf("expected idle state, got %+v", state)
	}
	if len(f.session.Transcript()) != 0 {
		t.Error("expected no transcript entries")
	}
}

func TestRejectedAskReturnsToIdle(t *testing.T) {
	f := newFixture(t, false)
	f.ask.err = errors.New("backend unavailable")
	f.start(t)

	f.session.handleUtterance(context.Background(), "hello")

	entries := f.session.Transcript()
	if entriesBySpeaker(entries, SpeakerAvatar) != 0 {
		t.Error("expected no avatar entry after rejected ask")
	}
	if state := f.session.TurnState(); state.Phase != PhaseIdle || !state.MicEnabled {
		t.Fatalf("expected idle with mic enabled, got %+v", state)
	}
	if f.emitter.count(EventError) == 0 {
		t.Error("expected a transient error event")
	}
	assertMicInvariant(t, f.emitter.turnStates())
}

func TestAutoGreetOncePerSession(t *testing.T) {
	f := newFixture(t, true)
	f.start(t)

	session := f.session.Lifecycle().Current()

	waitFor(t, time.Second, func() bool {
		_, _, auto := f.ask.calls()
		return auto == 1
	})

	// Effects re-running must not greet the same session again.
	f.session.maybeAutoGreet(session)
	f.session.maybeAutoGreet(session)
	time.Sleep(30 * time.Millisecond)

	_, _, auto := f.ask.calls()
	if auto != 1 {
		t.Fatalf("expected exactly one auto greeting, got %d", auto)
	}
}

func TestAutoGreetSkippedWhenDisabled(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	time.Sleep(30 * time.Millisecond)
	_, _, auto := f.ask.calls()
	if auto != 0 {
		t.Fatalf("expected no auto greeting, got %d", auto)
	}
}

func TestModeSwitchToGamePromptsSelection(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.OnModeSwitch(context.Background(), ModeGame)

	if f.session.Mode() != ModeGame {
		t.Fatal("expected game mode")
	}
	if f.session.mode.Game() != nil {
		t.Error("expected cleared game context")
	}
	if f.emitter.count(EventShowGameSelection) != 1 {
		t.Error("expected game selection prompt")
	}

	// The old session was stopped and a new one requested.
	creates, _, stops := f.avatar.counts()
	if creates != 2 || stops != 1 {
		t.Errorf("expected restart, got creates=%d stops=%d", creates, stops)
	}
}

func TestModeSwitchSameModeIsNoop(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	f.session.OnModeSwitch(context.Background(), ModeInteractive)

	creates, _, stops := f.avatar.counts()
	if creates != 1 || stops != 0 {
		t.Errorf("expected no session churn, got creates=%d stops=%d", creates, stops)
	}
}

func TestCaptureFlowEndToEnd(t *testing.T) {
	f := newFixture(t, false)
	f.capturer.text = "good morning"
	f.start(t)

	ctx := context.Background()
	f.session.OnMicPressed(ctx)
	f.session.OnMicReleased(ctx)

	waitFor(t, time.Second, func() bool {
		interactive, _, _ := f.ask.calls()
		return interactive == 1
	})
	waitFor(t, time.Second, func() bool {
		state := f.session.TurnState()
		return state.Phase == PhaseIdle && state.MicEnabled
	})
	assertMicInvariant(t, f.emitter.turnStates())

	f.history.mu.Lock()
	persisted := len(f.history.messages)
	f.history.mu.Unlock()
	if persisted != 2 {
		t.Errorf("expected both turns persisted, got %d", persisted)
	}
}

func TestCaptureWithNoSpeechIsNoop(t *testing.T) {
	f := newFixture(t, false)
	f.capturer.text = ""
	f.start(t)

	ctx := context.Background()
	f.session.OnMicPressed(ctx)
	f.session.OnMicReleased(ctx)

	waitFor(t, time.Second, func() bool {
		state := f.session.TurnState()
		return state.Phase == PhaseIdle && state.MicEnabled
	})

	interactive, game, _ := f.ask.calls()
	if interactive+game != 0 {
		t.Error("expected no remote calls for silent capture")
	}
	if len(f.session.Transcript()) != 0 {
		t.Error("expected no transcript entries for silent capture")
	}
}

func TestCaptureErrorReenablesMic(t *testing.T) {
	f := newFixture(t, false)
	f.capturer.err = errors.New("permission denied")
	f.start(t)

	ctx := context.Background()
	f.session.OnMicPressed(ctx)
	f.session.OnMicReleased(ctx)

	waitFor(t, time.Second, func() bool {
		state := f.session.TurnState()
		return state.Phase == PhaseIdle && state.MicEnabled
	})
	if f.emitter.count(EventError) == 0 {
		t.Error("expected a capture error event")
	}
	assertMicInvariant(t, f.emitter.turnStates())
}

func TestStaleReplyIsDropped(t *testing.T) {
	f := newFixture(t, false)
	f.start(t)

	stale := f.session.Lifecycle().Current()
	f.session.Lifecycle().Stop(context.Background())

	f.session.deliverReply(context.Background(), stale, &llm.AskResponse{Text: "too late"}, false)

	if entriesBySpeaker(f.session.Transcript(), SpeakerAvatar) != 0 {
		t.Error("expected stale reply dropped from transcript")
	}
}
