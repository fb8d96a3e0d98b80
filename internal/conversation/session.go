package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/history"
	"github.com/careloop/companion-backend/internal/llm"
	"github.com/careloop/companion-backend/internal/shared"
	"github.com/careloop/companion-backend/internal/transcription"
)

// AskClient routes utterances to the remote conversation endpoints.
type AskClient interface {
	AskInteractive(ctx context.Context, userID string, req llm.AskRequest) (*llm.AskResponse, error)
	AskGame(ctx context.Context, userID string, req llm.GameAskRequest) (*llm.AskResponse, error)
	AskAutoGreet(ctx context.Context, userID string, req llm.AutoGreetRequest) (*llm.AskResponse, error)
}

// HistoryRecorder persists finished conversation turns.
type HistoryRecorder interface {
	Append(ctx context.Context, m *history.ChatMessage) error
}

// GameRecorder keeps each exchange of an active game session. Optional;
// nil disables game recording.
type GameRecorder interface {
	RecordMessage(ctx context.Context, gameSessionID, sender, text string) error
}

// LanguageSink receives the detected language of a capture, used as the
// hint for the next one.
type LanguageSink interface {
	SetLanguage(language string)
}

// guidanceModalDelay separates mic re-enable from the game selection
// prompt so the two UI changes do not land in the same frame.
const guidanceModalDelay = 500 * time.Millisecond

// ConversationSession orchestrates one user's avatar conversation: it
// owns the turn-taking state, the avatar session lifecycle, the mode, and
// the transcript, and reacts to the client events the gateway feeds it.
type ConversationSession struct {
	userID  string
	emitter Emitter

	capturer transcription.Capturer
	ask      AskClient
	avatar   heygen.SessionClient
	hist     HistoryRecorder
	games    GameRecorder

	turn       *TurnController
	lifecycle  *LifecycleManager
	mode       *ModeState
	guard      AutoStartGuard
	transcript *Transcript

	autoStart     bool
	guidanceDelay time.Duration

	mu              sync.Mutex
	pendingGuidance bool
	closed          bool

	wg  sync.WaitGroup
	log *slog.Logger
}

type SessionDeps struct {
	UserID    string
	Emitter   Emitter
	Capturer  transcription.Capturer
	Ask       AskClient
	Avatar    heygen.SessionClient
	History   HistoryRecorder
	Games     GameRecorder
	Config    SessionConfig
	AutoStart bool
	Durations Durations
	Log       *slog.Logger
}

func NewSession(deps SessionDeps) *ConversationSession {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	s := &ConversationSession{
		userID:        deps.UserID,
		emitter:       deps.Emitter,
		capturer:      deps.Capturer,
		ask:           deps.Ask,
		avatar:        deps.Avatar,
		hist:          deps.History,
		games:         deps.Games,
		mode:          NewModeState(),
		transcript:    NewTranscript(),
		autoStart:     deps.AutoStart,
		guidanceDelay: guidanceModalDelay,
		log:           deps.Log.With("component", "conversation", "user_id", deps.UserID),
	}

	s.turn = NewTurnController(s.onTurnChange)
	s.lifecycle = NewLifecycleManager(LifecycleConfig{
		Client:    deps.Avatar,
		Config:    deps.Config,
		Durations: deps.Durations,
		OnStarted: s.onSessionStarted,
		OnStopped: s.onSessionStopped,
		Log:       deps.Log,
	})
	return s
}

func (s *ConversationSession) UserID() string       { return s.userID }
func (s *ConversationSession) Mode() Mode           { return s.mode.Mode() }
func (s *ConversationSession) TurnState() TurnState { return s.turn.State() }
func (s *ConversationSession) Transcript() []Entry  { return s.transcript.Entries() }

func (s *ConversationSession) Lifecycle() *LifecycleManager { return s.lifecycle }

// OnFocusGained ensures a live session and cancels any pending teardown.
func (s *ConversationSession) OnFocusGained(ctx context.Context) {
	if err := s.lifecycle.OnFocusGained(ctx); err != nil {
		s.log.Error("failed to ensure session on focus", "error", err)
		s.emit(EventError, ErrorPayload{Code: "session_failed", Message: "could not start avatar session"})
	}
}

func (s *ConversationSession) OnFocusLost() {
	s.lifecycle.OnFocusLost()
}

func (s *ConversationSession) OnAppBackgrounded(ctx context.Context) {
	s.lifecycle.OnAppBackgrounded(ctx)
}

// OnMicPressed begins recording the user's utterance.
func (s *ConversationSession) OnMicPressed(ctx context.Context) {
	if err := s.turn.BeginCapture(); err != nil {
		return
	}
	if err := s.capturer.StartCapture(); err != nil {
		s.log.Warn("failed to start capture", "error", err)
		s.turn.CaptureEnded()
		s.emit(EventError, ErrorPayload{Code: "capture_failed", Message: "could not start recording"})
	}
}

// OnMicReleased finishes the recording and runs the utterance round-trip
// in the background.
func (s *ConversationSession) OnMicReleased(ctx context.Context) {
	if err := s.turn.EndCapture(); err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.finishCapture(ctx)
	}()
}

func (s *ConversationSession) finishCapture(ctx context.Context) {
	result, err := s.capturer.StopCapture(ctx)
	if err != nil {
		s.log.Warn("transcription failed", "error", err)
		s.turn.CaptureEnded()
		s.emit(EventError, ErrorPayload{Code: "transcription_failed", Message: "could not understand the recording"})
		return
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		s.turn.CaptureEnded()
		return
	}

	if result.Language != "" {
		if sink, ok := s.capturer.(LanguageSink); ok {
			sink.SetLanguage(result.Language)
		}
	}

	s.handleUtterance(ctx, result.Text)
}

// handleUtterance routes one captured utterance to exactly one remote
// endpoint and runs the reply through the speaking window.
func (s *ConversationSession) handleUtterance(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	session, err := s.lifecycle.WaitReady(ctx)
	if err != nil {
		s.log.Warn("utterance discarded, session not ready", "error", err)
		s.turn.CaptureEnded()
		s.emit(EventError, ErrorPayload{Code: "session_not_ready", Message: "the avatar is still connecting"})
		return
	}

	if err := s.turn.BeginExchange(); err != nil {
		s.log.Warn("utterance dropped, exchange already in flight")
		return
	}

	s.appendEntry(ctx, SpeakerUser, text, session.ID)

	mode := s.mode.Mode()
	game := s.mode.Game()

	var resp *llm.AskResponse
	switch {
	case mode == ModeGame && game != nil:
		resp, err = s.ask.AskGame(ctx, s.userID, llm.GameAskRequest{
			Message:       text,
			GameSessionID: game.ID,
			SessionID:     session.ID,
		})
	case mode == ModeGame:
		resp, err = s.ask.AskInteractive(ctx, s.userID, llm.AskRequest{
			Message:   guidancePrompt + text,
			SessionID: session.ID,
		})
	default:
		resp, err = s.ask.AskInteractive(ctx, s.userID, llm.AskRequest{
			Message:   text,
			SessionID: session.ID,
		})
	}
	if err != nil {
		s.log.Warn("ask failed", "error", err, "mode", mode)
		s.turn.ExchangeFailed()
		s.emit(EventError, ErrorPayload{Code: "ask_failed", Message: "the avatar could not answer"})
		return
	}

	guidance := isGuidanceReply(mode, game != nil, resp.Text)
	s.deliverReply(ctx, session, resp, guidance)
}

// deliverReply appends the avatar entry, makes the avatar speak, and
// opens the speaking window. A reply for a session that has since been
// torn down is dropped without touching turn state.
func (s *ConversationSession) deliverReply(ctx context.Context, session *heygen.Session, resp *llm.AskResponse, guidance bool) {
	current := s.lifecycle.Current()
	if current == nil || current.ID != session.ID {
		s.log.Info("dropping reply for stale session", "session_id", session.ID)
		return
	}

	s.appendEntry(ctx, SpeakerAvatar, resp.Text, session.ID)

	durationMs := resp.DurationMs
	if task, err := s.avatar.SendTask(ctx, session.ID, resp.Text); err != nil {
		if shared.IsSessionClosed(err) {
			s.log.Warn("session closed while speaking", "session_id", session.ID)
			s.turn.ExchangeFailed()
			return
		}
		s.log.Warn("failed to send avatar task", "error", err)
	} else if task.DurationMs > 0 {
		durationMs = task.DurationMs
	}

	if resp.Audio != nil {
		s.emit(EventAudio, resp.Audio)
	}

	if guidance {
		s.mu.Lock()
		s.pendingGuidance = true
		s.mu.Unlock()
	}

	duration := SpeakingDuration(resp.Text, durationMs)
	s.turn.ReplySpoken(duration, resp.Audio != nil)
}

// OnTypedUtterance handles a message typed instead of spoken. It runs
// the same routing as a captured utterance.
func (s *ConversationSession) OnTypedUtterance(ctx context.Context, text string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleUtterance(ctx, text)
	}()
}

// OnAudioFinished lets observed playback completion beat the fallback
// timer.
func (s *ConversationSession) OnAudioFinished() {
	s.turn.AudioFinished()
}

// OnModeSwitch tears down the session, clears any selected game, and
// requests a fresh session in the new mode. Same-mode switches are
// no-ops.
func (s *ConversationSession) OnModeSwitch(ctx context.Context, mode Mode) {
	if !s.mode.Switch(mode) {
		return
	}

	s.lifecycle.Stop(ctx)
	s.turn.Reset()
	s.emit(EventModeChanged, ModeChangedPayload{Mode: mode})

	if mode == ModeGame {
		s.emit(EventShowGameSelection, nil)
	}
	if err := s.lifecycle.EnsureSession(ctx); err != nil {
		s.log.Error("failed to recreate session after mode switch", "error", err)
		s.emit(EventError, ErrorPayload{Code: "session_failed", Message: "could not restart avatar session"})
	}
}

func (s *ConversationSession) OnGameSelected(ctx context.Context, game GameContext) {
	if !s.mode.SelectGame(game) {
		return
	}
	s.emit(EventModeChanged, ModeChangedPayload{Mode: ModeGame, Game: &game})
}

func (s *ConversationSession) OnVoiceRateChanged(ctx context.Context, rate float64) {
	s.lifecycle.OnVoiceRateChanged(ctx, rate)
}

func (s *ConversationSession) OnAvatarChanged(ctx context.Context, avatarID string) {
	s.lifecycle.OnAvatarChanged(ctx, avatarID)
}

// AppendAudio forwards a recorded audio frame to the capture adapter.
func (s *ConversationSession) AppendAudio(frame []byte) {
	if rec, ok := s.capturer.(interface{ AppendAudio([]byte) }); ok {
		rec.AppendAudio(frame)
	}
}

// Close tears down the session. Stop errors are swallowed.
func (s *ConversationSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.capturer.Cancel()
	s.lifecycle.Close(context.Background())
	s.turn.Reset()
	s.wg.Wait()
}

func (s *ConversationSession) onSessionStarted(session *heygen.Session) {
	s.emit(EventSessionStarted, SessionStartedPayload{
		SessionID:   session.ID,
		URL:         session.URL,
		AccessToken: session.AccessToken,
		AvatarID:    session.AvatarID,
	})
	s.maybeAutoGreet(session)
}

func (s *ConversationSession) onSessionStopped() {
	s.turn.Reset()
	s.emit(EventSessionStopped, nil)
}

// maybeAutoGreet sends the opening utterance at most once per avatar
// session, and only in interactive mode.
func (s *ConversationSession) maybeAutoGreet(session *heygen.Session) {
	if !s.autoStart || s.mode.Mode() != ModeInteractive {
		return
	}
	if !s.guard.MarkAutoStarted(session.ID) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		if err := s.turn.BeginExchange(); err != nil {
			return
		}
		resp, err := s.ask.AskAutoGreet(ctx, s.userID, llm.AutoGreetRequest{SessionID: session.ID})
		if err != nil {
			s.log.Warn("auto greeting failed", "error", err)
			s.turn.ExchangeFailed()
			return
		}
		s.deliverReply(ctx, session, resp, false)
	}()
}

func (s *ConversationSession) onTurnChange(state TurnState) {
	s.emit(EventTurnState, state)

	if state.Phase != PhaseIdle {
		return
	}
	s.mu.Lock()
	pending := s.pendingGuidance
	s.pendingGuidance = false
	s.mu.Unlock()
	if pending {
		time.AfterFunc(s.guidanceDelay, func() {
			s.emit(EventShowGameSelection, nil)
		})
	}
}

func (s *ConversationSession) appendEntry(ctx context.Context, from Speaker, text, sessionID string) {
	entry := s.transcript.Append(from, text, time.Now())
	s.emit(EventTranscript, entry)

	if s.games != nil && s.mode.Mode() == ModeGame {
		if game := s.mode.Game(); game != nil {
			if err := s.games.RecordMessage(ctx, game.ID, string(from), text); err != nil {
				s.log.Warn("failed to record game message", "error", err)
			}
		}
	}

	if s.hist == nil {
		return
	}
	err := s.hist.Append(ctx, &history.ChatMessage{
		UserID:    s.userID,
		SessionID: sessionID,
		Sender:    history.Sender(from),
		Text:      text,
		Mode:      string(s.mode.Mode()),
		CreatedAt: entry.Timestamp,
	})
	if err != nil {
		s.log.Warn("failed to persist transcript entry", "error", err)
	}
}

func (s *ConversationSession) emit(event string, payload any) {
	if s.emitter != nil {
		s.emitter.Emit(event, payload)
	}
}
