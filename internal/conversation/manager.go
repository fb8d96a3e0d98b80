package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/prefs"
	"github.com/careloop/companion-backend/internal/transcription"
)

// Manager holds the live conversation session per user. A user
// reconnecting replaces their previous session.
type Manager struct {
	ask         AskClient
	avatar      heygen.SessionClient
	hist        HistoryRecorder
	games       GameRecorder
	prefStore   *prefs.Store
	transcriber transcription.Transcriber
	durations   Durations
	log         *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*ConversationSession
}

type ManagerConfig struct {
	Ask         AskClient
	Avatar      heygen.SessionClient
	History     HistoryRecorder
	Games       GameRecorder
	Prefs       *prefs.Store
	Transcriber transcription.Transcriber
	Durations   Durations
	Log         *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Durations == (Durations{}) {
		cfg.Durations = DefaultDurations()
	}
	return &Manager{
		ask:         cfg.Ask,
		avatar:      cfg.Avatar,
		hist:        cfg.History,
		games:       cfg.Games,
		prefStore:   cfg.Prefs,
		transcriber: cfg.Transcriber,
		durations:   cfg.Durations,
		log:         cfg.Log.With("component", "conversation_manager"),
		sessions:    make(map[string]*ConversationSession),
	}
}

// Open creates the conversation session for a newly connected user,
// loading their stored preferences. An existing session for the same user
// is closed first.
func (m *Manager) Open(ctx context.Context, userID string, emitter Emitter) *ConversationSession {
	preferences, err := m.prefStore.Get(ctx, userID)
	if err != nil {
		m.log.Warn("failed to load preferences, using defaults", "error", err, "user_id", userID)
		preferences = prefs.DefaultPreferences()
	}

	recorder := transcription.NewRecorder(m.transcriber, m.log)
	if preferences.Language != "" {
		recorder.SetLanguage(preferences.Language)
	}

	session := NewSession(SessionDeps{
		UserID:   userID,
		Emitter:  emitter,
		Capturer: recorder,
		Ask:      m.ask,
		Avatar:   m.avatar,
		History:  m.hist,
		Games:    m.games,
		Config: SessionConfig{
			AvatarID:  preferences.AvatarID,
			VoiceID:   "default",
			VoiceRate: preferences.VoiceRate,
		},
		AutoStart: preferences.AutoStart,
		Durations: m.durations,
		Log:       m.log,
	})

	m.mu.Lock()
	previous := m.sessions[userID]
	m.sessions[userID] = session
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
		m.log.Info("replaced existing conversation session", "user_id", userID)
	}

	m.log.Info("conversation session opened", "user_id", userID)
	return session
}

func (m *Manager) Get(userID string) (*ConversationSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// Remove closes and forgets the user's session. A session replaced by a
// newer Open is not closed twice.
func (m *Manager) Remove(userID string, session *ConversationSession) {
	m.mu.Lock()
	current, ok := m.sessions[userID]
	if ok && current == session {
		delete(m.sessions, userID)
	} else {
		session = nil
	}
	m.mu.Unlock()

	if session != nil {
		session.Close()
		m.log.Info("conversation session closed", "user_id", userID)
	}
}

// CloseAll tears down every live session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*ConversationSession)
	m.mu.Unlock()

	for userID, session := range sessions {
		session.Close()
		m.log.Info("conversation session closed", "user_id", userID)
	}
}

// Count returns the number of live sessions, surfaced by health stats.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
