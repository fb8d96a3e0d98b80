package conversation

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/shared"
)

// rateEpsilon separates real voice-rate changes from float noise.
const rateEpsilon = 0.01

// Durations collects the lifecycle timing knobs. Tests inject short
// values; production uses Defaults.
type Durations struct {
	StopDebounce time.Duration
	SettleDelay  time.Duration
	ReadyTimeout time.Duration
	RetryDelay   time.Duration
}

func DefaultDurations() Durations {
	return Durations{
		StopDebounce: 15 * time.Second,
		SettleDelay:  time.Second,
		ReadyTimeout: 5 * time.Second,
		RetryDelay:   time.Second,
	}
}

// SessionConfig is the avatar configuration a session is created with.
type SessionConfig struct {
	AvatarID  string
	VoiceID   string
	VoiceRate float64
}

// LifecycleManager owns the single live avatar session for one user. It
// creates the session when the client is focused, tears it down on
// background or prolonged focus loss, and restarts it when the avatar or
// voice configuration genuinely changes.
type LifecycleManager struct {
	client    heygen.SessionClient
	durations Durations
	log       *slog.Logger

	// onStarted fires after a session reaches Started.
	onStarted func(*heygen.Session)
	onStopped func()

	mu          sync.Mutex
	config      SessionConfig
	current     *heygen.Session
	ready       chan struct{}
	stopTimer   *time.Timer
	settleTimer *time.Timer
	initialLoad bool
	closed      bool
}

type LifecycleConfig struct {
	Client    heygen.SessionClient
	Config    SessionConfig
	Durations Durations
	OnStarted func(*heygen.Session)
	OnStopped func()
	Log       *slog.Logger
}

func NewLifecycleManager(cfg LifecycleConfig) *LifecycleManager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Durations == (Durations{}) {
		cfg.Durations = DefaultDurations()
	}
	if cfg.OnStarted == nil {
		cfg.OnStarted = func(*heygen.Session) {}
	}
	if cfg.OnStopped == nil {
		cfg.OnStopped = func() {}
	}
	return &LifecycleManager{
		client:      cfg.Client,
		config:      cfg.Config,
		durations:   cfg.Durations,
		log:         cfg.Log.With("component", "lifecycle"),
		onStarted:   cfg.OnStarted,
		onStopped:   cfg.OnStopped,
		ready:       make(chan struct{}),
		initialLoad: true,
	}
}

// Current returns the live session, or nil.
func (m *LifecycleManager) Current() *heygen.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *LifecycleManager) Config() SessionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// EnsureSession creates and starts a session if none is live. A start
// failing with the session-closed error clears state and retries creation
// once after the retry delay.
func (m *LifecycleManager) EnsureSession(ctx context.Context) error {
	m.mu.Lock()
	if m.closed || m.current != nil {
		m.mu.Unlock()
		return nil
	}
	config := m.config
	m.mu.Unlock()

	err := m.createAndStart(ctx, config)
	if err == nil {
		return nil
	}
	if !shared.IsSessionClosed(err) {
		return err
	}

	m.log.Warn("session closed during start, retrying once", "error", err)
	m.clearSession()
	select {
	case <-time.After(m.durations.RetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.createAndStart(ctx, config)
}

func (m *LifecycleManager) createAndStart(ctx context.Context, config SessionConfig) error {
	session, err := m.client.CreateSession(ctx, heygen.SessionRequest{
		AvatarID: config.AvatarID,
		Voice: &heygen.VoiceSettings{
			VoiceID: config.VoiceID,
			Rate:    config.VoiceRate,
		},
		DisableIdleTimeout:  true,
		ActivityIdleTimeout: 3600,
	})
	if err != nil {
		return err
	}

	if err := m.client.StartSession(ctx, session.ID); err != nil {
		// Best effort, the session never became usable.
		_ = m.client.StopSession(context.WithoutCancel(ctx), session.ID)
		return err
	}
	session.Status = heygen.StatusStarted

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = m.client.StopSession(context.WithoutCancel(ctx), session.ID)
		return nil
	}
	m.current = session
	close(m.ready)
	m.mu.Unlock()

	m.log.Info("avatar session started", "session_id", session.ID, "avatar_id", config.AvatarID)
	m.onStarted(session)
	return nil
}

// WaitReady blocks until the current session is started, the timeout
// elapses, or ctx is cancelled. It returns the session that became ready.
func (m *LifecycleManager) WaitReady(ctx context.Context) (*heygen.Session, error) {
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()

	timer := time.NewTimer(m.durations.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		return nil, shared.ErrSessionNotReady
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, shared.ErrSessionNotReady
	}
	return m.current, nil
}

// OnFocusGained cancels any pending debounced stop and makes sure a
// session exists.
func (m *LifecycleManager) OnFocusGained(ctx context.Context) error {
	m.mu.Lock()
	if m.stopTimer != nil {
		m.stopTimer.Stop()
		m.stopTimer = nil
	}
	m.mu.Unlock()

	return m.EnsureSession(ctx)
}

// OnFocusLost schedules a stop after the debounce window. A transient
// blur that regains focus in time never touches the session.
func (m *LifecycleManager) OnFocusLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.current == nil {
		return
	}
	if m.stopTimer != nil {
		m.stopTimer.Stop()
	}
	m.stopTimer = time.AfterFunc(m.durations.StopDebounce, func() {
		m.log.Info("focus lost, stopping session after debounce")
		m.Stop(context.Background())
	})
}

// OnAppBackgrounded stops the session immediately. Backgrounding is a
// hard signal, unlike focus loss.
func (m *LifecycleManager) OnAppBackgrounded(ctx context.Context) {
	m.Stop(ctx)
}

// OnVoiceRateChanged restarts the session when the rate moved by more
// than the epsilon. The first value observed after construction only
// records the rate.
func (m *LifecycleManager) OnVoiceRateChanged(ctx context.Context, rate float64) {
	m.mu.Lock()
	previous := m.config.VoiceRate
	initial := m.initialLoad
	m.initialLoad = false
	m.config.VoiceRate = rate
	m.mu.Unlock()

	if initial || math.Abs(rate-previous) <= rateEpsilon {
		return
	}
	m.restartAfterSettle(ctx)
}

// OnAvatarChanged restarts the session when a different avatar was
// picked.
func (m *LifecycleManager) OnAvatarChanged(ctx context.Context, avatarID string) {
	m.mu.Lock()
	previous := m.config.AvatarID
	initial := m.initialLoad
	m.initialLoad = false
	m.config.AvatarID = avatarID
	m.mu.Unlock()

	if initial || avatarID == previous {
		return
	}
	m.restartAfterSettle(ctx)
}

func (m *LifecycleManager) restartAfterSettle(ctx context.Context) {
	m.Stop(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.settleTimer != nil {
		m.settleTimer.Stop()
	}
	m.settleTimer = time.AfterFunc(m.durations.SettleDelay, func() {
		if err := m.EnsureSession(context.Background()); err != nil {
			m.log.Error("failed to recreate session after settings change", "error", err)
		}
	})
	m.mu.Unlock()
}

// Stop tears down the live session. Stop errors are logged and swallowed.
func (m *LifecycleManager) Stop(ctx context.Context) {
	m.mu.Lock()
	session := m.current
	m.current = nil
	if session != nil {
		m.ready = make(chan struct{})
	}
	if m.stopTimer != nil {
		m.stopTimer.Stop()
		m.stopTimer = nil
	}
	m.mu.Unlock()

	if session == nil {
		return
	}
	if err := m.client.StopSession(ctx, session.ID); err != nil {
		m.log.Warn("failed to stop avatar session", "session_id", session.ID, "error", err)
	}
	m.onStopped()
}

// Close stops the session and prevents any future creation.
func (m *LifecycleManager) Close(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	m.mu.Unlock()

	m.Stop(ctx)
}

func (m *LifecycleManager) clearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}
