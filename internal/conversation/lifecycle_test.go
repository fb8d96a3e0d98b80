package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/shared"
)

type fakeAvatarClient struct {
	mu         sync.Mutex
	creates    int
	starts     int
	stops      int
	tasks      []string
	startErr   error
	taskErr    error
	taskResult heygen.TaskResult
}

func (f *fakeAvatarClient) CreateSession(_ context.Context, req heygen.SessionRequest) (*heygen.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return &heygen.Session{
		ID:       shared.NewID("avsess_"),
		AvatarID: req.AvatarID,
		URL:      "wss://stream.example.com",
		Status:   heygen.StatusCreated,
	}, nil
}

func (f *fakeAvatarClient) StartSession(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	err := f.startErr
	f.startErr = nil
	return err
}

func (f *fakeAvatarClient) StopSession(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeAvatarClient) SendTask(_ context.Context, _ string, text string) (*heygen.TaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	f.tasks = append(f.tasks, text)
	result := f.taskResult
	return &result, nil
}

func (f *fakeAvatarClient) counts() (creates, starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.starts, f.stops
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDurations() Durations {
	return Durations{
		StopDebounce: 40 * time.Millisecond,
		SettleDelay:  10 * time.Millisecond,
		ReadyTimeout: 200 * time.Millisecond,
		RetryDelay:   10 * time.Millisecond,
	}
}

func newTestLifecycle(client *fakeAvatarClient) *LifecycleManager {
	return NewLifecycleManager(LifecycleConfig{
		Client:    client,
		Config:    SessionConfig{AvatarID: "June_HR_public", VoiceID: "default", VoiceRate: 0.95},
		Durations: testDurations(),
		Log:       discardLogger(),
	})
}

func TestEnsureSessionCreatesOnce(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	if err := m.EnsureSession(ctx); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if err := m.EnsureSession(ctx); err != nil {
		t.Fatalf("EnsureSession again: %v", err)
	}

	creates, starts, _ := client.counts()
	if creates != 1 || starts != 1 {
		t.Errorf("expected one create/start, got %d/%d", creates, starts)
	}
	if m.Current() == nil || m.Current().Status != heygen.StatusStarted {
		t.Errorf("expected started session, got %+v", m.Current())
	}
}

func TestWaitReadyResolvesOnStart(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.EnsureSession(context.Background())
	}()

	session, err := m.WaitReady(context.Background())
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if session == nil || session.ID == "" {
		t.Fatal("expected ready session")
	}
}

func TestWaitReadyTimesOut(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)

	_, err := m.WaitReady(context.Background())
	if !errors.Is(err, shared.ErrSessionNotReady) {
		t.Fatalf("expected ErrSessionNotReady, got %v", err)
	}
}

func TestFocusBlipWithinDebounceKeepsSession(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	if err := m.OnFocusGained(ctx); err != nil {
		t.Fatalf("OnFocusGained: %v", err)
	}
	m.OnFocusLost()
	// Regain focus well inside the debounce window.
	if err := m.OnFocusGained(ctx); err != nil {
		t.Fatalf("OnFocusGained again: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	creates, _, stops := client.counts()
	if creates != 1 {
		t.Errorf("expected single create, got %d", creates)
	}
	if stops != 0 {
		t.Errorf("expected no stops, got %d", stops)
	}
}

func TestFocusLostStopsAfterDebounce(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)

	m.OnFocusGained(context.Background())
	m.OnFocusLost()

	waitFor(t, time.Second, func() bool {
		_, _, stops := client.counts()
		return stops == 1
	})
	if m.Current() != nil {
		t.Error("expected session cleared after debounced stop")
	}
}

func TestBackgroundStopsImmediately(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)

	m.OnFocusGained(context.Background())
	m.OnAppBackgrounded(context.Background())

	_, _, stops := client.counts()
	if stops != 1 {
		t.Errorf("expected immediate stop, got %d", stops)
	}
}

func TestVoiceRateNoiseDoesNotRestart(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	m.EnsureSession(ctx)
	m.OnVoiceRateChanged(ctx, 0.95)
	m.OnVoiceRateChanged(ctx, 0.95)

	time.Sleep(40 * time.Millisecond)

	creates, _, stops := client.counts()
	if creates != 1 || stops != 0 {
		t.Errorf("expected no restart for unchanged rate, got creates=%d stops=%d", creates, stops)
	}
}

func TestVoiceRateChangeRestartsAfterSettle(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	m.EnsureSession(ctx)
	m.OnVoiceRateChanged(ctx, 0.95)
	m.OnVoiceRateChanged(ctx, 1.2)

	waitFor(t, time.Second, func() bool {
		creates, _, stops := client.counts()
		return creates == 2 && stops == 1
	})
	if m.Config().VoiceRate != 1.2 {
		t.Errorf("expected rate 1.2 applied, got %v", m.Config().VoiceRate)
	}
}

func TestInitialLoadDoesNotRestart(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	m.EnsureSession(ctx)
	// First observed value after mount is a load, not a user change.
	m.OnVoiceRateChanged(ctx, 1.5)

	time.Sleep(40 * time.Millisecond)

	creates, _, stops := client.counts()
	if creates != 1 || stops != 0 {
		t.Errorf("expected no restart on initial load, got creates=%d stops=%d", creates, stops)
	}
}

func TestAvatarChangeRestarts(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	m.EnsureSession(ctx)
	m.OnAvatarChanged(ctx, "June_HR_public")
	m.OnAvatarChanged(ctx, "Wayne_20240711")

	waitFor(t, time.Second, func() bool {
		creates, _, _ := client.counts()
		return creates == 2
	})
	if m.Config().AvatarID != "Wayne_20240711" {
		t.Errorf("expected new avatar applied, got %s", m.Config().AvatarID)
	}
}

func TestSessionClosedStartRetriesOnce(t *testing.T) {
	client := &fakeAvatarClient{startErr: shared.ErrSessionClosed}
	m := newTestLifecycle(client)

	if err := m.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	creates, starts, _ := client.counts()
	if creates != 2 || starts != 2 {
		t.Errorf("expected one retry, got creates=%d starts=%d", creates, starts)
	}
	if m.Current() == nil {
		t.Error("expected live session after retry")
	}
}

func TestCloseStopsAndPreventsRecreation(t *testing.T) {
	client := &fakeAvatarClient{}
	m := newTestLifecycle(client)
	ctx := context.Background()

	m.EnsureSession(ctx)
	m.Close(ctx)

	if err := m.EnsureSession(ctx); err != nil {
		t.Fatalf("EnsureSession after close: %v", err)
	}

	creates, _, stops := client.counts()
	if creates != 1 || stops != 1 {
		t.Errorf("expected closed manager to stay down, got creates=%d stops=%d", creates, stops)
	}
}
