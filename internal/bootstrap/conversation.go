package bootstrap

import (
	"context"
	"log/slog"

	"github.com/careloop/companion-backend/internal/conversation"
	"github.com/careloop/companion-backend/internal/game"
	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/history"
	"github.com/careloop/companion-backend/internal/llm"
	"github.com/careloop/companion-backend/internal/prefs"
	"github.com/careloop/companion-backend/internal/transcription"
	"go.uber.org/fx"
)

func ProvideConversationManager(
	llmClient *llm.Client,
	heygenClient *heygen.Client,
	historyStore *history.Store,
	gameStore *game.Store,
	prefStore *prefs.Store,
	whisper *transcription.WhisperClient,
	logger *slog.Logger,
) *conversation.Manager {
	return conversation.NewManager(conversation.ManagerConfig{
		Ask:         llmClient,
		Avatar:      heygenClient,
		History:     historyStore,
		Games:       gameStore,
		Prefs:       prefStore,
		Transcriber: whisper,
		Log:         logger,
	})
}

func CloseConversationsOnShutdown(lc fx.Lifecycle, manager *conversation.Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			manager.CloseAll()
			return nil
		},
	})
}

var ConversationModule = fx.Options(
	fx.Provide(ProvideConversationManager),
	fx.Invoke(CloseConversationsOnShutdown),
)
