package bootstrap

import (
	"context"
	"log/slog"

	"github.com/careloop/companion-backend/internal/game"
	"github.com/careloop/companion-backend/internal/history"
	"github.com/careloop/companion-backend/internal/prefs"
	"github.com/careloop/companion-backend/internal/user"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideUserStore(db *gorm.DB) *user.Store {
	return user.NewStore(db)
}

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	return history.NewStore(db)
}

func ProvideGameStore(db *gorm.DB) *game.Store {
	return game.NewStore(db)
}

func ProvidePrefsStore(redisClient *redis.Client, logger *slog.Logger) *prefs.Store {
	return prefs.NewStore(redisClient, logger)
}

// defaultGames is the built-in catalog, extendable through the database.
var defaultGames = []game.Game{
	{ID: "trivia", Name: "Trivia", Description: "General knowledge questions, one at a time", Enabled: true},
	{ID: "word_recall", Name: "Word Recall", Description: "Remember and repeat a short word list", Enabled: true},
	{ID: "story_builder", Name: "Story Builder", Description: "Build a story together, one sentence each", Enabled: true},
}

func RunMigrations(userStore *user.Store, historyStore *history.Store, gameStore *game.Store) error {
	if err := userStore.Migrate(); err != nil {
		return err
	}
	if err := historyStore.Migrate(); err != nil {
		return err
	}
	if err := gameStore.Migrate(); err != nil {
		return err
	}
	return gameStore.Seed(context.Background(), defaultGames)
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideUserStore,
		ProvideHistoryStore,
		ProvideGameStore,
		ProvidePrefsStore,
	),
	fx.Invoke(RunMigrations),
)
