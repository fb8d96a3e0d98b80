package bootstrap

import (
	"log/slog"
	"os"

	"github.com/careloop/companion-backend/internal/auth"
	"github.com/careloop/companion-backend/internal/conversation"
	"github.com/careloop/companion-backend/internal/game"
	"github.com/careloop/companion-backend/internal/gateway"
	"github.com/careloop/companion-backend/internal/health"
	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/history"
	"github.com/careloop/companion-backend/internal/llm"
	"github.com/careloop/companion-backend/internal/prefs"
	"github.com/careloop/companion-backend/internal/transcription"
	"github.com/careloop/companion-backend/internal/user"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type HandlerParams struct {
	fx.In

	UserHandler    *user.Handler
	HistoryHandler *history.Handler
	GameHandler    *game.Handler
	AvatarHandler  *heygen.Handler
	PrefsHandler   *prefs.Handler
	ChatHandler    *gateway.Handler
	HealthHandler  *health.Handler
	JWTMiddleware  *auth.Middleware
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(params.JWTMiddleware.Authenticate)
	params.UserHandler.RegisterRoutes(authGroup)

	historyGroup := api.Group("/history")
	historyGroup.Use(params.JWTMiddleware.Authenticate)
	params.HistoryHandler.RegisterRoutes(historyGroup)

	gamesGroup := api.Group("/games")
	gamesGroup.Use(params.JWTMiddleware.Authenticate)
	params.GameHandler.RegisterRoutes(gamesGroup)

	avatarsGroup := api.Group("/avatars")
	avatarsGroup.Use(params.JWTMiddleware.Authenticate)
	params.AvatarHandler.RegisterRoutes(avatarsGroup)

	prefsGroup := api.Group("/preferences")
	prefsGroup.Use(params.JWTMiddleware.Authenticate)
	params.PrefsHandler.RegisterRoutes(prefsGroup)

	chatGroup := api.Group("/chat")
	chatGroup.Use(params.JWTMiddleware.Authenticate)
	params.ChatHandler.RegisterRoutes(chatGroup)

	params.HealthHandler.RegisterRoutes(e)

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideJWTValidator(cfg *Config) *auth.JWTValidator {
	return auth.NewJWTValidator(cfg.HMACKey)
}

func ProvideJWTMiddleware(validator *auth.JWTValidator, userStore *user.Store) *auth.Middleware {
	return auth.NewMiddleware(validator, userStore)
}

func ProvideUserHandler(store *user.Store, logger *slog.Logger) *user.Handler {
	return user.NewHandler(store, logger.With("handler", "user"))
}

func ProvideHistoryHandler(store *history.Store, logger *slog.Logger) *history.Handler {
	return history.NewHandler(store, logger.With("handler", "history"))
}

func ProvideGameHandler(store *game.Store, logger *slog.Logger) *game.Handler {
	return game.NewHandler(store, logger.With("handler", "game"))
}

func ProvideAvatarHandler(cache *heygen.AvatarCache, logger *slog.Logger) *heygen.Handler {
	return heygen.NewHandler(cache, logger.With("handler", "avatar"))
}

func ProvidePrefsHandler(store *prefs.Store, logger *slog.Logger) *prefs.Handler {
	return prefs.NewHandler(store, logger.With("handler", "prefs"))
}

func ProvideChatHandler(manager *conversation.Manager, store *prefs.Store, tokens *gateway.TokenService, logger *slog.Logger) *gateway.Handler {
	return gateway.NewHandler(manager, store, tokens, logger.With("handler", "chat"))
}

func ProvideHealthHandler(
	db *gorm.DB,
	redisClient *redis.Client,
	whisper *transcription.WhisperClient,
	llmClient *llm.Client,
	manager *conversation.Manager,
	cfg *Config,
) *health.Handler {
	return health.NewHandler(db, redisClient, whisper, llmClient, manager, cfg.Version)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideJWTValidator,
		ProvideJWTMiddleware,
		ProvideUserHandler,
		ProvideHistoryHandler,
		ProvideGameHandler,
		ProvideAvatarHandler,
		ProvidePrefsHandler,
		ProvideChatHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)
