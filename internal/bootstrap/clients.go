package bootstrap

import (
	"log/slog"

	"github.com/careloop/companion-backend/internal/gateway"
	"github.com/careloop/companion-backend/internal/heygen"
	"github.com/careloop/companion-backend/internal/llm"
	"github.com/careloop/companion-backend/internal/transcription"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideHeyGenClient(cfg *Config, logger *slog.Logger) *heygen.Client {
	return heygen.NewClient(heygen.Config{
		BaseURL: cfg.HeyGenBaseURL,
		APIKey:  cfg.HeyGenAPIKey,
	}, logger)
}

func ProvideAvatarCache(client *heygen.Client, redisClient *redis.Client, logger *slog.Logger) *heygen.AvatarCache {
	return heygen.NewAvatarCache(client, redisClient, logger)
}

func ProvideLLMClient(cfg *Config, logger *slog.Logger) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
	}, logger)
}

func ProvideWhisperClient(cfg *Config, logger *slog.Logger) *transcription.WhisperClient {
	return transcription.NewWhisperClient(transcription.Config{
		BaseURL: cfg.WhisperBaseURL,
	}, logger)
}

func ProvideTokenService(cfg *Config) *gateway.TokenService {
	return gateway.NewTokenService(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL)
}

var ClientsModule = fx.Options(
	fx.Provide(
		ProvideHeyGenClient,
		ProvideAvatarCache,
		ProvideLLMClient,
		ProvideWhisperClient,
		ProvideTokenService,
	),
)
