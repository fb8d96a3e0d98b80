package bootstrap

import (
	"os"
	"strconv"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	Version    string

	HMACKey string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HeyGenBaseURL string
	HeyGenAPIKey  string

	LLMBaseURL string
	LLMAPIKey  string

	WhisperBaseURL string

	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitURL       string

	DefaultAvatarID  string
	DefaultVoiceRate float64
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Version:    getEnv("VERSION", "dev"),

		HMACKey: getEnv("HMAC_KEY", "change-me-in-production"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		HeyGenBaseURL: getEnv("HEYGEN_BASE_URL", "https://api.heygen.com"),
		HeyGenAPIKey:  getEnv("HEYGEN_API_KEY", ""),

		LLMBaseURL: getEnv("LLM_BASE_URL", "http://localhost:3000"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),

		WhisperBaseURL: getEnv("WHISPER_BASE_URL", "http://localhost:9000"),

		LiveKitAPIKey:    getEnv("LIVEKIT_API_KEY", ""),
		LiveKitAPISecret: getEnv("LIVEKIT_API_SECRET", ""),
		LiveKitURL:       getEnv("LIVEKIT_URL", ""),

		DefaultAvatarID:  getEnv("DEFAULT_AVATAR_ID", "June_HR_public"),
		DefaultVoiceRate: getEnvFloat("DEFAULT_VOICE_RATE", 0.95),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
