package game

import "time"

type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// Game is a catalog entry the user can play through the avatar.
type Game struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// GameSession tracks one play-through. At most one session per user is
// active at a time.
type GameSession struct {
	ID        string        `gorm:"primaryKey" json:"id"`
	UserID    string        `gorm:"index" json:"userId"`
	GameID    string        `json:"gameId"`
	Status    SessionStatus `gorm:"index" json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
}

// GameMessage is one exchange recorded while a game session was active.
type GameMessage struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	GameSessionID string    `gorm:"index" json:"gameSessionId"`
	Sender        string    `json:"sender"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"createdAt"`
}
