package history

import "time"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAvatar Sender = "avatar"
)

// ChatMessage is one persisted line of a conversation, written as
// exchanges complete.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index:idx_chat_user_created" json:"userId"`
	SessionID string    `gorm:"index" json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `gorm:"index:idx_chat_user_created" json:"createdAt"`
}
