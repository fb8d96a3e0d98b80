package history

import (
	"context"

	"github.com/careloop/companion-backend/internal/shared"
	"gorm.io/gorm"
)

// PageSize is the number of messages returned per history page.
const PageSize = 30

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&ChatMessage{})
}

func (s *Store) Append(ctx context.Context, m *ChatMessage) error {
	if m.ID == "" {
		m.ID = shared.NewID("msg_")
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// Page returns one page of a user's messages, newest first. Page numbers
// start at 1.
func (s *Store) Page(ctx context.Context, userID string, page int) ([]ChatMessage, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(PageSize).
		Offset((page - 1) * PageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// BySession returns all messages of one avatar session in chronological
// order.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	var messages []ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}
