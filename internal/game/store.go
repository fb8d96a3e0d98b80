package game

import (
	"context"
	"errors"
	"time"

	"github.com/careloop/companion-backend/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Game{}, &GameSession{}, &GameMessage{})
}

// Seed inserts catalog entries that do not exist yet.
func (s *Store) Seed(ctx context.Context, games []Game) error {
	for _, g := range games {
		err := s.db.WithContext(ctx).
			Where("id = ?", g.ID).
			FirstOrCreate(&Game{}, g).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListGames(ctx context.Context) ([]Game, error) {
	var games []Game
	err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&games).Error
	return games, err
}

func (s *Store) GetGame(ctx context.Context, id string) (*Game, error) {
	var g Game
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &g, err
}

// Start opens a new session for the user, ending any session still
// active.
func (s *Store) Start(ctx context.Context, userID, gameID string) (*GameSession, error) {
	if err := s.endActive(ctx, userID); err != nil {
		return nil, err
	}

	session := &GameSession{
		ID:        shared.NewID("game_"),
		UserID:    userID,
		GameID:    gameID,
		Status:    StatusActive,
		StartedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// Active returns the user's running session, or shared.ErrNotFound.
func (s *Store) Active(ctx context.Context, userID string) (*GameSession, error) {
	var session GameSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusActive).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &session, err
}

func (s *Store) End(ctx context.Context, userID string) error {
	return s.endActive(ctx, userID)
}

// RecordMessage appends one exchange to a game session's record.
func (s *Store) RecordMessage(ctx context.Context, gameSessionID, sender, text string) error {
	m := &GameMessage{
		ID:            shared.NewID("gmsg_"),
		GameSessionID: gameSessionID,
		Sender:        sender,
		Text:          text,
		CreatedAt:     time.Now(),
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// Messages returns a game session's exchanges in chronological order.
func (s *Store) Messages(ctx context.Context, gameSessionID string) ([]GameMessage, error) {
	var messages []GameMessage
	err := s.db.WithContext(ctx).
		Where("game_session_id = ?", gameSessionID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (s *Store) endActive(ctx context.Context, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&GameSession{}).
		Where("user_id = ? AND status = ?", userID, StatusActive).
		Updates(map[string]any{"status": StatusEnded, "ended_at": &now}).Error
}
