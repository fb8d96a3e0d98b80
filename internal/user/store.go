package user

import (
	"context"
	"errors"

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
	return s.db.AutoMigrate(&User{})
}

func (s *Store) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = shared.NewID("user_")
	}
	if u.Role == "" {
		u.Role = shared.RoleElderly
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &u, err
}

// SyncFromJWT satisfies the auth middleware's UserSyncer.
func (s *Store) SyncFromJWT(ctx context.Context, userID, email, name, role string) error {
	_, err := s.FindOrCreate(ctx, userID, email, name, shared.Role(role))
	return err
}

// FindOrCreate upserts the account carried by a validated token. Profile
// fields refresh when the token disagrees with the stored record.
func (s *Store) FindOrCreate(ctx context.Context, id, email, name string, role shared.Role) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err == nil {
		if (email != "" && u.Email != email) || (name != "" && u.Name != name) {
			if email != "" {
				u.Email = email
			}
			if name != "" {
				u.Name = name
			}
			if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
				return nil, err
			}
		}
		return u, nil
	}

	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	u = &User{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
	}
	if u.Role == "" {
		u.Role = shared.RoleElderly
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}
