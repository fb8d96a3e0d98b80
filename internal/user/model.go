package user

import (
	"time"

	"github.com/careloop/companion-backend/internal/shared"
)

// User is an account known to the companion backend. Elderly users own
// conversation sessions; caregivers can review history.
type User struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	Email     string      `gorm:"uniqueIndex" json:"email"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
