package users

import (
	"time"

	"github.com/lenana-drops/lenana/internal/shared"
)

// User is a staff account. The role decides what the account may do; see
// the rbac package for enforcement.
type User struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         shared.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
