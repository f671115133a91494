package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of the platform an account belongs to.
type Role string

const (
	RoleTutor Role = "tutor"
	RoleVet   Role = "vet"
)

// Account is a platform profile. Tutors are keyed by email; the bulk
// importer looks accounts up by that identifier before creating new ones.
type Account struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount builds an account ready for persistence.
func NewAccount(fullName, email string, role Role) Account {
	now := time.Now()
	return Account{
		ID:        uuid.New(),
		FullName:  fullName,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
