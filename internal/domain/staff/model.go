// Package staff manages hospital user accounts: nurses, coordinators,
// admins, and the monitoring agent's service account. It is also where token
// subjects are resolved into full identities, so role and hospital always
// reflect the users table rather than token claims.
package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"-"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Role       auth.Role `json:"role"`
	HospitalID string    `json:"hospital_id"`
	// ServiceAccount marks the agent's account; it cannot log in
	// interactively and is resolved only through the API key path.
	ServiceAccount bool      `json:"service_account,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateProfileRequest carries the self-service editable fields. Role,
// hospital and email are deliberately absent; they change only through
// provisioning.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=40"`
}
