package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies what the caller did to the resource.
type Action string

const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

// Entry is one append-only audit record. The actor triple (user id, role,
// client ip) is stamped by the service; Fields holds the names of the fields
// a mutation changed, never their values.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	HospitalID string    `json:"hospital_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	Role       string    `json:"role,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	Action     Action    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListFilter narrows audit queries. Zero values mean no constraint.
type ListFilter struct {
	UserID   string
	Action   Action
	Resource string
	Since    time.Time
	Until    time.Time
}
