// Package alert manages clinical monitoring alerts and their triage
// ordering. Alerts keep the raw priority vocabulary the monitoring agent
// emitted; ranking and display levels are derived, never stored, so a
// vocabulary change cannot strand rows.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

type Alert struct {
	ID         uuid.UUID `json:"id"`
	HospitalID string    `json:"hospital_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	// PatientName is denormalized at creation so list views render without a
	// join per row.
	PatientName string `json:"patient_name"`
	// Trigger is the short description of what fired the alert; Brief is the
	// longer analysis the monitoring agent drafted.
	Trigger string `json:"trigger"`
	Brief   string `json:"brief"`
	// Priority holds the raw vocabulary value as received, e.g. RED or
	// WARNING. Level in responses is derived from it.
	Priority       string       `json:"priority"`
	Level          triage.Level `json:"level"`
	Status         Status       `json:"status"`
	ResolutionNote string       `json:"resolution_note,omitempty"`
	// CallRef points at the telephony recording that backs the alert, when
	// one exists.
	CallRef   string    `json:"call_ref,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RawPriority implements triage.Sortable.
func (a *Alert) RawPriority() string { return a.Priority }

// CreatedTime implements triage.Sortable.
func (a *Alert) CreatedTime() time.Time { return a.CreatedAt }

// derive fills the computed Level from the stored raw priority.
func (a *Alert) derive() *Alert {
	a.Level = triage.Normalize(a.Priority)
	return a
}

type CreateRequest struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
	Trigger   string    `json:"trigger" validate:"required,max=200"`
	Brief     string    `json:"brief" validate:"required,min=1,max=8000"`
	Priority  string    `json:"priority" validate:"required,max=40"`
	CallRef   string    `json:"call_ref" validate:"max=400"`
}

// UpdateRequest is the allow-list of mutable alert fields: staff move the
// status forward, override the priority, and record how it was resolved.
type UpdateRequest struct {
	Status         *Status `json:"status" validate:"omitempty,oneof=active in_progress resolved"`
	Priority       *string `json:"priority" validate:"omitempty,max=40"`
	ResolutionNote *string `json:"resolution_note" validate:"omitempty,max=4000"`
}

// ListFilter narrows alert queries within a hospital.
type ListFilter struct {
	Status Status
	Level  triage.Level
	// PatientIDs restricts to the given patients. Stores bound the number of
	// values a single disjunctive filter may carry; callers with larger sets
	// use a broad fetch and narrow in memory.
	PatientIDs []uuid.UUID
}
