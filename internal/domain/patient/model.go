// Package patient holds the patient roster and the per-patient interaction
// log. Every read and write is scoped to the caller's hospital; a patient in
// another hospital is indistinguishable from one that does not exist.
package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusDischarged Status = "discharged"
)

// Medication is one line of the discharge plan.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions,omitempty"`
}

// DischargePlan is what the patient went home with: the medication schedule
// and the symptom lists the monitoring agent watches for.
type DischargePlan struct {
	Medications      []Medication `json:"medications"`
	CriticalSymptoms []string     `json:"critical_symptoms,omitempty"`
	WarningSymptoms  []string     `json:"warning_symptoms,omitempty"`
}

// Appointment is the next scheduled follow-up.
type Appointment struct {
	Date     time.Time `json:"date"`
	Type     string    `json:"type"`
	Location string    `json:"location,omitempty"`
}

type Patient struct {
	ID          uuid.UUID  `json:"id"`
	HospitalID  string     `json:"hospital_id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Diagnosis   string     `json:"diagnosis,omitempty"`

	DischargePlan   *DischargePlan `json:"discharge_plan,omitempty"`
	NextAppointment *Appointment   `json:"next_appointment,omitempty"`

	AssignedNurseName  string `json:"assigned_nurse_name,omitempty"`
	AssignedNurseEmail string `json:"assigned_nurse_email,omitempty"`
	AssignedNursePhone string `json:"assigned_nurse_phone,omitempty"`

	// RiskLevel holds the raw hospital-scale vocabulary as last written by
	// staff or the monitoring agent, e.g. RED or GREEN. Risk in responses is
	// derived from it.
	RiskLevel string       `json:"risk_level,omitempty"`
	Risk      triage.Level `json:"risk"`
	Brief     string       `json:"brief,omitempty"`

	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// derive fills the computed Risk from the stored raw risk level.
func (p *Patient) derive() *Patient {
	p.Risk = triage.Normalize(p.RiskLevel)
	return p
}

// Interaction is one entry in a patient's care log: a note, a call, a visit.
type Interaction struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	HospitalID  string    `json:"hospital_id"`
	AuthorID    string    `json:"author_id"`
	AuthorEmail string    `json:"author_email"`
	Kind        string    `json:"kind"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name               string         `json:"name" validate:"required,min=1,max=200"`
	Phone              string         `json:"phone" validate:"max=40"`
	Email              string         `json:"email" validate:"omitempty,email"`
	Address            string         `json:"address" validate:"max=400"`
	DateOfBirth        *time.Time     `json:"date_of_birth"`
	Diagnosis          string         `json:"diagnosis" validate:"max=200"`
	DischargePlan      *DischargePlan `json:"discharge_plan"`
	NextAppointment    *Appointment   `json:"next_appointment"`
	AssignedNurseName  string         `json:"assigned_nurse_name" validate:"max=200"`
	AssignedNurseEmail string         `json:"assigned_nurse_email" validate:"omitempty,email"`
	AssignedNursePhone string         `json:"assigned_nurse_phone" validate:"max=40"`
	RiskLevel          string         `json:"risk_level" validate:"max=40"`
	Brief              string         `json:"brief" validate:"max=8000"`
	Notes              string         `json:"notes" validate:"max=4000"`
}

// UpdateRequest is the allow-list of mutable patient fields. Pointer fields
// distinguish "leave unchanged" from "clear"; anything not listed here,
// including hospital_id, cannot be written through the API.
type UpdateRequest struct {
	Name               *string        `json:"name" validate:"omitempty,min=1,max=200"`
	Phone              *string        `json:"phone" validate:"omitempty,max=40"`
	Email              *string        `json:"email" validate:"omitempty,email"`
	Address            *string        `json:"address" validate:"omitempty,max=400"`
	DateOfBirth        *time.Time     `json:"date_of_birth"`
	Diagnosis          *string        `json:"diagnosis" validate:"omitempty,max=200"`
	DischargePlan      *DischargePlan `json:"discharge_plan"`
	NextAppointment    *Appointment   `json:"next_appointment"`
	AssignedNurseName  *string        `json:"assigned_nurse_name" validate:"omitempty,max=200"`
	AssignedNurseEmail *string        `json:"assigned_nurse_email" validate:"omitempty,email"`
	AssignedNursePhone *string        `json:"assigned_nurse_phone" validate:"omitempty,max=40"`
	RiskLevel          *string        `json:"risk_level" validate:"omitempty,max=40"`
	Brief              *string        `json:"brief" validate:"omitempty,max=8000"`
	Status             *Status        `json:"status" validate:"omitempty,oneof=active discharged"`
	Notes              *string        `json:"notes" validate:"omitempty,max=4000"`
}

type AddInteractionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=note call visit escalation"`
	Note string `json:"note" validate:"required,min=1,max=4000"`
}

// ListFilter narrows patient list queries within the caller's hospital.
type ListFilter struct {
	// AssignedNurseEmail restricts results to one nurse's patients. Set
	// automatically for nurse callers.
	AssignedNurseEmail string
	Diagnosis          string
	Status             Status
}
