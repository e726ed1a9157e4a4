package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/domain/audit"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
)

type Service struct {
	repo    Repository
	auditor audit.Recorder
}

func NewService(repo Repository, auditor audit.Recorder) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// visible returns the patient only if it belongs to the caller's hospital
// and, for nurses, to their assignment. A mismatch is not-found, never
// forbidden, so probing IDs reveals nothing about other hospitals.
func (s *Service) visible(p *Patient, ident auth.Identity) error {
	if p.HospitalID != ident.HospitalID {
		return apperr.ErrNotFound
	}
	if ident.Role == auth.RoleNurse && !ident.Agent && p.AssignedNurseEmail != ident.Email {
		return apperr.ErrNotFound
	}
	return nil
}

// List returns the caller's hospital roster. Nurses see only their assigned
// patients; an unauthenticated caller gets an empty page.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return []*Patient{}, 0, nil
	}

	if ident.Role == auth.RoleNurse && !ident.Agent {
		f.AssignedNurseEmail = ident.Email
	}
	patients, total, err := s.repo.List(ctx, ident.HospitalID, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range patients {
		p.derive()
	}
	return patients, total, nil
}

// Get returns one patient and records the access in the audit trail.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(p, ident); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionRead,
		Resource:   "patient",
		ResourceID: p.ID.String(),
	})
	return p.derive(), nil
}

// Create admits a patient into the caller's hospital. Coordinators and
// admins only. The hospital comes from the identity, never the request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Patient, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	if ident.Role == auth.RoleNurse {
		return nil, apperr.ErrForbidden
	}

	p := &Patient{
		HospitalID:         ident.HospitalID,
		Name:               req.Name,
		Phone:              req.Phone,
		Email:              req.Email,
		Address:            req.Address,
		DateOfBirth:        req.DateOfBirth,
		Diagnosis:          req.Diagnosis,
		DischargePlan:      req.DischargePlan,
		NextAppointment:    req.NextAppointment,
		AssignedNurseName:  req.AssignedNurseName,
		AssignedNurseEmail: req.AssignedNurseEmail,
		AssignedNursePhone: req.AssignedNursePhone,
		RiskLevel:          req.RiskLevel,
		Brief:              req.Brief,
		Status:             StatusActive,
		Notes:              req.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "patient",
		ResourceID: p.ID.String(),
		Fields:     []string{"created"},
	})
	return p.derive(), nil
}

// Update applies the allow-listed changes and audits exactly the fields that
// moved. Nurses may update patients assigned to them; reassignment is
// coordinator work.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(p, ident); err != nil {
		return nil, err
	}
	reassigning := req.AssignedNurseName != nil || req.AssignedNurseEmail != nil || req.AssignedNursePhone != nil
	if reassigning && ident.Role == auth.RoleNurse {
		return nil, apperr.ErrForbidden
	}

	var changed []string
	setStr := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = append(changed, field)
		}
	}
	setStr("name", &p.Name, req.Name)
	setStr("phone", &p.Phone, req.Phone)
	setStr("email", &p.Email, req.Email)
	setStr("address", &p.Address, req.Address)
	if req.DateOfBirth != nil {
		p.DateOfBirth = req.DateOfBirth
		changed = append(changed, "date_of_birth")
	}
	setStr("diagnosis", &p.Diagnosis, req.Diagnosis)
	if req.DischargePlan != nil {
		p.DischargePlan = req.DischargePlan
		changed = append(changed, "discharge_plan")
	}
	if req.NextAppointment != nil {
		p.NextAppointment = req.NextAppointment
		changed = append(changed, "next_appointment")
	}
	setStr("assigned_nurse_name", &p.AssignedNurseName, req.AssignedNurseName)
	setStr("assigned_nurse_email", &p.AssignedNurseEmail, req.AssignedNurseEmail)
	setStr("assigned_nurse_phone", &p.AssignedNursePhone, req.AssignedNursePhone)
	setStr("risk_level", &p.RiskLevel, req.RiskLevel)
	setStr("brief", &p.Brief, req.Brief)
	if req.Status != nil && *req.Status != p.Status {
		p.Status = *req.Status
		changed = append(changed, "status")
	}
	setStr("notes", &p.Notes, req.Notes)
	if len(changed) == 0 {
		return p.derive(), nil
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "patient",
		ResourceID: p.ID.String(),
		Fields:     changed,
	})
	return p.derive(), nil
}

// ListInteractions returns the care log for a patient the caller can see.
// A parent lookup that fails the tenant or assignment check short-circuits
// to an empty page without touching the subcollection, so cross-tenant
// probing reads the same as an absent patient.
func (s *Service) ListInteractions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Interaction, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return []*Interaction{}, 0, nil
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return []*Interaction{}, 0, nil
		}
		return nil, 0, err
	}
	if err := s.visible(p, ident); err != nil {
		return []*Interaction{}, 0, nil
	}
	return s.repo.ListInteractions(ctx, patientID, limit, offset)
}

// AddInteraction appends to the care log. Author identity always comes from
// the verified caller.
func (s *Service) AddInteraction(ctx context.Context, patientID uuid.UUID, req AddInteractionRequest) (*Interaction, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.visible(p, ident); err != nil {
		return nil, err
	}

	i := &Interaction{
		PatientID:   p.ID,
		HospitalID:  p.HospitalID,
		AuthorID:    ident.UserID,
		AuthorEmail: ident.Email,
		Kind:        req.Kind,
		Note:        req.Note,
	}
	if err := s.repo.AddInteraction(ctx, i); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "patient_interaction",
		ResourceID: i.ID.String(),
		Fields:     []string{"created"},
	})
	return i, nil
}
