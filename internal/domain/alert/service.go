package alert

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/domain/audit"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

// FetchCap bounds how many alerts a single triage query pulls before sorting.
// A hospital drowning in alerts gets the 500 most recent, which always
// contains the most urgent ones the dashboard can usefully show.
const FetchCap = 500

// PatientRef is the slice of a patient record the alert service needs for
// visibility checks and denormalization.
type PatientRef struct {
	HospitalID string
	Name       string
	NurseEmail string
}

// PatientDirectory is the alert service's view of the patient domain: nurse
// assignments for narrowing, and per-patient lookups for visibility checks.
type PatientDirectory interface {
	IDsByNurse(ctx context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error)
	Lookup(ctx context.Context, patientID uuid.UUID) (PatientRef, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	auditor  audit.Recorder
}

func NewService(repo Repository, patients PatientDirectory, auditor audit.Recorder) *Service {
	return &Service{repo: repo, patients: patients, auditor: auditor}
}

// nurseScope resolves the patient set a nurse may see. The bool reports
// whether narrowing applies at all.
func (s *Service) nurseScope(ctx context.Context, ident auth.Identity) (map[uuid.UUID]bool, bool, error) {
	if ident.Role != auth.RoleNurse || ident.Agent {
		return nil, false, nil
	}
	ids, err := s.patients.IDsByNurse(ctx, ident.HospitalID, ident.Email)
	if err != nil {
		return nil, false, err
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, true, nil
}

// List returns the triage queue: the hospital's alerts ordered most urgent
// first, critical before warning before safe, newest first within a level.
// Nurses see only alerts for their assigned patients. When the assignment
// set exceeds what a single store filter can carry, the query broadens to
// the whole hospital and narrows in memory, so the result is identical
// either way.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Alert, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return []*Alert{}, 0, nil
	}

	scope, narrowed, err := s.nurseScope(ctx, ident)
	if err != nil {
		return nil, 0, err
	}
	if narrowed && len(scope) == 0 {
		return []*Alert{}, 0, nil
	}

	var alerts []*Alert
	if narrowed && len(scope) <= MaxPatientFilterValues {
		f.PatientIDs = make([]uuid.UUID, 0, len(scope))
		for id := range scope {
			f.PatientIDs = append(f.PatientIDs, id)
		}
		alerts, err = s.repo.List(ctx, ident.HospitalID, f, FetchCap)
	} else {
		f.PatientIDs = nil
		alerts, err = s.repo.List(ctx, ident.HospitalID, f, FetchCap)
		if err == nil && narrowed {
			kept := alerts[:0]
			for _, a := range alerts {
				if scope[a.PatientID] {
					kept = append(kept, a)
				}
			}
			alerts = kept
		}
	}
	if err != nil {
		return nil, 0, err
	}

	return sortAndPage(alerts, limit, offset)
}

// ListForPatient returns one patient's alerts in triage order. The parent
// patient's tenant ownership is verified first; a lookup that fails it
// short-circuits to an empty page without querying the alert collection, so
// cross-tenant probing reads the same as an absent patient.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return []*Alert{}, 0, nil
	}

	ref, err := s.patients.Lookup(ctx, patientID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return []*Alert{}, 0, nil
		}
		return nil, 0, err
	}
	if ref.HospitalID != ident.HospitalID {
		return []*Alert{}, 0, nil
	}
	if ident.Role == auth.RoleNurse && !ident.Agent && ref.NurseEmail != ident.Email {
		return []*Alert{}, 0, nil
	}

	alerts, err := s.repo.List(ctx, ident.HospitalID,
		ListFilter{PatientIDs: []uuid.UUID{patientID}}, FetchCap)
	if err != nil {
		return nil, 0, err
	}
	return sortAndPage(alerts, limit, offset)
}

func sortAndPage(alerts []*Alert, limit, offset int) ([]*Alert, int, error) {
	triage.SortByUrgency(alerts)

	total := len(alerts)
	if offset >= total {
		return []*Alert{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return alerts[offset:end], total, nil
}

// Get returns one alert. Cross-tenant and unassigned-nurse access both read
// as not-found.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(ctx, a, ident); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) visible(ctx context.Context, a *Alert, ident auth.Identity) error {
	if a.HospitalID != ident.HospitalID {
		return apperr.ErrNotFound
	}
	if ident.Role == auth.RoleNurse && !ident.Agent {
		ref, err := s.patients.Lookup(ctx, a.PatientID)
		if err != nil {
			return apperr.ErrNotFound
		}
		if ref.NurseEmail != ident.Email {
			return apperr.ErrNotFound
		}
	}
	return nil
}

// Create raises an alert for a patient in the caller's hospital, carrying the
// patient's name so list views render without a join. The raw priority is
// stored as received; unknown vocabulary still creates a valid alert that
// normalizes to safe rather than being rejected, because a monitoring gap is
// worse than a mislabeled alert.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Alert, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	ref, err := s.patients.Lookup(ctx, req.PatientID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	if ref.HospitalID != ident.HospitalID {
		return nil, apperr.ErrNotFound
	}
	if ident.Role == auth.RoleNurse && !ident.Agent && ref.NurseEmail != ident.Email {
		return nil, apperr.ErrNotFound
	}

	a := &Alert{
		HospitalID:  ident.HospitalID,
		PatientID:   req.PatientID,
		PatientName: ref.Name,
		Trigger:     req.Trigger,
		Brief:       req.Brief,
		Priority:    req.Priority,
		Status:      StatusActive,
		CallRef:     req.CallRef,
		CreatedBy:   ident.UserID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "alert",
		ResourceID: a.ID.String(),
		Fields:     []string{"created"},
	})
	return a.derive(), nil
}

// Update applies allow-listed changes. Status moves forward only: active to
// in_progress or resolved, in_progress to resolved. Concurrent updates are
// last-write-wins; the audit trail preserves both writes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Alert, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(ctx, a, ident); err != nil {
		return nil, err
	}

	var changed []string
	if req.Status != nil && *req.Status != a.Status {
		if !validTransition(a.Status, *req.Status) {
			return nil, apperr.Validation(map[string]string{
				"status": "cannot move from " + string(a.Status) + " to " + string(*req.Status),
			})
		}
		a.Status = *req.Status
		changed = append(changed, "status")
	}
	if req.Priority != nil && *req.Priority != a.Priority {
		a.Priority = *req.Priority
		changed = append(changed, "priority")
	}
	if req.ResolutionNote != nil && *req.ResolutionNote != a.ResolutionNote {
		a.ResolutionNote = *req.ResolutionNote
		changed = append(changed, "resolution_note")
	}
	if len(changed) == 0 {
		return a, nil
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "alert",
		ResourceID: a.ID.String(),
		Fields:     changed,
	})
	return a.derive(), nil
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusInProgress || to == StatusResolved
	case StatusInProgress:
		return to == StatusResolved
	default:
		return false
	}
}
