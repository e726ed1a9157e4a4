// Package dashboard aggregates triage counts for the landing view: how many
// patients the caller is responsible for, how their active alerts split
// across risk levels, and where every alert sits in its lifecycle.
package dashboard

import (
	"context"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/domain/alert"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/patient"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

// StatusBreakdown counts alerts by lifecycle status.
type StatusBreakdown struct {
	Active     int `json:"active"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

type Stats struct {
	Patients     int             `json:"patients"`
	ActiveAlerts int             `json:"active_alerts"`
	Critical     int             `json:"critical"`
	Warning      int             `json:"warning"`
	Safe         int             `json:"safe"`
	ByStatus     StatusBreakdown `json:"by_status"`
}

type Service struct {
	alerts   alert.Repository
	patients patient.Repository
}

func NewService(alerts alert.Repository, patients patient.Repository) *Service {
	return &Service{alerts: alerts, patients: patients}
}

// Stats computes the caller's dashboard numbers: the patient total, the level
// split of active alerts, and the status breakdown across the lifecycle.
// Counts run server-side on the raw priority sets that normalize to each
// level; when a nurse's assignment exceeds the store's filter width the
// service counts over the same broad fetch the alert list uses, so badge
// counts and the list never disagree.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return &Stats{}, nil
	}

	pf := patient.ListFilter{}
	isNurse := ident.Role == auth.RoleNurse && !ident.Agent
	if isNurse {
		pf.AssignedNurseEmail = ident.Email
	}
	_, patientTotal, err := s.patients.List(ctx, ident.HospitalID, pf, 1, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Patients: patientTotal}

	var scope []uuid.UUID
	if isNurse {
		scope, err = s.patients.IDsByNurse(ctx, ident.HospitalID, ident.Email)
		if err != nil {
			return nil, err
		}
		if len(scope) == 0 {
			return stats, nil
		}
	}

	if isNurse && len(scope) > alert.MaxPatientFilterValues {
		if err := s.countInMemory(ctx, ident.HospitalID, scope, stats); err != nil {
			return nil, err
		}
	} else {
		if err := s.countInStore(ctx, ident.HospitalID, scope, stats); err != nil {
			return nil, err
		}
	}

	stats.ActiveAlerts = stats.ByStatus.Active
	return stats, nil
}

func (s *Service) countInStore(ctx context.Context, hospitalID string, scope []uuid.UUID, stats *Stats) error {
	for _, lc := range []struct {
		level triage.Level
		dst   *int
	}{
		{triage.Critical, &stats.Critical},
		{triage.Warning, &stats.Warning},
		{triage.Safe, &stats.Safe},
	} {
		n, err := s.alerts.CountByPriorities(ctx, hospitalID, alert.StatusActive, triage.RawValues(lc.level), scope)
		if err != nil {
			return err
		}
		*lc.dst = n
	}

	for _, sc := range []struct {
		status alert.Status
		dst    *int
	}{
		{alert.StatusActive, &stats.ByStatus.Active},
		{alert.StatusInProgress, &stats.ByStatus.InProgress},
		{alert.StatusResolved, &stats.ByStatus.Resolved},
	} {
		n, err := s.alerts.CountByStatus(ctx, hospitalID, sc.status, scope)
		if err != nil {
			return err
		}
		*sc.dst = n
	}
	return nil
}

func (s *Service) countInMemory(ctx context.Context, hospitalID string, scope []uuid.UUID, stats *Stats) error {
	alerts, err := s.alerts.List(ctx, hospitalID, alert.ListFilter{}, alert.FetchCap)
	if err != nil {
		return err
	}

	inScope := make(map[uuid.UUID]bool, len(scope))
	for _, id := range scope {
		inScope[id] = true
	}

	for _, a := range alerts {
		if !inScope[a.PatientID] {
			continue
		}
		switch a.Status {
		case alert.StatusActive:
			stats.ByStatus.Active++
		case alert.StatusInProgress:
			stats.ByStatus.InProgress++
		case alert.StatusResolved:
			stats.ByStatus.Resolved++
		}
		if a.Status != alert.StatusActive {
			continue
		}
		switch triage.Normalize(a.Priority) {
		case triage.Critical:
			stats.Critical++
		case triage.Warning:
			stats.Warning++
		default:
			stats.Safe++
		}
	}
	return nil
}
