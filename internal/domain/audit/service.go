package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/middleware"
)

// Recorder is the write side of the audit trail, consumed by every domain
// service that mutates clinical data.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Service records and lists audit entries.
//
// Record intentionally returns nothing. A mutation that succeeded must not be
// reported as failed because the trail write failed; instead the failure is
// logged under a fixed tag that the operations alerting matches on.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends one entry, filling the actor triple and correlation data
// from the context when the caller left them empty.
func (s *Service) Record(ctx context.Context, e Entry) {
	ident := auth.FromContext(ctx)
	if e.UserID == "" {
		e.UserID = ident.UserID
	}
	if e.UserEmail == "" {
		e.UserEmail = ident.Email
	}
	if e.Role == "" {
		e.Role = string(ident.Role)
	}
	if e.HospitalID == "" {
		e.HospitalID = ident.HospitalID
	}
	meta := middleware.MetaFromContext(ctx)
	if e.RequestID == "" {
		e.RequestID = meta.RequestID
	}
	if e.ClientIP == "" {
		e.ClientIP = meta.ClientIP
	}

	if err := s.repo.Insert(ctx, &e); err != nil {
		s.logger.Error().
			Err(err).
			Str("alert", "audit_write_failed").
			Str("action", string(e.Action)).
			Str("resource", e.Resource).
			Str("resource_id", e.ResourceID).
			Str("user_id", e.UserID).
			Msg("audit trail write failed")
	}
}

// List returns the audit trail for the caller's hospital. Admin only; the
// handler enforces the role, the service enforces the tenant.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, 0, apperr.ErrUnauthenticated
	}
	if ident.Role != auth.RoleAdmin {
		return nil, 0, apperr.ErrForbidden
	}
	return s.repo.List(ctx, ident.HospitalID, filter, limit, offset)
}
