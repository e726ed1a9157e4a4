package staff

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

// Resolver adapts the repository to the auth layer. It always runs against
// the privileged pool because it executes before any tenant is known.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) BySubject(ctx context.Context, subject, email string) (*auth.Profile, error) {
	u, err := r.repo.GetBySubject(ctx, subject)
	if errors.Is(err, apperr.ErrNotFound) && email != "" {
		// First login of a pre-provisioned account: match by email and pin
		// the subject so later logins hit the fast path.
		u, err = r.repo.GetByEmail(ctx, email)
		if err == nil {
			_ = r.repo.LinkSubject(ctx, u.ID, subject)
		}
	}
	if err != nil {
		return nil, err
	}
	if u.ServiceAccount {
		// The agent account only authenticates through the API key path.
		return nil, apperr.ErrNotFound
	}
	return toProfile(u), nil
}

func (r *Resolver) ServiceAccount(ctx context.Context) (*auth.Profile, error) {
	u, err := r.repo.GetServiceAccount(ctx)
	if err != nil {
		return nil, err
	}
	return toProfile(u), nil
}

func toProfile(u *User) *auth.Profile {
	return &auth.Profile{
		UserID:     u.ID.String(),
		Email:      u.Email,
		Role:       u.Role,
		HospitalID: u.HospitalID,
	}
}

// GetProfile returns the caller's own account.
func (s *Service) GetProfile(ctx context.Context) (*User, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	id, err := uuid.Parse(ident.UserID)
	if err != nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies the caller's self-service changes. Only fields the
// request type exposes can change; role and hospital never move through
// here.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	u, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.Name != nil && *req.Name != u.Name {
		u.Name = *req.Name
		changed = append(changed, "name")
	}
	if req.Phone != nil && *req.Phone != u.Phone {
		u.Phone = *req.Phone
		changed = append(changed, "phone")
	}
	if len(changed) == 0 {
		return u, nil
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionWrite,
		Resource:   "user",
		ResourceID: u.ID.String(),
		Fields:     changed,
	})
	return u, nil
}

// ListStaff returns the caller's hospital roster. Coordinators and admins
// only; nurses see patients, not the roster.
func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*User, int, error) {
	ident := auth.FromContext(ctx)
	if ident.IsZero() {
		return []*User{}, 0, nil
	}
	if ident.Role != auth.RoleCoordinator && ident.Role != auth.RoleAdmin {
		return nil, 0, apperr.ErrForbidden
	}
	return s.repo.ListByHospital(ctx, ident.HospitalID, limit, offset)
}
