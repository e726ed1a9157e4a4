package alert

import (
	"context"

	"github.com/google/uuid"
)

// MaxPatientFilterValues is the largest patient set a single list query may
// filter on. Larger sets must use a broad fetch and narrow in memory.
const MaxPatientFilterValues = 10

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	// GetByID returns the alert regardless of hospital; the service layer
	// turns a tenant mismatch into not-found.
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	// List returns at most cap alerts for the hospital matching the filter,
	// newest first. Returns an error if the filter carries more than
	// MaxPatientFilterValues patient IDs.
	List(ctx context.Context, hospitalID string, f ListFilter, cap int) ([]*Alert, error)
	Update(ctx context.Context, a *Alert) error
	// CountByPriorities counts alerts in the given status whose raw priority
	// is in raws, optionally restricted to a patient set.
	CountByPriorities(ctx context.Context, hospitalID string, status Status, raws []string, patientIDs []uuid.UUID) (int, error)
	// CountByStatus counts the hospital's alerts in one status, optionally
	// restricted to a patient set.
	CountByStatus(ctx context.Context, hospitalID string, status Status, patientIDs []uuid.UUID) (int, error)
}
