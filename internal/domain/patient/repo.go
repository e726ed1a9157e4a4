package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	// GetByID returns the patient regardless of hospital; the service layer
	// turns a tenant mismatch into not-found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, hospitalID string, f ListFilter, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	// IDsByNurse returns the IDs of every patient in the hospital assigned
	// to the nurse, for narrowing queries in other domains.
	IDsByNurse(ctx context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error)

	AddInteraction(ctx context.Context, i *Interaction) error
	ListInteractions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Interaction, int, error)
}
