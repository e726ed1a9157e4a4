package audit

import "context"

// Repository persists audit entries. The table is append-only; there is no
// update or delete.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, hospitalID string, filter ListFilter, limit, offset int) ([]*Entry, int, error)
}
